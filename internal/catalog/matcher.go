package catalog

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// MatchTier orders match quality. Lower is better.
type MatchTier int

const (
	TierExact MatchTier = iota
	TierPrefix
	TierSubstring
	TierFuzzy
)

// Jaro-Winkler floor for the fuzzy tier. Below this a record is not a
// candidate at all.
const fuzzyThreshold float32 = 0.85

// Match is a catalog record together with the tier it matched at.
type Match struct {
	MovieRecord
	Tier MatchTier
}

// Catalog is the read surface the matcher needs: a full scan in id order.
type Catalog interface {
	All(ctx context.Context) ([]MovieRecord, error)
}

type Matcher struct {
	catalog Catalog
}

func NewMatcher(c Catalog) *Matcher {
	return &Matcher{catalog: c}
}

// Find ranks catalog records against the query text. Results are ordered by
// tier (exact, prefix, substring, fuzzy), then by id within a tier. An
// extracted year excludes records with a different year unless that would
// empty the result set, in which case the unfiltered ranking is returned.
// An empty query picks one record uniformly at random.
func (m *Matcher) Find(ctx context.Context, query string) ([]Match, error) {
	records, err := m.catalog.All(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		if len(records) == 0 {
			return nil, nil
		}
		pick := records[rand.IntN(len(records))]
		return []Match{{MovieRecord: pick, Tier: TierExact}}, nil
	}

	title, year := ParseQuery(query)
	key := NormalizeTitle(title)
	if key == "" {
		return nil, nil
	}

	matches := make([]Match, 0, 4)
	for _, rec := range records {
		tier, ok := matchTier(key, rec.SearchKey)
		if !ok {
			continue
		}
		matches = append(matches, Match{MovieRecord: rec, Tier: tier})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Tier != matches[j].Tier {
			return matches[i].Tier < matches[j].Tier
		}
		return matches[i].ID < matches[j].ID
	})

	if year > 0 {
		filtered := make([]Match, 0, len(matches))
		for _, c := range matches {
			if c.Year == year {
				filtered = append(filtered, c)
			}
		}
		// A year mismatch must never turn a potential match into zero
		// results when no year-matching candidate exists.
		if len(filtered) > 0 {
			return filtered, nil
		}
	}
	return matches, nil
}

func matchTier(query, key string) (MatchTier, bool) {
	if key == "" {
		return 0, false
	}
	switch {
	case key == query:
		return TierExact, true
	case strings.HasPrefix(key, query):
		return TierPrefix, true
	case strings.Contains(key, query):
		return TierSubstring, true
	}
	if edlib.JaroWinklerSimilarity(query, key) >= fuzzyThreshold {
		return TierFuzzy, true
	}
	return 0, false
}
