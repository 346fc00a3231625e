package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting. All of it comes from the environment
// and is immutable for the lifetime of the process.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	MongoURI string `envconfig:"MONGODB_URI" required:"true"`

	// ChannelID is the private source channel holding the movie messages.
	ChannelID int64 `envconfig:"CHANNEL_ID" required:"true"`
	// AdminIDs are the user ids allowed to manage the catalog.
	AdminIDs []int64 `envconfig:"ADMIN_ID" required:"true"`
	// AuthGroups are the group chats the bot answers requests in.
	AuthGroups []int64 `envconfig:"AUTH_GRP" required:"true"`

	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	SessionTimeout     time.Duration `envconfig:"SESSION_TIMEOUT" default:"10m"`
	ListPageSize       int           `envconfig:"LIST_PAGE_SIZE" default:"20"`
	AmbiguityThreshold int           `envconfig:"AMBIGUITY_THRESHOLD" default:"1"`
	Debug              bool          `envconfig:"DEBUG" default:"false"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c Config) IsAuthorizedChat(chatID int64) bool {
	for _, id := range c.AuthGroups {
		if id == chatID {
			return true
		}
	}
	return false
}
