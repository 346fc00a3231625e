package bot

import (
	"context"
	"runtime"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRetiresIdleChatLanes(t *testing.T) {
	b, _, _ := newTestBot(t)
	b.laneIdle = 20 * time.Millisecond

	updates := make(chan tgbotapi.Update)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, updates)
		close(done)
	}()

	baseline := runtime.NumGoroutine()
	for i := 0; i < 200; i++ {
		updates <- tgbotapi.Update{Message: privateMsg(int64(10_000+i), "hello")}
	}

	deadline := time.Now().Add(5 * time.Second)
	for runtime.NumGoroutine() > baseline+10 {
		if time.Now().After(deadline) {
			t.Fatalf("lane goroutines not reclaimed: baseline=%d now=%d", baseline, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunKeepsOrderWithinChatAfterLaneRestart(t *testing.T) {
	b, api, store := newTestBot(t)
	b.laneIdle = 20 * time.Millisecond
	seedMovie(t, store, "Inception", 2010, 77)

	updates := make(chan tgbotapi.Update)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, updates)
		close(done)
	}()

	updates <- tgbotapi.Update{Message: groupMsg(plainUser, "Inception")}
	time.Sleep(100 * time.Millisecond) // lane idles out
	updates <- tgbotapi.Update{Message: groupMsg(plainUser, "Inception")}

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.forwards) == 2
	}, 2*time.Second, 10*time.Millisecond, "second request must be served by a fresh lane")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, forwardCall{to: testGroupID, from: testChannelID, messageID: 77}, api.forwards[0])
}