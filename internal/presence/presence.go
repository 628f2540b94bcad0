// Package presence keeps the bot's Discord status line in sync with how
// many guilds are currently being read aloud.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/yomu/internal/reader"
)

// DefaultInterval is how often the status line refreshes.
const DefaultInterval = 20 * time.Second

// Updater periodically publishes the reading activity as the bot's
// status.
type Updater struct {
	session  *discordgo.Session
	registry *reader.Registry
	interval time.Duration
	log      *slog.Logger

	// setStatus is swapped in tests.
	setStatus func(status string) error
}

// New creates an Updater. A zero interval uses DefaultInterval.
func New(session *discordgo.Session, registry *reader.Registry, interval time.Duration, log *slog.Logger) *Updater {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	u := &Updater{
		session:  session,
		registry: registry,
		interval: interval,
		log:      log,
	}
	u.setStatus = func(status string) error {
		return session.UpdateGameStatus(0, status)
	}
	return u
}

// statusLine renders the published status text.
func statusLine(reading, total int) string {
	return fmt.Sprintf("%d / %d サーバーで読み上げ", reading, total)
}

// Run updates the status immediately and then on every tick until ctx is
// cancelled. Always returns ctx.Err().
func (u *Updater) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.update()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			u.update()
		}
	}
}

func (u *Updater) update() {
	total := 0
	if u.session != nil && u.session.State != nil {
		total = len(u.session.State.Guilds)
	}
	if err := u.setStatus(statusLine(u.registry.Len(), total)); err != nil {
		u.log.Warn("failed to update presence", "error", err)
	}
}
