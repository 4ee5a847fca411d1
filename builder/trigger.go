// builder/trigger.go
package builder

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/plumecms/plume-server/events"
)

// Trigger rebuilds the site whenever a content event can change the
// generated output. Events arriving while a build runs are dropped, not
// queued; the editor can always request a build explicitly.
type Trigger struct {
	hub *events.Hub
	sup *Supervisor
	log zerolog.Logger
}

func NewTrigger(hub *events.Hub, sup *Supervisor, log zerolog.Logger) *Trigger {
	return &Trigger{
		hub: hub,
		sup: sup,
		log: log.With().Str("component", "trigger").Logger(),
	}
}

// Start launches the consume loop; it exits when ctx is canceled.
func (t *Trigger) Start(ctx context.Context) {
	go t.loop(ctx)
}

func (t *Trigger) loop(ctx context.Context) {
	ch := t.hub.Subscribe()
	defer t.hub.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if !affectsSite(ev) {
				continue
			}
			res, err := t.sup.Build(ctx)
			switch {
			case errors.Is(err, ErrBuildInProgress):
				t.log.Warn().Str("event", ev.Type).Msg("rebuild skipped, build in progress")
			case res.Success:
				t.log.Info().Str("event", ev.Type).Msg("site rebuilt")
			default:
				t.log.Error().Str("event", ev.Type).Str("error", res.Error).Msg("rebuild failed")
			}
		}
	}
}

// affectsSite reports whether an event can change the generated site: any
// delete, and any create or update of a published post.
func affectsSite(ev events.Event) bool {
	if ev.Type == events.PostDeleted {
		return true
	}
	return ev.Post != nil && ev.Post.Published()
}
