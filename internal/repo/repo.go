// Package repo implements the local repositories the rest of the
// application writes through. Every mutation becomes exactly one
// event: built, durably appended, applied to the projection in the
// same call, and followed by a sync nudge. Reads are projection reads.
package repo

import (
	"context"
	"fmt"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/projection"
	"github.com/nhle/daybook/internal/store"
)

// Nudger asks the sync engine to attempt a flush soon. Implementations
// must not block: many rapid writes coalesce into one pending flush.
type Nudger interface {
	Nudge()
}

// NopNudger is a Nudger that does nothing, for tests and offline use.
type NopNudger struct{}

func (NopNudger) Nudge() {}

// write appends ev to the log, applies it to the projection, and nudges
// the sync engine. The append failure surfaces to the caller before the
// projection is touched, so a failed write is never visible locally.
func write(
	ctx context.Context,
	log store.EventLog,
	proj *projection.Projection,
	nudger Nudger,
	ev model.Event,
) error {
	if err := log.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("recording %s: %w", ev.Type, err)
	}
	proj.Apply(ev)
	nudger.Nudge()
	return nil
}
