package repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/projection"
	"github.com/nhle/daybook/internal/store"
)

// LogRepository is the write path for daily logs. A log's identity is
// its calendar date, so it never needs a locally-minted id.
type LogRepository struct {
	log      store.EventLog
	proj     *projection.Projection
	nudger   Nudger
	deviceID string
}

// NewLogRepository creates the repository and registers its reducer.
func NewLogRepository(
	log store.EventLog,
	proj *projection.Projection,
	nudger Nudger,
	deviceID string,
) *LogRepository {
	proj.Register(model.EventLogUpserted, reduceLogUpserted)

	return &LogRepository{
		log:      log,
		proj:     proj,
		nudger:   nudger,
		deviceID: deviceID,
	}
}

// Save records the full content of the log for date, replacing any
// prior content both locally and, eventually, on the remote.
func (r *LogRepository) Save(
	ctx context.Context,
	date string,
	payload model.LogUpsertedPayload,
) error {
	if _, err := time.Parse(model.LogDateFormat, date); err != nil {
		return fmt.Errorf("invalid log date %q: %w", date, err)
	}

	ev := model.NewEvent(
		model.EntityDailyLog, date, model.EventLogUpserted,
		&payload, r.deviceID,
	)
	return write(ctx, r.log, r.proj, r.nudger, ev)
}

// FindByDate returns the log for the given date.
func (r *LogRepository) FindByDate(date string) (model.DailyLog, bool) {
	return r.proj.Log(date)
}

// FindByDateRange returns all logs with from <= date <= to, ascending.
// Dates are compared as strings; the YYYY-MM-DD layout makes that the
// same as chronological order.
func (r *LogRepository) FindByDateRange(from, to string) []model.DailyLog {
	var logs []model.DailyLog
	for _, l := range r.proj.Logs() {
		if l.Date >= from && l.Date <= to {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Date < logs[j].Date })
	return logs
}

// reduceLogUpserted replaces the log content at the event's date while
// preserving the last known remote id, so a later save resolves to a
// remote update rather than a second create.
func reduceLogUpserted(st *projection.State, ev model.Event) {
	p, ok := ev.Payload.(*model.LogUpsertedPayload)
	if !ok {
		return
	}

	remoteID := ""
	if prev, exists := st.Logs[ev.EntityID]; exists {
		remoteID = prev.RemoteID
	}

	st.Logs[ev.EntityID] = model.DailyLog{
		Date:       ev.EntityID,
		RemoteID:   remoteID,
		Mood:       p.Mood,
		Energy:     p.Energy,
		SleepHours: p.SleepHours,
		Highlights: p.Highlights,
		Gratitude:  p.Gratitude,
		Notes:      p.Notes,
	}
}
