package notion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/daybook/internal/model"
)

// Log database property names.
const (
	propLogTitle      = "Date"
	propLogDay        = "Day"
	propLogMood       = "Mood"
	propLogEnergy     = "Energy"
	propLogSleep      = "Sleep Hours"
	propLogHighlights = "Highlights"
	propLogGratitude  = "Gratitude"
	propLogNotes      = "Notes"
)

// LogDatabase implements remote.LogService against one database of the
// hosted page service.
type LogDatabase struct {
	client     *Client
	databaseID string
}

// NewLogDatabase creates the daily log adapter for the given database.
func NewLogDatabase(client *Client, databaseID string) *LogDatabase {
	return &LogDatabase{client: client, databaseID: databaseID}
}

// Save upserts the log content for date. With a known remote id the
// page is patched; otherwise a new page is created. Either way the id
// of the page holding the content comes back.
func (d *LogDatabase) Save(
	ctx context.Context,
	date, remoteID string,
	p model.LogUpsertedPayload,
) (string, error) {
	props := map[string]Property{
		propLogTitle:      titleProp(date),
		propLogDay:        dateProp(date),
		propLogMood:       numberProp(float64(p.Mood)),
		propLogEnergy:     numberProp(float64(p.Energy)),
		propLogSleep:      numberProp(p.SleepHours),
		propLogHighlights: textProp(model.JoinLines(p.Highlights)),
		propLogGratitude:  textProp(model.JoinLines(p.Gratitude)),
		propLogNotes:      textProp(p.Notes),
	}

	if remoteID != "" {
		err := d.client.Patch(ctx, "/v1/pages/"+remoteID,
			UpdatePageRequest{Properties: props}, nil)
		if err != nil {
			return "", fmt.Errorf("updating remote log %s: %w", date, err)
		}
		return remoteID, nil
	}

	var page Page
	err := d.client.Post(ctx, "/v1/pages", CreatePageRequest{
		Parent:     ParentRef{DatabaseID: d.databaseID},
		Properties: props,
	}, &page)
	if err != nil {
		return "", fmt.Errorf("creating remote log %s: %w", date, err)
	}
	return page.ID, nil
}

// LastEdited returns the page's last-edited time; zero when missing.
func (d *LogDatabase) LastEdited(
	ctx context.Context,
	remoteID string,
) (time.Time, error) {
	return lastEdited(ctx, d.client, remoteID)
}

// List fetches all logs dated between from and to inclusive.
func (d *LogDatabase) List(
	ctx context.Context,
	from, to string,
) ([]model.DailyLog, error) {
	filter := map[string]interface{}{
		"and": []interface{}{
			map[string]interface{}{
				"property": propLogDay,
				"date":     map[string]string{"on_or_after": from},
			},
			map[string]interface{}{
				"property": propLogDay,
				"date":     map[string]string{"on_or_before": to},
			},
		},
	}

	var logs []model.DailyLog

	cursor := ""
	for {
		var resp QueryResponse
		err := d.client.Post(ctx,
			"/v1/databases/"+d.databaseID+"/query",
			QueryRequest{Filter: filter, StartCursor: cursor, PageSize: 100},
			&resp,
		)
		if err != nil {
			return nil, fmt.Errorf("querying log database: %w", err)
		}

		for _, page := range resp.Results {
			if page.Archived {
				continue
			}
			if log, ok := pageToLog(page); ok {
				logs = append(logs, log)
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return logs, nil
}

// pageToLog maps a page's properties to the local log shape. Pages
// without a parsable date are skipped; date is the log's identity.
func pageToLog(page Page) (model.DailyLog, bool) {
	log := model.DailyLog{RemoteID: page.ID}

	for name, prop := range page.Properties {
		switch name {
		case propLogDay:
			if prop.Date != nil {
				// A timestamped value still starts with the date.
				log.Date = truncateDate(prop.Date.Start)
			}
		case propLogTitle:
			if log.Date == "" {
				log.Date = truncateDate(plainText(prop.Title))
			}
		case propLogMood:
			if prop.Number != nil {
				log.Mood = int(*prop.Number)
			}
		case propLogEnergy:
			if prop.Number != nil {
				log.Energy = int(*prop.Number)
			}
		case propLogSleep:
			if prop.Number != nil {
				log.SleepHours = *prop.Number
			}
		case propLogHighlights:
			log.Highlights = model.SplitLines(plainText(prop.RichText))
		case propLogGratitude:
			log.Gratitude = model.SplitLines(plainText(prop.RichText))
		case propLogNotes:
			log.Notes = plainText(prop.RichText)
		}
	}

	if _, err := time.Parse(model.LogDateFormat, log.Date); err != nil {
		return model.DailyLog{}, false
	}
	return log, true
}

// truncateDate reduces an RFC3339 timestamp to its date part.
func truncateDate(s string) string {
	if i := strings.IndexByte(s, 'T'); i > 0 {
		return s[:i]
	}
	return s
}
