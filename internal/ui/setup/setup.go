// Package setup is the first-run configuration flow. It runs as a
// standalone form before the main program starts, collecting the
// remote integration token and database ids.
package setup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// Result holds the values collected by the form.
type Result struct {
	Token          string
	TodoDatabaseID string
	LogDatabaseID  string
}

// Run presents the setup form and blocks until it is submitted or
// aborted.
func Run() (Result, error) {
	var r Result

	form := huh.NewForm(huh.NewGroup(
		huh.NewNote().
			Title("daybook setup").
			Description("Connect your Notion workspace. You can find or create\n" +
				"an integration token at notion.so/my-integrations."),
		huh.NewInput().
			Title("Integration token").
			EchoMode(huh.EchoModePassword).
			Value(&r.Token).
			Validate(required("token")),
		huh.NewInput().
			Title("Todo database id").
			Value(&r.TodoDatabaseID).
			Validate(required("todo database id")),
		huh.NewInput().
			Title("Daily log database id").
			Value(&r.LogDatabaseID).
			Validate(required("daily log database id")),
	))

	if err := form.Run(); err != nil {
		return Result{}, fmt.Errorf("running setup form: %w", err)
	}

	r.Token = strings.TrimSpace(r.Token)
	r.TodoDatabaseID = strings.TrimSpace(r.TodoDatabaseID)
	r.LogDatabaseID = strings.TrimSpace(r.LogDatabaseID)
	return r, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
