package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/osmo/osmo/internal/config"
	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/database/seed"
	"github.com/osmo/osmo/internal/testutil"
	"github.com/osmo/osmo/internal/util"
)

var testTime = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

// newTestDB returns a migrated in-memory database, seeded with the demo
// catalogue when seeded is true.
func newTestDB(t *testing.T, seeded bool) *database.DB {
	t.Helper()

	db := testutil.NewMigratedDB(t)
	if seeded {
		if _, err := seed.NewGenerator(db, seed.DefaultConfig()).Generate(context.Background()); err != nil {
			t.Fatalf("seeding test database: %v", err)
		}
	}
	return db
}

// newTestApp creates an App over an empty database with a fixed clock.
// The window is set to 120x40 and marked ready.
func newTestApp(t *testing.T) *App {
	t.Helper()
	return readyApp(New(newTestDB(t, false), config.Default(), util.NewFixedClock(testTime)))
}

// newSeededApp is newTestApp over the demo catalogue.
func newSeededApp(t *testing.T) *App {
	t.Helper()
	return readyApp(New(newTestDB(t, true), config.Default(), util.NewFixedClock(testTime)))
}

func readyApp(app *App) *App {
	app.width = 120
	app.height = 40
	app.ready = true
	return app
}

// run executes cmd synchronously and feeds every resulting message back
// into the app until no commands remain.
func run(app *App, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil, tea.QuitMsg:
	case tea.BatchMsg:
		for _, c := range msg {
			run(app, c)
		}
	default:
		_, next := app.Update(msg)
		run(app, next)
	}
}

// press sends a key and runs the commands it produces.
func press(app *App, msgs ...tea.KeyMsg) {
	for _, msg := range msgs {
		_, cmd := app.Update(msg)
		run(app, cmd)
	}
}

// keyMsg creates a tea.KeyMsg for a regular character key.
func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// specialKeyMsg creates a tea.KeyMsg for a special key type.
func specialKeyMsg(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}
