package tui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/osmo/osmo/internal/config"
	"github.com/osmo/osmo/internal/util"
)

// newE2EApp creates an App for end-to-end testing via teatest.
// Unlike newTestApp, this does NOT pre-configure width/height/ready
// since teatest sends WindowSizeMsg via WithInitialTermSize.
func newE2EApp(t *testing.T, seeded bool) *App {
	t.Helper()
	return New(newTestDB(t, seeded), config.Default(), util.NewFixedClock(testTime))
}

// waitFor is a convenience wrapper around teatest.WaitFor with a standard timeout.
func waitFor(t *testing.T, tm *teatest.TestModel, text string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte(text))
	}, teatest.WithDuration(5*time.Second))
}

// waitForAll waits until every text has appeared in the output.
func waitForAll(t *testing.T, tm *teatest.TestModel, texts ...string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		for _, text := range texts {
			if !bytes.Contains(bts, []byte(text)) {
				return false
			}
		}
		return true
	}, teatest.WithDuration(5*time.Second))
}

// --- End-to-end tests ---
// These launch the real Bubble Tea program in a headless virtual terminal,
// send actual keystrokes, and assert on the rendered screen output.

func TestE2E_DashboardOnStartup(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitForAll(t, tm, "PLANT OVERVIEW", "Main Plant")
}

func TestE2E_NavigateToProduction(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "PLANT OVERVIEW")

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitForAll(t, tm, "PRODUCTION ORDERS", "No production orders yet")
}

func TestE2E_NavigateToWarehouse(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	tm.Send(tea.KeyMsg{Type: tea.KeyF4})
	waitForAll(t, tm, "=== WAREHOUSE ===", "No raw materials defined")
}

func TestE2E_HelpScreenAndBack(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "PLANT OVERVIEW")

	// F1 → Help
	tm.Send(tea.KeyMsg{Type: tea.KeyF1})
	waitFor(t, tm, "Include depleted lots")

	// Esc → Back to dashboard
	tm.Send(tea.KeyMsg{Type: tea.KeyEscape})
	waitFor(t, tm, "PLANT OVERVIEW")
}

func TestE2E_QuitFlow(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(120, 40))

	waitFor(t, tm, "PLANT OVERVIEW")

	// Press q → confirm dialog
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	waitFor(t, tm, "CONFIRM EXIT")

	// Press y → quit
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})

	m := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	app, ok := m.(*App)
	if !ok {
		t.Fatal("expected *App final model")
	}
	if !app.quitting {
		t.Error("expected app to be quitting")
	}
}

func TestE2E_QuitCancel(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "PLANT OVERVIEW")

	tm.Send(tea.KeyMsg{Type: tea.KeyF10})
	waitFor(t, tm, "CONFIRM EXIT")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})

	// Still responsive after cancel
	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "PRODUCTION ORDERS")
}

func TestE2E_FullNavigationRoundTrip(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, true),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "PLANT OVERVIEW")

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "PRODUCTION ORDERS")

	tm.Send(tea.KeyMsg{Type: tea.KeyF4})
	waitFor(t, tm, "Wheat flour T-500")

	tm.Send(tea.KeyMsg{Type: tea.KeyF1})
	waitFor(t, tm, "Include depleted lots")

	// Esc → back to the warehouse
	tm.Send(tea.KeyMsg{Type: tea.KeyEscape})
	waitFor(t, tm, "Enter:Lots (FIFO order)")

	tm.Send(tea.KeyMsg{Type: tea.KeyF2})
	waitFor(t, tm, "STOCK LEVELS")
}

func TestE2E_WarehouseLots(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, true),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	tm.Send(tea.KeyMsg{Type: tea.KeyF4})
	waitFor(t, tm, "Wheat flour T-500")

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitForAll(t, tm, "LOTS: BUTTER", "lots with stock, oldest first")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	waitFor(t, tm, "all lots, oldest first")
}

func TestE2E_NewOrderFormOpen(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, true),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "PRODUCTION ORDERS")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	waitForAll(t, tm, "NEW PRODUCTION ORDER", "PREVIEW", "Sponge base")

	tm.Send(tea.KeyMsg{Type: tea.KeyEscape})

	tm.Send(tea.KeyMsg{Type: tea.KeyF2})
	waitFor(t, tm, "PLANT OVERVIEW")
}

func TestE2E_CreateOrder(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, true),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "PRODUCTION ORDERS")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	waitFor(t, tm, "NEW PRODUCTION ORDER")

	// Last product in the list: White bread 500 g
	tm.Send(tea.KeyMsg{Type: tea.KeyLeft})
	waitFor(t, tm, "White bread 500 g")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	waitForAll(t, tm, "take a sample", "PLANNED")
}

func TestE2E_NarrowTerminal(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(50, 24))
	t.Cleanup(func() { tm.Quit() })

	waitForAll(t, tm, "PLANT OVERVIEW", "F10:Quit")

	tm.Send(tea.KeyMsg{Type: tea.KeyF3})
	waitFor(t, tm, "PRODUCTION ORDERS")
}

func TestE2E_WideTerminal(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(200, 50))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "PLANT OVERVIEW")

	tm.Send(tea.KeyMsg{Type: tea.KeyF4})
	waitFor(t, tm, "=== WAREHOUSE ===")
}

func TestE2E_StatusBarShowsKeyBindings(t *testing.T) {
	tm := teatest.NewTestModel(t, newE2EApp(t, false),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitForAll(t, tm, "[F1]Help", "[F3]Production", "[F4]Warehouse")
}
