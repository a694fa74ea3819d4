// Package warehouse provides TUI views for raw material stock and lots.
package warehouse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/tui/components"
	"github.com/osmo/osmo/internal/util"
)

// StockView lists materials with their on-hand totals, and the lots of one
// material in the order production consumes them.
type StockView struct {
	materials *components.Table
	stock     []models.MaterialStock
	loading   bool
	err       error

	lots         *components.Table
	lotMaterial  *models.MaterialStock
	batches      []*models.Batch
	showDepleted bool

	styles components.Styles
}

// NewStockView creates an empty warehouse view.
func NewStockView() *StockView {
	materials := components.NewTable([]components.Column{
		{Title: "Material", Width: 24},
		{Title: "Category", Width: 14},
		{Title: "On hand", Width: 14, Align: lipgloss.Right},
		{Title: "Lots", Width: 5, Align: lipgloss.Right},
		{Title: "Critical at", Width: 12, Align: lipgloss.Right},
		{Title: "Status", Width: 8},
	})
	materials.SetVisibleRows(20)
	materials.Focus(true)

	lots := components.NewTable([]components.Column{
		{Title: "#", Width: 3, Align: lipgloss.Right},
		{Title: "Lot", Width: 18},
		{Title: "Received", Width: 10},
		{Title: "On hand", Width: 14, Align: lipgloss.Right},
	})
	lots.SetVisibleRows(20)
	lots.Focus(true)

	return &StockView{
		materials: materials,
		lots:      lots,
		loading:   true,
		styles:    components.DefaultStyles(),
	}
}

// SetStyles applies a palette.
func (v *StockView) SetStyles(s components.Styles) {
	v.styles = s
	v.materials.SetStyles(s)
	v.lots.SetStyles(s)
}

// SetStock replaces the material list.
func (v *StockView) SetStock(stock []models.MaterialStock) {
	v.loading = false
	v.err = nil
	v.stock = stock

	rows := make([][]string, len(stock))
	for i, s := range stock {
		category := "-"
		if s.Material.Category != nil {
			category = s.Material.Category.Name
		}
		threshold := "-"
		if s.Material.CriticalThreshold.IsPositive() {
			threshold = models.FormatQuantity(s.Material.CriticalThreshold, s.Material.Unit)
		}
		status := "OK"
		if s.IsCritical() {
			status = "CRITICAL"
		}
		rows[i] = []string{
			s.Material.Name,
			category,
			models.FormatQuantity(s.OnHand, s.Material.Unit),
			strconv.Itoa(s.LotCount),
			threshold,
			status,
		}
	}
	v.materials.SetRows(rows)
}

// SetError records a failed fetch.
func (v *StockView) SetError(err error) {
	v.loading = false
	v.err = err
}

// MoveUp moves the material selection up.
func (v *StockView) MoveUp() {
	v.materials.MoveUp()
}

// MoveDown moves the material selection down.
func (v *StockView) MoveDown() {
	v.materials.MoveDown()
}

// SelectedMaterial returns the highlighted material.
func (v *StockView) SelectedMaterial() *models.MaterialStock {
	idx := v.materials.Selected()
	if idx >= 0 && idx < len(v.stock) {
		return &v.stock[idx]
	}
	return nil
}

// ShowDepleted reports whether empty lots are listed.
func (v *StockView) ShowDepleted() bool {
	return v.showDepleted
}

// ToggleDepleted flips whether empty lots are listed.
func (v *StockView) ToggleDepleted() {
	v.showDepleted = !v.showDepleted
}

// SetLots shows the lots of a material, already in FIFO order.
func (v *StockView) SetLots(material *models.MaterialStock, batches []*models.Batch) {
	v.lotMaterial = material
	v.batches = batches

	rows := make([][]string, len(batches))
	for i, b := range batches {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			b.BatchNumber,
			util.FormatDate(b.ReceivedDate),
			models.FormatQuantity(b.QuantityOnHand, b.Unit),
		}
	}
	v.lots.GoToTop()
	v.lots.SetRows(rows)
}

// LotsUp moves the lot selection up.
func (v *StockView) LotsUp() {
	v.lots.MoveUp()
}

// LotsDown moves the lot selection down.
func (v *StockView) LotsDown() {
	v.lots.MoveDown()
}

// Render renders the material list.
func (v *StockView) Render(width, height int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("=== WAREHOUSE ==="))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	switch {
	case v.loading:
		b.WriteString(v.styles.Label.Render("Loading..."))
		b.WriteString("\n")
	case v.materials.Empty():
		b.WriteString(v.styles.Label.Render("No raw materials defined."))
		b.WriteString("\n")
	default:
		v.materials.SetVisibleRows(max(height-8, 3))
		b.WriteString(v.materials.Render())
	}

	b.WriteString("\n")
	if width < 60 {
		b.WriteString(v.styles.Help.Render("Enter:Lots r:Refresh"))
	} else {
		b.WriteString(v.styles.Help.Render("Up/Down:Select  Enter:Lots (FIFO order)  r:Refresh"))
	}
	return b.String()
}

// RenderLots renders the lots of the material chosen with SetLots.
func (v *StockView) RenderLots(width, height int) string {
	if v.lotMaterial == nil {
		return v.styles.Label.Render("No material selected")
	}

	var b strings.Builder
	m := v.lotMaterial.Material

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("═══ LOTS: %s ═══", strings.ToUpper(m.Name))))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Label.Render("On hand: "))
	b.WriteString(v.styles.Value.Render(models.FormatQuantity(v.lotMaterial.OnHand, m.Unit)))
	if v.lotMaterial.IsCritical() {
		b.WriteString("  ")
		b.WriteString(v.styles.Error.Render("CRITICAL"))
	}
	b.WriteString("\n")
	scope := "lots with stock, oldest first"
	if v.showDepleted {
		scope = "all lots, oldest first"
	}
	b.WriteString(v.styles.Muted.Render(scope))
	b.WriteString("\n\n")

	if v.lots.Empty() {
		b.WriteString(v.styles.Label.Render("No lots."))
		b.WriteString("\n")
	} else {
		v.lots.SetVisibleRows(max(height-10, 3))
		b.WriteString(v.lots.Render())
	}

	b.WriteString("\n")
	if width < 60 {
		b.WriteString(v.styles.Help.Render("Esc:Back a:All lots"))
	} else {
		b.WriteString(v.styles.Help.Render("Esc:Back  Up/Down:Select  a:Toggle depleted lots"))
	}
	return b.String()
}
