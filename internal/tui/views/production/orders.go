// Package production provides TUI views for production orders.
package production

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/tui/components"
	"github.com/osmo/osmo/internal/util"
)

// PageSize is the number of orders fetched per page.
const PageSize = 20

// OrderView lists production orders, newest first, and shows one order
// with its consumption log.
type OrderView struct {
	table      *components.Table
	orders     []*models.ProductionOrder
	detail     *models.ProductionOrder
	page       models.Pagination
	totalPages int
	loading    bool
	err        error
	styles     components.Styles
}

// NewOrderView creates an empty order list.
func NewOrderView() *OrderView {
	columns := []components.Column{
		{Title: "Created", Width: 16},
		{Title: "Product", Width: 24},
		{Title: "Batch", Width: 6, Align: lipgloss.Right},
		{Title: "Planned", Width: 8, Align: lipgloss.Right},
		{Title: "Produced", Width: 8, Align: lipgloss.Right},
		{Title: "Status", Width: 9},
		{Title: "Sample", Width: 6},
	}

	table := components.NewTable(columns)
	table.SetVisibleRows(PageSize)
	table.Focus(true)

	return &OrderView{
		table:   table,
		page:    models.Pagination{Page: 1, PageSize: PageSize},
		loading: true,
		styles:  components.DefaultStyles(),
	}
}

// SetStyles applies a palette.
func (v *OrderView) SetStyles(s components.Styles) {
	v.styles = s
	v.table.SetStyles(s)
}

// Page returns the page to fetch next.
func (v *OrderView) Page() models.Pagination {
	return v.page
}

// SetOrders replaces the list with a fetched page.
func (v *OrderView) SetOrders(list *models.OrderList) {
	v.loading = false
	v.err = nil
	v.orders = list.Orders
	v.totalPages = list.TotalPages
	if list.Page > 0 {
		v.page.Page = list.Page
	}

	rows := make([][]string, len(v.orders))
	for i, o := range v.orders {
		sample := "-"
		if o.SampleRequired {
			sample = "YES"
		}
		rows[i] = []string{
			o.CreatedAt.Format(util.DateTimeFormat),
			o.ProductName,
			strconv.Itoa(o.BatchSize),
			strconv.Itoa(o.PlannedQuantity),
			strconv.Itoa(o.ProducedQuantity),
			o.Status().String(),
			sample,
		}
	}

	v.table.SetRows(rows)
	v.table.SetPagination(list.Page, list.TotalPages, list.Total)
}

// SetError records a failed fetch.
func (v *OrderView) SetError(err error) {
	v.loading = false
	v.err = err
}

// SetDetail sets the order shown by RenderDetail.
func (v *OrderView) SetDetail(order *models.ProductionOrder) {
	v.detail = order
}

// Detail returns the order loaded for the detail screen.
func (v *OrderView) Detail() *models.ProductionOrder {
	return v.detail
}

// NextPage advances the page; it reports whether the page changed.
func (v *OrderView) NextPage() bool {
	if v.page.Page >= v.totalPages {
		return false
	}
	v.page.Page++
	return true
}

// PrevPage goes back one page; it reports whether the page changed.
func (v *OrderView) PrevPage() bool {
	if v.page.Page <= 1 {
		return false
	}
	v.page.Page--
	return true
}

// MoveUp moves the selection up.
func (v *OrderView) MoveUp() {
	v.table.MoveUp()
}

// MoveDown moves the selection down.
func (v *OrderView) MoveDown() {
	v.table.MoveDown()
}

// SelectedOrder returns the highlighted order.
func (v *OrderView) SelectedOrder() *models.ProductionOrder {
	idx := v.table.Selected()
	if idx >= 0 && idx < len(v.orders) {
		return v.orders[idx]
	}
	return nil
}

// Render renders the order list.
func (v *OrderView) Render(width, height int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("=== PRODUCTION ORDERS ==="))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	switch {
	case v.loading:
		b.WriteString(v.styles.Label.Render("Loading..."))
		b.WriteString("\n")
	case v.table.Empty():
		b.WriteString(v.styles.Label.Render("No production orders yet. Press n to plan one."))
		b.WriteString("\n")
	default:
		v.table.SetVisibleRows(min(PageSize, max(height-8, 3)))
		b.WriteString(v.table.Render())
	}

	b.WriteString("\n")
	if width < 60 {
		b.WriteString(v.styles.Help.Render("Enter:View n:New e:Produced d:Del"))
	} else {
		b.WriteString(v.styles.Help.Render("Up/Down:Select  Enter:Details  n:New order  e:Set produced  d:Delete  PgUp/Dn:Page"))
	}

	return b.String()
}

// RenderDetail renders an order header and its consumption log.
func (v *OrderView) RenderDetail(order *models.ProductionOrder, width int) string {
	labelWidth := 18
	if width < 60 {
		labelWidth = 12
	}
	label := v.styles.Label.Width(labelWidth)
	value := v.styles.Value

	if order == nil {
		return label.Render("No order selected")
	}

	var b strings.Builder
	row := func(name, val string) {
		b.WriteString(label.Render(name+":") + " " + value.Render(val) + "\n")
	}

	b.WriteString(v.styles.Title.Render("═══ PRODUCTION ORDER ═══"))
	b.WriteString("\n\n")

	row("Product", order.ProductName)
	row("Created", order.CreatedAt.Format(util.DateTimeFormat))
	row("Batch size", strconv.Itoa(order.BatchSize))
	row("Planned", strconv.Itoa(order.PlannedQuantity))
	row("Produced", strconv.Itoa(order.ProducedQuantity))
	row("Status", order.Status().String())
	if order.SampleRequired {
		b.WriteString(label.Render("Sample:") + " " + v.styles.Error.Render("REQUIRED (new lot combination)") + "\n")
	} else {
		row("Sample", "not required")
	}
	b.WriteString("\n")

	b.WriteString(v.styles.Header.Render("CONSUMPTION"))
	b.WriteString("\n")
	if len(order.Logs) == 0 {
		b.WriteString(v.styles.Muted.Render("  nothing consumed"))
		b.WriteString("\n")
	} else {
		logs := components.NewTable([]components.Column{
			{Title: "Source", Width: 22},
			{Title: "Lot", Width: 16},
			{Title: "Quantity", Width: 14, Align: lipgloss.Right},
		})
		logs.SetStyles(v.styles)
		logs.SetVisibleRows(len(order.Logs))
		rows := make([][]string, len(order.Logs))
		for i, l := range order.Logs {
			lot := l.BatchNumber
			if l.IsSubProduct() {
				lot = "sub-product"
			}
			rows[i] = []string{l.SourceName(), lot, models.FormatQuantity(l.QuantityConsumed, l.Unit)}
		}
		logs.SetRows(rows)
		b.WriteString(logs.Render())
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("Esc:Back  e:Set produced  d:Delete"))

	return b.String()
}
