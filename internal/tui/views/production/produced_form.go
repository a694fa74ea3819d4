package production

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/tui/components"
)

// ProducedForm edits the actual output of an order.
type ProducedForm struct {
	order    *models.ProductionOrder
	form     *components.Form
	quantity *components.Input
	styles   components.Styles
}

// NewProducedForm opens the form for order, prefilled with the recorded
// output or, when nothing was recorded yet, the planned quantity.
func NewProducedForm(order *models.ProductionOrder) *ProducedForm {
	initial := order.ProducedQuantity
	if initial == 0 {
		initial = order.PlannedQuantity
	}

	f := &ProducedForm{
		order: order,
		form:  components.NewForm("SET PRODUCED QUANTITY"),
		quantity: components.NewInput("Produced").
			SetMode(components.InputInteger).
			SetMaxLength(9).
			SetWidth(10).
			SetRequired(true).
			SetValue(strconv.Itoa(initial)),
		styles: components.DefaultStyles(),
	}
	f.form.AddField(f.quantity)
	return f
}

// SetStyles applies a palette.
func (f *ProducedForm) SetStyles(s components.Styles) {
	f.styles = s
	f.form.SetStyles(s)
	f.quantity.SetStyles(s)
}

// Order returns the order being edited.
func (f *ProducedForm) Order() *models.ProductionOrder {
	return f.order
}

// HandleKey forwards a key to the form.
func (f *ProducedForm) HandleKey(key string) {
	f.form.HandleKey(key)
}

// IsSubmitted reports whether the operator asked to save.
func (f *ProducedForm) IsSubmitted() bool {
	return f.form.IsSubmitted()
}

// IsCancelled reports whether the operator left the form.
func (f *ProducedForm) IsCancelled() bool {
	return f.form.IsCancelled()
}

// Quantity parses the entered output.
func (f *ProducedForm) Quantity() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(f.quantity.Value()))
	if err != nil || n < 0 {
		return 0, errors.New("produced quantity must be a non-negative whole number")
	}
	return n, nil
}

// Reject reopens the form with an error.
func (f *ProducedForm) Reject(err error) {
	f.form.Reopen()
	f.form.SetError(err.Error())
}

// Render renders the order summary and the input.
func (f *ProducedForm) Render(width int) string {
	var b strings.Builder
	b.WriteString(f.form.RenderResponsive(width))
	b.WriteString("\n\n")
	b.WriteString(f.styles.Label.Render(fmt.Sprintf("%s, batch %d: planned %d, recorded %d",
		f.order.ProductName, f.order.BatchSize, f.order.PlannedQuantity, f.order.ProducedQuantity)))
	b.WriteString("\n")
	b.WriteString(f.styles.Muted.Render("Finished stock and packaging move by the difference."))
	return b.String()
}
