package production

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/services/production"
	"github.com/osmo/osmo/internal/tui/components"
)

// OrderForm collects a product and a batch size, and shows the preview
// plan for the current choice so shortages are visible before saving.
type OrderForm struct {
	form    *components.Form
	product *components.Select
	batch   *components.Input
	styles  components.Styles

	// requested is the product/batch pair of the last preview request;
	// previews for any other pair are stale and dropped.
	requested  string
	plan       *production.Plan
	previewErr string
	shortages  []string
}

// NewOrderForm creates the new-order form over the given products.
func NewOrderForm(products []*models.FinishedProduct, defaultBatch int) *OrderForm {
	opts := make([]components.Option, len(products))
	for i, p := range products {
		opts[i] = components.Option{Label: p.Name, Value: p.ID}
	}

	f := &OrderForm{
		form:    components.NewForm("NEW PRODUCTION ORDER"),
		product: components.NewSelectOptions("Product", opts),
		batch: components.NewInput("Batch size").
			SetMode(components.InputInteger).
			SetMaxLength(6).
			SetWidth(8).
			SetRequired(true),
		styles: components.DefaultStyles(),
	}
	if defaultBatch > 0 {
		f.batch.SetValue(strconv.Itoa(defaultBatch))
	}
	f.form.AddField(f.product).AddField(f.batch)
	return f
}

// SetStyles applies a palette.
func (f *OrderForm) SetStyles(s components.Styles) {
	f.styles = s
	f.form.SetStyles(s)
	f.product.SetStyles(s)
	f.batch.SetStyles(s)
}

// HandleKey forwards a key to the form. Editing clears a previous
// submission error.
func (f *OrderForm) HandleKey(key string) {
	f.form.HandleKey(key)
	if !f.form.IsSubmitted() && !f.form.IsCancelled() {
		f.form.SetError("")
	}
}

// IsSubmitted reports whether the operator asked to save.
func (f *OrderForm) IsSubmitted() bool {
	return f.form.IsSubmitted()
}

// IsCancelled reports whether the operator left the form.
func (f *OrderForm) IsCancelled() bool {
	return f.form.IsCancelled()
}

// Values returns the chosen product and batch size.
func (f *OrderForm) Values() (productID string, batchSize int, err error) {
	productID = f.product.Value()
	if productID == "" {
		return "", 0, errors.New("no products defined")
	}
	batchSize, err = strconv.Atoi(strings.TrimSpace(f.batch.Value()))
	if err != nil || batchSize <= 0 {
		return "", 0, errors.New("batch size must be a positive whole number")
	}
	return productID, batchSize, nil
}

// PreviewRequest returns the pair to preview when it differs from the last
// request. It records the pair as requested.
func (f *OrderForm) PreviewRequest() (productID string, batchSize int, ok bool) {
	productID, batchSize, err := f.Values()
	if err != nil {
		f.requested = ""
		f.plan = nil
		f.previewErr = ""
		return "", 0, false
	}
	key := previewKey(productID, batchSize)
	if key == f.requested {
		return "", 0, false
	}
	f.requested = key
	return productID, batchSize, true
}

// SetPreview applies a preview result unless the inputs changed since it
// was requested.
func (f *OrderForm) SetPreview(productID string, batchSize int, plan *production.Plan, err error) {
	if previewKey(productID, batchSize) != f.requested {
		return
	}
	f.plan = plan
	f.previewErr = ""
	if err != nil {
		f.previewErr = err.Error()
	}
	f.shortages = nil
	if plan != nil {
		f.shortages = plan.Shortage.Messages()
	}
}

// Plan returns the preview for the current inputs, if any.
func (f *OrderForm) Plan() *production.Plan {
	return f.plan
}

// Reject reopens the form after a failed save. Shortages reported by the
// save replace the preview's.
func (f *OrderForm) Reject(err error) {
	f.form.Reopen()

	var shortage *production.ShortageError
	if errors.As(err, &shortage) {
		f.shortages = shortage.Report.Messages()
		f.form.SetError("insufficient stock")
		return
	}
	f.form.SetError(err.Error())
}

func previewKey(productID string, batchSize int) string {
	return productID + "/" + strconv.Itoa(batchSize)
}

// Render renders the form and the preview below it.
func (f *OrderForm) Render(width int) string {
	var b strings.Builder
	b.WriteString(f.form.RenderResponsive(width))
	b.WriteString("\n\n")
	b.WriteString(f.renderPreview())
	return b.String()
}

func (f *OrderForm) renderPreview() string {
	var b strings.Builder
	b.WriteString(f.styles.Header.Render("PREVIEW"))
	b.WriteString("\n")

	if f.previewErr != "" {
		b.WriteString(f.styles.Error.Render("  " + f.previewErr))
		return b.String()
	}
	if f.plan == nil {
		b.WriteString(f.styles.Muted.Render("  choose a product and batch size"))
		return b.String()
	}

	p := f.plan
	output := fmt.Sprintf("  Output: %d", p.Output)
	if p.UnitMass.IsPositive() {
		output += fmt.Sprintf(" x %s  (total mass %s)",
			models.FormatQuantity(p.UnitMass, models.UnitKilogram),
			models.FormatQuantity(p.TotalMass, models.UnitGram))
	}
	b.WriteString(f.styles.Value.Render(output))
	b.WriteString("\n")

	short := make(map[string]bool, len(p.Shortage.Shortages))
	for _, s := range p.Shortage.Shortages {
		short[s.Name] = true
	}

	for _, lp := range p.Lines {
		line := fmt.Sprintf("  %-22s need %-12s have %s",
			lp.Line.ComponentName,
			models.FormatQuantity(lp.Required, lp.Unit),
			models.FormatQuantity(lp.Available, lp.Unit))
		if short[lp.Line.ComponentName] {
			b.WriteString(f.styles.Error.Render(line))
		} else {
			b.WriteString(f.styles.Label.Render(line))
		}
		b.WriteString("\n")
		for _, a := range lp.Allocations {
			if !a.Quantity.IsPositive() {
				continue
			}
			b.WriteString(f.styles.Muted.Render(fmt.Sprintf("      lot %s (%s): %s",
				a.BatchNumber, a.ReceivedDate, models.FormatQuantity(a.Quantity, a.Unit))))
			b.WriteString("\n")
		}
	}

	if len(f.shortages) > 0 {
		b.WriteString("\n")
		b.WriteString(f.styles.Error.Bold(true).Render("SHORTAGES"))
		b.WriteString("\n")
		for _, s := range f.shortages {
			b.WriteString(f.styles.Error.Render("  " + s))
			b.WriteString("\n")
		}
	} else if p.Output <= 0 {
		b.WriteString(f.styles.Error.Render("  batch yields no whole package"))
		b.WriteString("\n")
	}

	return b.String()
}
