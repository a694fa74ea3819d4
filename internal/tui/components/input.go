package components

import (
	"fmt"
	"strings"
)

// defaultLabelWidth is the label column used by Render.
const defaultLabelWidth = 16

// InputMode restricts what an Input accepts.
type InputMode int

const (
	// InputText accepts any printable character.
	InputText InputMode = iota
	// InputInteger accepts digits only.
	InputInteger
	// InputDecimal accepts digits and a single decimal point.
	InputDecimal
)

// Input is a single-line text input.
type Input struct {
	label       string
	value       string
	placeholder string
	width       int
	focused     bool
	cursorPos   int
	maxLength   int
	required    bool
	mode        InputMode
	err         string
	styles      Styles
}

// NewInput creates a new input field.
func NewInput(label string) *Input {
	return &Input{
		label:     label,
		width:     20,
		maxLength: 100,
		styles:    DefaultStyles(),
	}
}

// SetValue sets the input value.
func (i *Input) SetValue(v string) *Input {
	i.value = v
	i.cursorPos = len(v)
	return i
}

// SetPlaceholder sets the placeholder text.
func (i *Input) SetPlaceholder(p string) *Input {
	i.placeholder = p
	return i
}

// SetWidth sets the input width.
func (i *Input) SetWidth(w int) *Input {
	i.width = w
	return i
}

// SetMaxLength sets the maximum input length.
func (i *Input) SetMaxLength(m int) *Input {
	i.maxLength = m
	return i
}

// SetRequired marks the field as required.
func (i *Input) SetRequired(r bool) *Input {
	i.required = r
	return i
}

// SetMode restricts accepted characters.
func (i *Input) SetMode(m InputMode) *Input {
	i.mode = m
	return i
}

// SetStyles applies a palette.
func (i *Input) SetStyles(s Styles) {
	i.styles = s
}

// SetError sets an error message.
func (i *Input) SetError(e string) *Input {
	i.err = e
	return i
}

// Focus sets the focus state.
func (i *Input) Focus(focused bool) {
	i.focused = focused
	if focused && i.cursorPos > len(i.value) {
		i.cursorPos = len(i.value)
	}
}

// IsFocused returns the focus state.
func (i *Input) IsFocused() bool {
	return i.focused
}

// Value returns the current value.
func (i *Input) Value() string {
	return i.value
}

// HandleKey handles a key press.
func (i *Input) HandleKey(key string) {
	if !i.focused {
		return
	}

	switch key {
	case "backspace":
		if i.cursorPos > 0 {
			i.value = i.value[:i.cursorPos-1] + i.value[i.cursorPos:]
			i.cursorPos--
		}
	case "delete":
		if i.cursorPos < len(i.value) {
			i.value = i.value[:i.cursorPos] + i.value[i.cursorPos+1:]
		}
	case "left":
		if i.cursorPos > 0 {
			i.cursorPos--
		}
	case "right":
		if i.cursorPos < len(i.value) {
			i.cursorPos++
		}
	case "home", "ctrl+a":
		i.cursorPos = 0
	case "end", "ctrl+e":
		i.cursorPos = len(i.value)
	default:
		if len(key) == 1 && len(i.value) < i.maxLength && i.accepts(key[0]) {
			i.value = i.value[:i.cursorPos] + key + i.value[i.cursorPos:]
			i.cursorPos++
		}
	}
}

func (i *Input) accepts(c byte) bool {
	switch i.mode {
	case InputInteger:
		return c >= '0' && c <= '9'
	case InputDecimal:
		if c == '.' {
			return !strings.Contains(i.value, ".")
		}
		return c >= '0' && c <= '9'
	default:
		return c >= ' ' && c <= '~'
	}
}

// Validate validates the input.
func (i *Input) Validate() bool {
	if i.required && strings.TrimSpace(i.value) == "" {
		i.err = "Required"
		return false
	}
	i.err = ""
	return true
}

// Render renders the input with the default label column.
func (i *Input) Render() string {
	return i.RenderWithLabelWidth(defaultLabelWidth)
}

// RenderWithLabelWidth renders the input with a label column of the given
// width. Zero hides the label.
func (i *Input) RenderWithLabelWidth(labelWidth int) string {
	var display string
	switch {
	case i.value == "" && i.placeholder != "" && !i.focused:
		display = i.styles.Muted.Render(i.placeholder)
	case i.focused:
		display = i.styles.Focus.Render(i.value[:i.cursorPos] + "_" + i.value[i.cursorPos:])
	default:
		display = i.styles.Value.Render(i.value)
	}

	shown := len(i.value)
	if i.value == "" && !i.focused {
		shown = len(i.placeholder)
	}
	if i.focused {
		shown++
	}
	if shown < i.width {
		display += strings.Repeat(" ", i.width-shown)
	}

	result := display
	if labelWidth > 0 {
		label := i.label
		if i.required {
			label += "*"
		}
		result = i.styles.Label.Width(labelWidth).Render(label+":") + " " + display
	}

	if i.err != "" {
		result += " " + i.styles.Error.Render(i.err)
	}
	return result
}

// Option is one choice of a Select.
type Option struct {
	Label string
	Value string
}

// Select is a single-choice input cycled with left and right.
type Select struct {
	label    string
	options  []Option
	selected int
	focused  bool
	styles   Styles
}

// NewSelect creates a select whose values equal their labels.
func NewSelect(label string, options []string) *Select {
	opts := make([]Option, len(options))
	for i, o := range options {
		opts[i] = Option{Label: o, Value: o}
	}
	return NewSelectOptions(label, opts)
}

// NewSelectOptions creates a select over labelled values.
func NewSelectOptions(label string, options []Option) *Select {
	return &Select{
		label:   label,
		options: options,
		styles:  DefaultStyles(),
	}
}

// SetSelected sets the selected index. Out of range indexes are ignored.
func (s *Select) SetSelected(idx int) *Select {
	if idx >= 0 && idx < len(s.options) {
		s.selected = idx
	}
	return s
}

// SetStyles applies a palette.
func (s *Select) SetStyles(st Styles) {
	s.styles = st
}

// Focus sets the focus state.
func (s *Select) Focus(focused bool) {
	s.focused = focused
}

// IsFocused returns the focus state.
func (s *Select) IsFocused() bool {
	return s.focused
}

// Value returns the selected value.
func (s *Select) Value() string {
	if s.selected >= 0 && s.selected < len(s.options) {
		return s.options[s.selected].Value
	}
	return ""
}

// SelectedLabel returns the selected option's label.
func (s *Select) SelectedLabel() string {
	if s.selected >= 0 && s.selected < len(s.options) {
		return s.options[s.selected].Label
	}
	return ""
}

// SelectedIndex returns the selected index.
func (s *Select) SelectedIndex() int {
	return s.selected
}

// HandleKey handles a key press.
func (s *Select) HandleKey(key string) {
	if !s.focused || len(s.options) == 0 {
		return
	}

	switch key {
	case "left", "h":
		s.selected = (s.selected - 1 + len(s.options)) % len(s.options)
	case "right", "l", " ":
		s.selected = (s.selected + 1) % len(s.options)
	}
}

// Render renders the select with the default label column.
func (s *Select) Render() string {
	return s.RenderWithLabelWidth(defaultLabelWidth)
}

// RenderWithLabelWidth shows only the current choice between arrows, which
// keeps long catalogues on one line.
func (s *Select) RenderWithLabelWidth(labelWidth int) string {
	var b strings.Builder
	if labelWidth > 0 {
		b.WriteString(s.styles.Label.Width(labelWidth).Render(s.label + ":"))
		b.WriteString(" ")
	}

	if len(s.options) == 0 {
		b.WriteString(s.styles.Muted.Render("(none)"))
		return b.String()
	}

	current := fmt.Sprintf("%s (%d/%d)", s.SelectedLabel(), s.selected+1, len(s.options))
	if s.focused {
		b.WriteString(s.styles.Focus.Bold(true).Render("< " + current + " >"))
	} else {
		b.WriteString(s.styles.Value.Render("  " + current))
	}
	return b.String()
}

// FormField is a focusable form component.
type FormField interface {
	Focus(bool)
	IsFocused() bool
	HandleKey(string)
	Render() string
}

var (
	_ FormField = (*Input)(nil)
	_ FormField = (*Select)(nil)
)

// Form is a vertical list of fields with tab navigation.
type Form struct {
	title      string
	fields     []FormField
	focusIndex int
	submitted  bool
	cancelled  bool
	err        string
	styles     Styles
}

// NewForm creates a new form.
func NewForm(title string) *Form {
	return &Form{
		title:  title,
		styles: DefaultStyles(),
	}
}

// SetStyles applies a palette to the form frame.
func (f *Form) SetStyles(s Styles) {
	f.styles = s
}

// AddField adds a field to the form. The first field gets focus.
func (f *Form) AddField(field FormField) *Form {
	f.fields = append(f.fields, field)
	if len(f.fields) == 1 {
		field.Focus(true)
	}
	return f
}

// HandleKey handles form navigation and forwards other keys to the
// focused field.
func (f *Form) HandleKey(key string) {
	switch key {
	case "tab", "down":
		f.nextField()
	case "shift+tab", "up":
		f.prevField()
	case "ctrl+s":
		f.submitted = true
	case "esc":
		f.cancelled = true
	case "enter":
		if f.focusIndex == len(f.fields)-1 {
			f.submitted = true
		} else {
			f.nextField()
		}
	default:
		if f.focusIndex < len(f.fields) {
			f.fields[f.focusIndex].HandleKey(key)
		}
	}
}

func (f *Form) nextField() {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focusIndex].Focus(false)
	f.focusIndex = (f.focusIndex + 1) % len(f.fields)
	f.fields[f.focusIndex].Focus(true)
}

func (f *Form) prevField() {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focusIndex].Focus(false)
	f.focusIndex = (f.focusIndex - 1 + len(f.fields)) % len(f.fields)
	f.fields[f.focusIndex].Focus(true)
}

// IsSubmitted returns true if form was submitted.
func (f *Form) IsSubmitted() bool {
	return f.submitted
}

// IsCancelled returns true if form was cancelled.
func (f *Form) IsCancelled() bool {
	return f.cancelled
}

// Reopen clears the submitted flag so a rejected submission can be
// corrected and sent again.
func (f *Form) Reopen() {
	f.submitted = false
}

// SetError sets an error message.
func (f *Form) SetError(err string) {
	f.err = err
}

// Err returns the current error message.
func (f *Form) Err() string {
	return f.err
}

// Render renders the form for a wide terminal.
func (f *Form) Render() string {
	return f.RenderResponsive(0)
}

// RenderResponsive renders the form with help text sized to width.
// Zero means unconstrained.
func (f *Form) RenderResponsive(width int) string {
	var b strings.Builder

	b.WriteString(f.styles.Title.Render(fmt.Sprintf("=== %s ===", f.title)))
	b.WriteString("\n\n")

	for _, field := range f.fields {
		b.WriteString(field.Render())
		b.WriteString("\n")
	}

	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(f.styles.Error.Render("Error: " + f.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if width > 0 && width < 60 {
		b.WriteString(f.styles.Help.Render("Tab:Next ^S:Save Esc:Cancel"))
	} else {
		b.WriteString(f.styles.Help.Render("Tab/Down:Next  Shift+Tab/Up:Prev  Ctrl+S:Save  Esc:Cancel"))
	}

	return b.String()
}
