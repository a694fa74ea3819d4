package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/config"
	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/services/activity"
	"github.com/osmo/osmo/internal/services/inventory"
	"github.com/osmo/osmo/internal/services/production"
	prodviews "github.com/osmo/osmo/internal/tui/views/production"
	"github.com/osmo/osmo/internal/tui/views/warehouse"
	"github.com/osmo/osmo/internal/util"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// MaxContentWidth is the maximum width for content display
const MaxContentWidth = 120

// Module represents a view module in the application.
type Module string

const (
	ModuleDashboard  Module = "dashboard"
	ModuleProduction Module = "production"
	ModuleWarehouse  Module = "warehouse"
	ModuleHelp       Module = "help"

	moduleQuit Module = "quit"
)

// dashboardRows caps each dashboard panel.
const dashboardRows = 8

// App is the main Bubble Tea application model.
type App struct {
	ctx context.Context

	// Dependencies
	db     *database.DB
	config *config.Config
	clock  util.Clock

	// Services
	productionSvc *production.Service
	inventorySvc  *inventory.Service
	activitySvc   *activity.Service

	// Views
	orderView    *prodviews.OrderView
	orderForm    *prodviews.OrderForm
	producedForm *prodviews.ProducedForm
	stockView    *warehouse.StockView

	// UI state
	theme         *Theme
	keys          KeyMap
	width         int
	height        int
	ready         bool
	quitting      bool
	showConfirm   bool
	confirmDelete *models.ProductionOrder

	// Current view
	currentModule  Module
	previousModule Module
	showDetail     bool // order detail or lot list instead of the list

	alerts []Alert

	// Dashboard data
	stock        []models.MaterialStock
	critical     []models.MaterialStock
	recentOrders []*models.ProductionOrder
	recentLog    []*models.ActivityEntry
}

// Alert represents a status line message.
type Alert struct {
	Level   AlertLevel
	Message string
	Time    time.Time
}

// AlertLevel indicates the severity of an alert.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

type tickMsg time.Time

type dashboardLoadedMsg struct {
	stock    []models.MaterialStock
	critical []models.MaterialStock
	orders   []*models.ProductionOrder
	activity []*models.ActivityEntry
	err      error
}

type ordersLoadedMsg struct {
	list *models.OrderList
	err  error
}

type orderDetailMsg struct {
	order *models.ProductionOrder
	err   error
}

type formProductsMsg struct {
	products []*models.FinishedProduct
	err      error
}

type previewMsg struct {
	productID string
	batchSize int
	plan      *production.Plan
	err       error
}

type orderSavedMsg struct {
	order *models.ProductionOrder
	err   error
}

type producedSavedMsg struct {
	order *models.ProductionOrder
	err   error
}

type orderDeletedMsg struct {
	err error
}

type stockLoadedMsg struct {
	stock []models.MaterialStock
	err   error
}

type lotsLoadedMsg struct {
	material *models.MaterialStock
	batches  []*models.Batch
	err      error
}

// New creates a new App instance.
func New(db *database.DB, cfg *config.Config, clock util.Clock) *App {
	if clock == nil {
		clock = util.SystemClock{}
	}

	activitySvc := activity.NewService(db, clock)
	tolerance, err := cfg.Production.ToleranceDecimal()
	if err != nil {
		// Validate rejects this at load time.
		tolerance, _ = config.Default().Production.ToleranceDecimal()
	}

	theme := NewTheme(cfg.Display.ColorScheme)
	styles := theme.ComponentStyles()

	orderView := prodviews.NewOrderView()
	orderView.SetStyles(styles)
	stockView := warehouse.NewStockView()
	stockView.SetStyles(styles)

	return &App{
		ctx:    context.Background(),
		db:     db,
		config: cfg,
		clock:  clock,
		productionSvc: production.NewService(db, production.Options{
			Tolerance: tolerance,
			Clock:     clock,
			Recorder:  activitySvc,
		}),
		inventorySvc: inventory.NewService(db, inventory.Options{
			Clock:    clock,
			Recorder: activitySvc,
		}),
		activitySvc:   activitySvc,
		orderView:     orderView,
		stockView:     stockView,
		theme:         theme,
		keys:          DefaultKeyMap(),
		currentModule: ModuleDashboard,
		alerts:        []Alert{},
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(tickCmd(), a.loadDashboard())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ============================================================================
// COMMANDS
// ============================================================================

// Commands capture their arguments up front and hand results back as
// messages; views are only touched from Update.

func (a *App) loadDashboard() tea.Cmd {
	ctx, recent := a.ctx, a.config.Production.RecentOrders
	return func() tea.Msg {
		var msg dashboardLoadedMsg
		if msg.stock, msg.err = a.inventorySvc.StockLevels(ctx); msg.err != nil {
			return msg
		}
		if msg.critical, msg.err = a.inventorySvc.CriticalStock(ctx); msg.err != nil {
			return msg
		}
		if msg.orders, msg.err = a.productionSvc.RecentOrders(ctx, recent); msg.err != nil {
			return msg
		}
		msg.activity, msg.err = a.activitySvc.Recent(ctx, dashboardRows)
		return msg
	}
}

func (a *App) loadOrders() tea.Cmd {
	ctx, page := a.ctx, a.orderView.Page()
	return func() tea.Msg {
		list, err := a.productionSvc.ListOrders(ctx, models.OrderFilter{}, page)
		return ordersLoadedMsg{list: list, err: err}
	}
}

func (a *App) loadOrderDetail(id string) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		order, err := a.productionSvc.GetOrder(ctx, id)
		return orderDetailMsg{order: order, err: err}
	}
}

func (a *App) loadFormProducts() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		products, err := a.inventorySvc.ListProducts(ctx, models.ProductFilter{})
		return formProductsMsg{products: products, err: err}
	}
}

func (a *App) previewOrder(productID string, batchSize int) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		plan, err := a.productionSvc.PreviewOrder(ctx, productID, batchSize)
		return previewMsg{productID: productID, batchSize: batchSize, plan: plan, err: err}
	}
}

func (a *App) createOrder(productID string, batchSize int) tea.Cmd {
	ctx, actor := a.ctx, a.config.Plant.Operator
	return func() tea.Msg {
		order, err := a.productionSvc.CreateOrder(ctx, production.CreateOrderInput{
			ProductID: productID,
			BatchSize: batchSize,
			Actor:     actor,
		})
		return orderSavedMsg{order: order, err: err}
	}
}

func (a *App) setProduced(orderID string, quantity int) tea.Cmd {
	ctx, actor := a.ctx, a.config.Plant.Operator
	return func() tea.Msg {
		order, err := a.productionSvc.SetProducedQuantity(ctx, production.SetProducedInput{
			OrderID:          orderID,
			ProducedQuantity: quantity,
			Actor:            actor,
		})
		return producedSavedMsg{order: order, err: err}
	}
}

func (a *App) deleteOrder(orderID string) tea.Cmd {
	ctx, actor := a.ctx, a.config.Plant.Operator
	return func() tea.Msg {
		err := a.productionSvc.DeleteOrder(ctx, production.DeleteOrderInput{OrderID: orderID, Actor: actor})
		return orderDeletedMsg{err: err}
	}
}

func (a *App) loadStock() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		stock, err := a.inventorySvc.StockLevels(ctx)
		return stockLoadedMsg{stock: stock, err: err}
	}
}

func (a *App) loadLots(material models.MaterialStock) tea.Cmd {
	ctx, onlyAvailable := a.ctx, !a.stockView.ShowDepleted()
	return func() tea.Msg {
		batches, err := a.inventorySvc.ListBatches(ctx, material.Material.ID, onlyAvailable)
		return lotsLoadedMsg{material: &material, batches: batches, err: err}
	}
}

// ============================================================================
// UPDATE
// ============================================================================

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case tickMsg:
		return a, tickCmd()

	case dashboardLoadedMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to load dashboard: "+msg.err.Error())
			return a, nil
		}
		a.stock = msg.stock
		a.critical = msg.critical
		a.recentOrders = msg.orders
		a.recentLog = msg.activity
		a.clearAlerts(AlertCritical)
		for i := len(msg.critical) - 1; i >= 0; i-- {
			s := msg.critical[i]
			a.AddAlert(AlertCritical, fmt.Sprintf("%s low: %s on hand",
				s.Material.Name, models.FormatQuantity(s.OnHand, s.Material.Unit)))
		}
		return a, nil

	case ordersLoadedMsg:
		if msg.err != nil {
			a.orderView.SetError(msg.err)
			a.AddAlert(AlertWarning, "Failed to load orders: "+msg.err.Error())
			return a, nil
		}
		a.orderView.SetOrders(msg.list)
		return a, nil

	case orderDetailMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to load order: "+msg.err.Error())
			return a, nil
		}
		a.orderView.SetDetail(msg.order)
		a.showDetail = true
		return a, nil

	case formProductsMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to load products: "+msg.err.Error())
			return a, nil
		}
		if len(msg.products) == 0 {
			a.AddAlert(AlertWarning, "No finished products defined")
			return a, nil
		}
		a.orderForm = prodviews.NewOrderForm(msg.products, a.config.Production.DefaultBatchSize)
		a.orderForm.SetStyles(a.theme.ComponentStyles())
		return a, a.requestPreview()

	case previewMsg:
		if a.orderForm != nil {
			a.orderForm.SetPreview(msg.productID, msg.batchSize, msg.plan, msg.err)
		}
		return a, nil

	case orderSavedMsg:
		if msg.err != nil {
			if a.orderForm != nil {
				a.orderForm.Reject(msg.err)
			}
			return a, nil
		}
		a.orderForm = nil
		a.AddAlert(AlertInfo, fmt.Sprintf("Planned %s: %d units", msg.order.ProductName, msg.order.PlannedQuantity))
		if msg.order.SampleRequired {
			a.AddAlert(AlertWarning, "New lot combination for "+msg.order.ProductName+": take a sample")
		}
		return a, tea.Batch(a.loadOrders(), a.loadDashboard())

	case producedSavedMsg:
		if msg.err != nil {
			if a.producedForm != nil {
				a.producedForm.Reject(msg.err)
			}
			return a, nil
		}
		a.producedForm = nil
		a.AddAlert(AlertInfo, fmt.Sprintf("Produced quantity set to %d", msg.order.ProducedQuantity))
		cmds := []tea.Cmd{a.loadOrders(), a.loadDashboard()}
		if a.showDetail {
			cmds = append(cmds, a.loadOrderDetail(msg.order.ID))
		}
		return a, tea.Batch(cmds...)

	case orderDeletedMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to delete order: "+msg.err.Error())
			return a, nil
		}
		a.showDetail = false
		a.orderView.SetDetail(nil)
		a.AddAlert(AlertInfo, "Order deleted, stock restored")
		return a, tea.Batch(a.loadOrders(), a.loadDashboard())

	case stockLoadedMsg:
		if msg.err != nil {
			a.stockView.SetError(msg.err)
			return a, nil
		}
		a.stockView.SetStock(msg.stock)
		return a, nil

	case lotsLoadedMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to load lots: "+msg.err.Error())
			return a, nil
		}
		a.stockView.SetLots(msg.material, msg.batches)
		a.showDetail = true
		return a, nil
	}

	return a, nil
}

// handleKeyPress processes key press events.
func (a *App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modals take priority
	if a.showConfirm {
		switch msg.String() {
		case "y", "Y", "enter":
			a.quitting = true
			return a, tea.Quit
		case "n", "N", "esc":
			a.showConfirm = false
		}
		return a, nil
	}

	if a.confirmDelete != nil {
		order := a.confirmDelete
		switch msg.String() {
		case "y", "Y":
			a.confirmDelete = nil
			return a, a.deleteOrder(order.ID)
		case "n", "N", "esc":
			a.confirmDelete = nil
		}
		return a, nil
	}

	// Forms take all input
	if a.currentModule == ModuleProduction && a.orderForm != nil {
		return a.handleOrderFormKeys(msg)
	}
	if a.currentModule == ModuleProduction && a.producedForm != nil {
		return a.handleProducedFormKeys(msg)
	}

	if a.keys.IsQuit(msg) {
		a.showConfirm = true
		return a, nil
	}

	if a.keys.IsFunctionKey(msg) {
		return a.switchModule(a.keys.FunctionKeyModule(msg))
	}

	if a.keys.Back.Matches(msg) {
		if a.showDetail {
			a.showDetail = false
			return a, nil
		}
		if a.currentModule == ModuleHelp && a.previousModule != "" {
			a.currentModule = a.previousModule
			a.previousModule = ""
		}
		return a, nil
	}

	switch a.currentModule {
	case ModuleDashboard:
		if a.keys.Refresh.Matches(msg) {
			return a, a.loadDashboard()
		}
	case ModuleProduction:
		return a.handleProductionKeys(msg)
	case ModuleWarehouse:
		return a.handleWarehouseKeys(msg)
	}

	return a, nil
}

func (a *App) switchModule(module Module) (tea.Model, tea.Cmd) {
	switch module {
	case moduleQuit:
		a.showConfirm = true
	case ModuleHelp:
		if a.currentModule != ModuleHelp {
			a.previousModule = a.currentModule
		}
		a.currentModule = ModuleHelp
	case ModuleDashboard:
		a.currentModule = ModuleDashboard
		a.showDetail = false
		return a, a.loadDashboard()
	case ModuleProduction:
		a.currentModule = ModuleProduction
		a.showDetail = false
		return a, a.loadOrders()
	case ModuleWarehouse:
		a.currentModule = ModuleWarehouse
		a.showDetail = false
		return a, a.loadStock()
	}
	return a, nil
}

// handleProductionKeys handles the order list and order detail.
func (a *App) handleProductionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	target := a.orderView.SelectedOrder()
	if a.showDetail {
		target = a.orderView.Detail()
	}

	switch {
	case a.keys.NewOrder.Matches(msg):
		return a, a.loadFormProducts()
	case a.keys.SetProduced.Matches(msg):
		if target != nil {
			a.producedForm = prodviews.NewProducedForm(target)
			a.producedForm.SetStyles(a.theme.ComponentStyles())
		}
		return a, nil
	case a.keys.DeleteOrder.Matches(msg):
		a.confirmDelete = target
		return a, nil
	case a.keys.Refresh.Matches(msg):
		return a, a.loadOrders()
	}

	if a.showDetail {
		return a, nil
	}

	switch {
	case a.keys.Up.Matches(msg):
		a.orderView.MoveUp()
	case a.keys.Down.Matches(msg):
		a.orderView.MoveDown()
	case a.keys.Select.Matches(msg):
		if order := a.orderView.SelectedOrder(); order != nil {
			return a, a.loadOrderDetail(order.ID)
		}
	case a.keys.PageUp.Matches(msg):
		if a.orderView.PrevPage() {
			return a, a.loadOrders()
		}
	case a.keys.PageDown.Matches(msg):
		if a.orderView.NextPage() {
			return a, a.loadOrders()
		}
	}
	return a, nil
}

func (a *App) handleOrderFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.orderForm.HandleKey(msg.String())

	if a.orderForm.IsCancelled() {
		a.orderForm = nil
		return a, nil
	}

	if a.orderForm.IsSubmitted() {
		productID, batchSize, err := a.orderForm.Values()
		if err != nil {
			a.orderForm.Reject(err)
			return a, nil
		}
		return a, a.createOrder(productID, batchSize)
	}

	return a, a.requestPreview()
}

func (a *App) requestPreview() tea.Cmd {
	productID, batchSize, ok := a.orderForm.PreviewRequest()
	if !ok {
		return nil
	}
	return a.previewOrder(productID, batchSize)
}

func (a *App) handleProducedFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.producedForm.HandleKey(msg.String())

	if a.producedForm.IsCancelled() {
		a.producedForm = nil
		return a, nil
	}

	if a.producedForm.IsSubmitted() {
		quantity, err := a.producedForm.Quantity()
		if err != nil {
			a.producedForm.Reject(err)
			return a, nil
		}
		return a, a.setProduced(a.producedForm.Order().ID, quantity)
	}
	return a, nil
}

// handleWarehouseKeys handles the material list and the lot list.
func (a *App) handleWarehouseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.showDetail {
		switch {
		case a.keys.Up.Matches(msg):
			a.stockView.LotsUp()
		case a.keys.Down.Matches(msg):
			a.stockView.LotsDown()
		case a.keys.ToggleDepleted.Matches(msg):
			a.stockView.ToggleDepleted()
			if m := a.stockView.SelectedMaterial(); m != nil {
				return a, a.loadLots(*m)
			}
		}
		return a, nil
	}

	switch {
	case a.keys.Up.Matches(msg):
		a.stockView.MoveUp()
	case a.keys.Down.Matches(msg):
		a.stockView.MoveDown()
	case a.keys.Select.Matches(msg):
		if m := a.stockView.SelectedMaterial(); m != nil {
			return a, a.loadLots(*m)
		}
	case a.keys.Refresh.Matches(msg):
		return a, a.loadStock()
	}
	return a, nil
}

// ============================================================================
// VIEW
// ============================================================================

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	if a.quitting {
		return a.theme.Title.Render("OSMO shutting down...")
	}

	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(a.renderAlertBar())
	b.WriteString("\n")

	contentHeight := ContentHeight(a.height, 6)
	switch {
	case a.showConfirm:
		b.WriteString(a.renderDialog(contentHeight, "CONFIRM EXIT", "Are you sure you want to exit?"))
	case a.confirmDelete != nil:
		b.WriteString(a.renderDialog(contentHeight, "DELETE ORDER",
			fmt.Sprintf("Delete the %s order (%d planned) and return its stock?",
				a.confirmDelete.ProductName, a.confirmDelete.PlannedQuantity)))
	default:
		b.WriteString(a.renderContent(contentHeight))
	}

	b.WriteString("\n")
	b.WriteString(a.renderFooter())

	return b.String()
}

func (a *App) renderHeader() string {
	title := fmt.Sprintf("OSMO PRODUCTION & WAREHOUSE v%s", Version)
	info := a.config.Plant.Name
	if n := len(a.critical); n > 0 {
		info = fmt.Sprintf("%s | CRITICAL: %d", info, n)
	}

	spacing := max(a.width-lipgloss.Width(title)-lipgloss.Width(info)-2, 1)
	header := a.theme.Header.Render(title) +
		strings.Repeat(" ", spacing) +
		a.theme.Header.Render(info)

	return header + "\n" + a.theme.DrawDoubleLine(a.width)
}

func (a *App) renderAlertBar() string {
	timeStr := a.clock.Now().Format(a.config.Display.DateFormat + " " + a.config.Display.TimeFormat)

	var alertText string
	if len(a.alerts) > 0 {
		alert := a.alerts[0]
		switch alert.Level {
		case AlertCritical:
			alertText = a.theme.AlertCrit.Render("CRITICAL: " + alert.Message)
		case AlertWarning:
			alertText = a.theme.AlertWarn.Render("WARNING: " + alert.Message)
		default:
			alertText = a.theme.Alert.Render("INFO: " + alert.Message)
		}
	} else {
		alertText = a.theme.Muted.Render("All stock above critical levels")
	}

	return a.theme.Value.Render(timeStr) + a.theme.StatusDivider.Render() + alertText
}

func (a *App) contentWidth() int {
	return min(a.width, MaxContentWidth)
}

func (a *App) renderContent(height int) string {
	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Top)

	return style.Render(lipgloss.NewStyle().Width(a.contentWidth()).Render(a.moduleContent(height)))
}

func (a *App) moduleContent(height int) string {
	width := a.contentWidth()
	switch a.currentModule {
	case ModuleDashboard:
		return a.renderDashboard(width)
	case ModuleProduction:
		switch {
		case a.orderForm != nil:
			return a.orderForm.Render(width)
		case a.producedForm != nil:
			return a.producedForm.Render(width)
		case a.showDetail:
			return a.orderView.RenderDetail(a.orderView.Detail(), width)
		}
		return a.orderView.Render(width, height)
	case ModuleWarehouse:
		if a.showDetail {
			return a.stockView.RenderLots(width, height)
		}
		return a.stockView.Render(width, height)
	case ModuleHelp:
		return a.renderHelp()
	}
	return ""
}

func (a *App) renderDashboard(width int) string {
	var b strings.Builder

	b.WriteString(a.theme.Title.Render("═══ PLANT OVERVIEW ═══"))
	b.WriteString("\n\n")

	half := (width - 2) / 2
	if GetBreakpoint(width) == BreakpointNarrow {
		half = width
	}

	top := SideBySide(
		a.theme.Panel("STOCK LEVELS", a.stockPanel(half-4), half),
		a.theme.Panel("CRITICAL STOCK", a.criticalPanel(), half),
		width, 2)
	bottom := SideBySide(
		a.theme.Panel("RECENT ORDERS", a.ordersPanel(half-4), half),
		a.theme.Panel("ACTIVITY", a.activityPanel(half-4), half),
		width, 2)

	b.WriteString(top)
	b.WriteString("\n")
	b.WriteString(bottom)
	b.WriteString("\n")
	b.WriteString(a.theme.Muted.Render("r:Refresh"))
	return b.String()
}

func (a *App) stockPanel(width int) string {
	if len(a.stock) == 0 {
		return a.theme.Muted.Render("No raw materials defined")
	}

	nameWidth := 14
	barWidth := max(width-nameWidth-14, 6)
	lines := make([]string, 0, dashboardRows)
	for i, s := range a.stock {
		if i == dashboardRows {
			lines = append(lines, a.theme.Muted.Render(fmt.Sprintf("... %d more (F4)", len(a.stock)-i)))
			break
		}
		qty := PadRight(models.FormatQuantity(s.OnHand, s.Material.Unit), 12)
		line := PadRight(Truncate(s.Material.Name, nameWidth), nameWidth) + " " + qty
		if s.Material.CriticalThreshold.IsPositive() {
			// Full bar at twice the threshold
			limit := s.Material.CriticalThreshold.Mul(decimal.NewFromInt(2)).InexactFloat64()
			line += a.theme.ProgressBar(s.OnHand.InexactFloat64(), limit, barWidth)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (a *App) criticalPanel() string {
	if len(a.critical) == 0 {
		return a.theme.Success.Render("All materials above critical level")
	}
	lines := make([]string, 0, len(a.critical))
	for _, s := range a.critical {
		lines = append(lines, a.theme.Error.Render(fmt.Sprintf("%s: %s (min %s)",
			s.Material.Name,
			models.FormatQuantity(s.OnHand, s.Material.Unit),
			models.FormatQuantity(s.Material.CriticalThreshold, s.Material.Unit))))
	}
	return strings.Join(lines, "\n")
}

func (a *App) ordersPanel(width int) string {
	if len(a.recentOrders) == 0 {
		return a.theme.Muted.Render("No production orders yet")
	}
	lines := make([]string, 0, dashboardRows)
	for i, o := range a.recentOrders {
		if i == dashboardRows {
			break
		}
		line := fmt.Sprintf("%s  %s  %d/%d %s",
			util.FormatDate(o.CreatedAt), o.ProductName, o.ProducedQuantity, o.PlannedQuantity, o.Status())
		lines = append(lines, Truncate(line, width))
	}
	return strings.Join(lines, "\n")
}

func (a *App) activityPanel(width int) string {
	if len(a.recentLog) == 0 {
		return a.theme.Muted.Render("No activity recorded")
	}
	lines := make([]string, 0, len(a.recentLog))
	for _, e := range a.recentLog {
		line := fmt.Sprintf("%s %s %s", e.CreatedAt.Format(util.DateTimeFormat), e.Actor, e.Action)
		if e.Detail != "" {
			line += ": " + e.Detail
		}
		lines = append(lines, Truncate(line, width))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderHelp() string {
	var b strings.Builder

	b.WriteString(a.theme.Title.Render("═══ HELP ═══"))
	b.WriteString("\n\n")

	section := func(title string, items [][2]string) {
		b.WriteString(a.theme.Subtitle.Render(title))
		b.WriteString("\n\n")
		for _, item := range items {
			b.WriteString(a.theme.Primary.Render(fmt.Sprintf("    %-9s %s", item[0], item[1])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	section("NAVIGATION", [][2]string{
		{"F1", "Help"},
		{"F2", "Dashboard"},
		{"F3", "Production orders"},
		{"F4", "Warehouse"},
		{"F10", "Quit"},
	})
	section("PRODUCTION", [][2]string{
		{"n", "Plan a new order (stock is checked before saving)"},
		{"e", "Set produced quantity"},
		{"d", "Delete order and restore consumed stock"},
		{"Enter", "Order details and consumption"},
		{"PgUp/Dn", "Page through orders"},
	})
	section("WAREHOUSE", [][2]string{
		{"Enter", "Lots of a material, oldest first"},
		{"a", "Include depleted lots"},
		{"r", "Refresh"},
	})

	b.WriteString(a.theme.Muted.Render("Press Esc to return"))
	return b.String()
}

func (a *App) renderDialog(height int, title, question string) string {
	dialog := a.theme.Box.Render(
		a.theme.Title.Render(title) + "\n\n" +
			a.theme.Base.Render(question) + "\n\n" +
			a.theme.Label.Render("[Y]es  [N]o"),
	)

	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	return style.Render(dialog)
}

func (a *App) renderFooter() string {
	return a.theme.DrawHorizontalLine(a.width) + "\n" + a.theme.Footer.Render(a.keys.StatusBarHelp(a.width))
}

// AddAlert adds a new alert to the display.
func (a *App) AddAlert(level AlertLevel, message string) {
	a.alerts = append([]Alert{{
		Level:   level,
		Message: message,
		Time:    a.clock.Now(),
	}}, a.alerts...)

	if len(a.alerts) > 10 {
		a.alerts = a.alerts[:10]
	}
}

// clearAlerts drops alerts of one level.
func (a *App) clearAlerts(level AlertLevel) {
	kept := a.alerts[:0]
	for _, alert := range a.alerts {
		if alert.Level != level {
			kept = append(kept, alert)
		}
	}
	a.alerts = kept
}

// ClearAlerts removes all alerts.
func (a *App) ClearAlerts() {
	a.alerts = []Alert{}
}

// Run starts the TUI application.
func Run(ctx context.Context, db *database.DB, cfg *config.Config, clock util.Clock) error {
	app := New(db, cfg, clock)
	app.ctx = ctx

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
