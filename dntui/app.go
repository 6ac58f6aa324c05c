package dntui

import (
	"fmt"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/braboj/protocol-devicenet/dnlink"
)

// App is the dashboard application: one connections table listing the
// connections of every configured node and a scrolling log pane fed by
// dnlink event handlers.
type App struct {
	app   *tview.Application
	pages *tview.Pages

	tabs      *tview.TextView
	statusBar *tview.TextView

	table   *tview.Table
	logView *tview.TextView

	nodes      map[string]*dnlink.Node
	nodeOrder  []string
	tabNames   []string
	currentTab int

	refreshRate time.Duration
	stopChan    chan struct{}
}

// NewApp builds a dashboard over the given named nodes.
func NewApp(nodes map[string]*dnlink.Node) *App {
	order := make([]string, 0, len(nodes))
	for name := range nodes {
		order = append(order, name)
	}
	sort.Strings(order)

	a := &App{
		app:         tview.NewApplication(),
		nodes:       nodes,
		nodeOrder:   order,
		tabNames:    []string{TabConnections, TabLog},
		refreshRate: 500 * time.Millisecond,
		stopChan:    make(chan struct{}),
	}
	a.setupUI()
	return a
}

func (a *App) setupUI() {
	a.tabs = tview.NewTextView().SetDynamicColors(true)
	a.statusBar = tview.NewTextView().SetDynamicColors(true).SetText(" q: quit  tab: switch view ")

	a.table = tview.NewTable().SetBorders(false).SetFixed(1, 0)
	a.logView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	a.logView.SetBorder(true).SetTitle(" log ")
	a.table.SetBorder(true).SetTitle(" connections ")

	a.pages = tview.NewPages().
		AddPage(TabConnections, a.table, true, true).
		AddPage(TabLog, a.logView, true, false)

	a.renderTabs()

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.tabs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) renderTabs() {
	a.tabs.Clear()
	for i, name := range a.tabNames {
		if i == a.currentTab {
			fmt.Fprintf(a.tabs, "[black:white] %s [-:-] ", name)
		} else {
			fmt.Fprintf(a.tabs, " %s  ", name)
		}
	}
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyTab:
		a.currentTab = (a.currentTab + 1) % len(a.tabNames)
		a.pages.SwitchToPage(a.tabNames[a.currentTab])
		a.renderTabs()
		return nil
	case tcell.KeyRune:
		if event.Rune() == 'q' {
			a.Stop()
			return nil
		}
	}
	return event
}

// connState describes the minimal connection state the table renders.
type connState struct {
	node           string
	instance       int
	state          string
	producedSize   int
	consumedSize   int
	ackSuppression bool
}

func (a *App) snapshot() []connState {
	rows := make([]connState, 0)
	for _, name := range a.nodeOrder {
		node := a.nodes[name]
		instances := make([]int, 0)
		conns := node.Connections()
		for instance := range conns {
			instances = append(instances, instance)
		}
		sort.Ints(instances)
		for _, instance := range instances {
			c := conns[instance]
			rows = append(rows, connState{
				node: name, instance: instance, state: c.State.String(),
				producedSize: c.ProducedSize, consumedSize: c.ConsumedSize,
				ackSuppression: c.AckSuppression,
			})
		}
	}
	return rows
}

func (a *App) redrawTable() {
	a.table.Clear()
	headers := []string{"Node", "Instance", "State", "Produced", "Consumed", "AckSupp"}
	for col, h := range headers {
		a.table.SetCell(0, col, tview.NewTableCell(h).SetTextColor(ColorAccent).SetSelectable(false))
	}
	for row, c := range a.snapshot() {
		indicator := StatusIndicatorIdle
		switch c.state {
		case "ESTABLISHED":
			indicator = StatusIndicatorUp
		case "TIMED_OUT":
			indicator = StatusIndicatorError
		}
		a.table.SetCell(row+1, 0, tview.NewTableCell(c.node))
		a.table.SetCell(row+1, 1, tview.NewTableCell(fmt.Sprintf("%d", c.instance)))
		a.table.SetCell(row+1, 2, tview.NewTableCell(fmt.Sprintf("%s %s", indicator, c.state)))
		a.table.SetCell(row+1, 3, tview.NewTableCell(fmt.Sprintf("%d", c.producedSize)))
		a.table.SetCell(row+1, 4, tview.NewTableCell(fmt.Sprintf("%d", c.consumedSize)))
		a.table.SetCell(row+1, 5, tview.NewTableCell(fmt.Sprintf("%v", c.ackSuppression)))
	}
}

// AppendLog writes one line to the log pane. Safe to call from any
// goroutine, matching a dnlink.EventHandler's contract.
func (a *App) AppendLog(line string) {
	a.app.QueueUpdateDraw(func() {
		fmt.Fprintf(a.logView, "%s\n", line)
	})
}

// EventHandler returns a dnlink.EventHandler that mirrors frame traffic
// into the log pane, for direct use with dnlink.WithEventHandler.
func (a *App) EventHandler() dnlink.EventHandler {
	return func(direction string, canID uint32, payload []byte) {
		a.AppendLog(fmt.Sprintf("%s id=%03X len=%d", direction, canID, len(payload)))
	}
}

// Run starts the refresh loop and blocks until Stop is called or the
// user quits.
func (a *App) Run() error {
	go func() {
		ticker := time.NewTicker(a.refreshRate)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopChan:
				return
			case <-ticker.C:
				a.app.QueueUpdateDraw(a.redrawTable)
			}
		}
	}()
	return a.app.Run()
}

// Stop ends the application loop.
func (a *App) Stop() {
	select {
	case <-a.stopChan:
	default:
		close(a.stopChan)
	}
	a.app.Stop()
}
