// Package dntui is a terminal dashboard for a running dnlinkd process: a
// connection-table view and a live log pane, reduced from the gateway's
// multi-tab operator console to the two views a link-layer bench tool
// needs.
package dntui

import "github.com/gdamore/tcell/v2"

// Color scheme, matching the gateway console's palette.
var (
	ColorPrimary   = tcell.ColorBlue
	ColorAccent    = tcell.ColorYellow
	ColorError     = tcell.ColorRed
	ColorConnected = tcell.ColorGreen
	ColorIdle      = tcell.ColorGray
)

// Status indicator strings used in the connections table.
const (
	StatusIndicatorUp    = "[green]●[-]"
	StatusIndicatorIdle  = "[gray]○[-]"
	StatusIndicatorError = "[red]●[-]"
)

// Tab labels.
const (
	TabConnections = "Connections"
	TabLog         = "Log"
)
