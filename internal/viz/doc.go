// Package viz renders pair tables and iteration progress in the terminal.
//
// The package provides:
//
//   - [TablePlot]: asciigraph charts of a pair table's force and energy
//   - [Progress]: a Bubble Tea model following a running controller
//   - lipgloss styles shared by the command line output
//
// # Key Bindings
//
//	Q/Ctrl+C - Stop following (the run is canceled)
//	F        - Toggle force/energy chart
package viz
