// Package color holds the palette and lipgloss styles shared by the
// dashboard and the headless output.
//
// Colors are adaptive: every entry carries a light and a dark variant and
// lipgloss picks one from the terminal background, which Initialize can
// override. Channel states map onto the semantic colors:
//   - Success: Open
//   - Warning: Connecting
//   - Error: Suspended, Closed
//
// # Usage Example
//
//	color.Initialize(true)
//	fmt.Println(color.StateStyle("Open").Render("Open"))
package color
