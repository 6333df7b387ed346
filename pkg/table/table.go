// Package table prints pterm tables.
package table

import "github.com/pterm/pterm"

// PrintTableNoPad renders rows. The first row is a header when hasHeader is set.
func PrintTableNoPad(rows pterm.TableData, hasHeader bool) {
	_ = pterm.DefaultTable.
		WithHasHeader(hasHeader).
		WithData(rows).
		Render()
}
