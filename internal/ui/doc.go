// Package ui renders dashgen's terminal output: a header, spinners for slow
// network steps, Bubbles tables for discovery results and run summaries.
//
// Colors go through Lip Gloss. DisableColors switches to plain ASCII for
// --no-color and NO_COLOR. Spinners only animate when writing to a terminal,
// so piped output and CI logs get a single final line per step:
//
//	s := ui.NewSpinner("Publishing nodes")
//	s.Start()
//	// ... upload ...
//	s.Success() // or s.Fail() or s.Skip()
package ui
