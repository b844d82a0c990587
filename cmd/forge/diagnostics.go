package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"forge/internal/diag"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold).Sprint("error")
	warningLabel = color.New(color.FgYellow, color.Bold).Sprint("warning")
	infoLabel    = color.New(color.FgCyan).Sprint("info")
	codeColor    = color.New(color.Faint)
)

// printDiagnostics renders collected diagnostics, errors first, capped at max.
func printDiagnostics(w io.Writer, diags []diag.Diagnostic, max int) {
	shown := 0
	for _, pass := range []diag.Severity{diag.SevError, diag.SevWarning, diag.SevInfo} {
		for _, d := range diags {
			if d.Severity != pass {
				continue
			}
			if max > 0 && shown >= max {
				_, _ = fmt.Fprintf(w, "... and %d more diagnostics\n", len(diags)-shown)
				return
			}
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", severityLabel(d.Severity), codeColor.Sprint(d.Code.String()), d.Message)
			shown++
		}
	}
}

func severityLabel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return errorLabel
	case diag.SevWarning:
		return warningLabel
	default:
		return infoLabel
	}
}
