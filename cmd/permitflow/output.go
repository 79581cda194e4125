package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kalambet/permitflow/internal/permit"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// tierColor maps a tier to the color used for it in the HTML report.
func tierColor(r permit.Requirement) string {
	switch r {
	case permit.InHouseReview:
		return colorRed
	case permit.OTCReview:
		return colorBlue
	default:
		return colorGreen
	}
}

func printDecision(w io.Writer, d permit.Decision) {
	details := d.Requirement.Details()
	fmt.Fprintf(w, "%s %s\n",
		colorize(colorBold+tierColor(d.Requirement), string(d.Requirement)),
		details.Title,
	)
	if len(d.Matched) > 0 {
		fmt.Fprintf(w, "  matched: %s\n", joinStrings(d.Matched))
	}
	for _, step := range details.Steps {
		fmt.Fprintf(w, "  - %s\n", step)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinStrings[T ~string](vals []T) string {
	out := ""
	for i, v := range vals {
		if i > 0 {
			out += ", "
		}
		out += string(v)
	}
	return out
}
