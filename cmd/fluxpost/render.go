package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/your-org/fluxpost/internal/fallback"
)

func (c *cli) print(w io.Writer, v any, human func(io.Writer)) error {
	if c.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(w)
	return nil
}

func renderResult(w io.Writer, res fallback.Result) {
	header := color.CyanString(res.Provider)
	if res.Model != "" {
		header += color.HiBlackString(" (%s)", res.Model)
	}
	if res.Category != "" {
		header += color.HiBlackString(" [%s]", res.Category)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, res.Content)
}

func renderReport(w io.Writer, rep fallback.Report) {
	for i, a := range rep.Attempts {
		mark := color.GreenString("✓")
		detail := ""
		if a.Error != "" {
			mark = color.RedString("✗")
			detail = " " + color.RedString(a.Error)
		}
		fmt.Fprintf(w, "[%s] %d. %s %s%s\n", mark, i+1, a.Provider, a.Duration.Round(time.Millisecond), detail)
	}
	if rep.Result.Success {
		fmt.Fprintln(w)
		renderResult(w, rep.Result)
	}
}

func renderPairs(w io.Writer, title string, pairs ...string) {
	fmt.Fprintln(w, color.CyanString(title))
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(w, "  %-14s %s\n", pairs[i]+":", pairs[i+1])
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
