package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/hyperifyio/gofetch/internal/app"
	"github.com/hyperifyio/gofetch/internal/resolve"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keyedOutcomes(outcomes []resolve.Outcome) map[string]resolve.Outcome {
	keyed := make(map[string]resolve.Outcome, len(outcomes))
	for i, out := range outcomes {
		keyed[strconv.Itoa(i)] = out
	}
	return keyed
}

func renderSearchResults(w io.Writer, items []app.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	titleColor := color.New(color.FgGreen, color.Bold).SprintFunc()
	urlColor := color.New(color.FgCyan).SprintFunc()
	headerColor := color.New(color.FgCyan, color.Bold).SprintFunc()

	for _, it := range items {
		fmt.Fprintf(w, "%d. %s\n", it.Rank, titleColor(it.Title))
		fmt.Fprintf(w, "   %s\n", urlColor(it.URL))
		if it.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", it.Snippet)
		}
		if it.FullContent != "" {
			fmt.Fprintf(w, "\n%s\n%s\n", headerColor("--- Full Scraped Content ---"), it.FullContent)
		}
		fmt.Fprintln(w)
	}
}

func renderScrapeOutcomes(w io.Writer, outcomes []resolve.Outcome) {
	sourceColor := color.New(color.FgMagenta, color.Bold).SprintFunc()
	errColor := color.New(color.FgRed).SprintFunc()

	for i, out := range outcomes {
		fmt.Fprintf(w, "%s %s\n", sourceColor(fmt.Sprintf("Source %d:", i)), out.URL)
		switch {
		case out.Status == resolve.StatusOK:
			fmt.Fprintln(w, out.Text)
		case out.Strategy != "":
			fmt.Fprintf(w, "%s (strategy: %s)\n", errColor(out.ErrorKind), out.Strategy)
		default:
			fmt.Fprintln(w, errColor(out.ErrorKind))
		}
		fmt.Fprintln(w)
	}
}
