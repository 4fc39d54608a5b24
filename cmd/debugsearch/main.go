// debugsearch probes each search provider directly and prints its raw,
// unnormalized results. Useful when the fallback chain behaves
// unexpectedly and the question is which provider misfired.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hyperifyio/gofetch/internal/app"
	"github.com/hyperifyio/gofetch/internal/search"
)

func main() {
	q := "golang memory model"
	if len(os.Args) > 1 {
		q = os.Args[1]
	}
	client := &http.Client{Timeout: 20 * time.Second}
	query := search.Query{Terms: q, MaxResults: 5}
	providers := []search.Provider{
		&search.SearxNG{BaseURL: app.DefaultSearxURL(), HTTPClient: client, UserAgent: "debugsearch/1.0"},
		&search.DuckDuckGo{HTTPClient: client, UserAgent: "debugsearch/1.0"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	for _, p := range providers {
		res, err := p.Search(ctx, query)
		fmt.Printf("[%s] err: %v\n", p.Name(), err)
		for i, r := range res {
			fmt.Printf("%d. %s (%s)\n", i+1, r.Title, r.URL)
		}
		fmt.Println()
	}
}
