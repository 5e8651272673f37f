package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"place-discovery/models"
)

// PrintReport writes a human summary of a discovery run to w.
func PrintReport(w io.Writer, r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📍 PLACE DISCOVERY RUN %s\033[0m\n", shortID(r.RunID))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Property        : \033[1m%d\033[0m\n", r.PropertyID)
	fmt.Fprintf(w, "  Strategy        : %s\n", r.Strategy)
	fmt.Fprintf(w, "  Fetched         : \033[1m%d\033[0m\n", r.Fetched)
	fmt.Fprintf(w, "  Inserted        : \033[1;32m%d\033[0m\n", r.Inserted)
	fmt.Fprintf(w, "  Duplicates      : %d\n", r.Duplicates)
	if r.ProviderErrors > 0 {
		fmt.Fprintf(w, "  Provider errors : \033[1;31m%d\033[0m\n", r.ProviderErrors)
	} else {
		fmt.Fprintf(w, "  Provider errors : 0\n")
	}
	fmt.Fprintf(w, "  Elapsed         : %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(w)

	printCounts(w, "By Category", r.ByCategory, thin)
	printCounts(w, "By Source", r.BySource, thin)

	fmt.Fprintf(w, "\033[1;33m  New Places\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Suggestions) == 0 {
		fmt.Fprintf(w, "  Nothing new\n")
	} else {
		for i, s := range r.Suggestions {
			rating := "   -"
			if s.Rating != nil {
				rating = fmt.Sprintf("%.1f ★", *s.Rating)
			}
			fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-36s %-12s %s\n",
				i+1, truncate(s.Title, 34), truncate(s.CategoryType, 12), rating)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var rows []keyCount
	for k, c := range counts {
		rows = append(rows, keyCount{k, c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})
	for _, row := range rows {
		bar := strings.Repeat("█", row.count)
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(row.key, 28), bar, row.count)
	}
	fmt.Fprintln(w)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate cuts s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
