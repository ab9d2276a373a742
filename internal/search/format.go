// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/torrify/pkg/types"
)

// FormatTable writes the ranked results and the per-source outcome as a
// human-readable table to w. now anchors the relative upload times.
func FormatTable(resp types.SearchResponse, now time.Time, w io.Writer) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-56s  %6s  %6s  %-10s  %-14s  %s\n",
			"Rank", "Title", "Seeds", "Leech", "Size", "Uploaded", "Source")
		fmt.Fprintln(w, strings.Repeat("-", 120))

		for i, r := range resp.Results {
			title := truncate(r.Title, 56)
			if r.Verified {
				title = truncate(r.Title, 54) + " *"
			}
			fmt.Fprintf(w, "%-4d  %-56s  %6d  %6d  %-10s  %-14s  %s\n",
				i+1, title, r.Seeds, r.Leechers, formatSize(r.SizeBytes),
				humanize.RelTime(r.UploadedAt, now, "ago", "from now"), r.Source)
		}
	}

	fmt.Fprintf(w, "\n%d results", len(resp.Results))
	if resp.TotalCount > len(resp.Results) {
		fmt.Fprintf(w, " of %d", resp.TotalCount)
	}
	if resp.DuplicatesRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", resp.DuplicatesRemoved)
	}
	if resp.Cached {
		fmt.Fprint(w, " [cached]")
	}
	fmt.Fprintf(w, " in %s\n", time.Duration(resp.ExecutionTimeMS)*time.Millisecond)

	for _, st := range resp.Sources {
		if st.Success {
			fmt.Fprintf(w, "  ok    %-16s %4d rows  %s\n", st.Source, st.Count,
				time.Duration(st.ElapsedMS)*time.Millisecond)
			continue
		}
		fmt.Fprintf(w, "  fail  %-16s %-13s %s\n", st.Source, st.ErrorKind, truncate(st.Error, 80))
	}
}

// FormatJSON writes the response as indented JSON to w.
func FormatJSON(resp types.SearchResponse, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func formatSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
