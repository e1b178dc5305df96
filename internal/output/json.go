package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/aeternum-guides/nwdb/internal/cache"
	"github.com/aeternum-guides/nwdb/internal/nwdb"
)

// SearchReport is the CLI rendering of a catalog search
type SearchReport struct {
	Query      string                 `json:"query"`
	Ranked     bool                   `json:"ranked"`
	SearchTime time.Time              `json:"search_time"`
	Results    []nwdb.SearchCandidate `json:"results"`
	Summary    SearchSummary          `json:"summary"`
}

// SearchSummary provides aggregate statistics about the results
type SearchSummary struct {
	TotalResults  int            `json:"total_results"`
	Artifacts     int            `json:"artifacts"`
	ByRarity      map[string]int `json:"by_rarity"`
	ByTier        map[int]int    `json:"by_tier"`
	TopGearScore  int            `json:"top_gear_score,omitempty"`
	TopGearScored []string       `json:"top_gear_scored,omitempty"`
}

// FormatJSON writes v as JSON
func FormatJSON(v interface{}, writer io.Writer, pretty bool) error {
	var data []byte
	var err error

	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	data = append(data, '\n')
	_, err = writer.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}

	return nil
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// BuildSearchReport wraps search results with summary statistics
func BuildSearchReport(query string, ranked bool, results []nwdb.SearchCandidate) *SearchReport {
	if results == nil {
		results = []nwdb.SearchCandidate{}
	}
	return &SearchReport{
		Query:      query,
		Ranked:     ranked,
		SearchTime: time.Now(),
		Results:    results,
		Summary:    calculateSummary(results),
	}
}

// calculateSummary generates summary statistics from search results
func calculateSummary(results []nwdb.SearchCandidate) SearchSummary {
	summary := SearchSummary{
		TotalResults: len(results),
		ByRarity:     make(map[string]int),
		ByTier:       make(map[int]int),
	}

	for _, r := range results {
		if r.IsArtifact() {
			summary.Artifacts++
		}
		if r.Rarity != "" {
			summary.ByRarity[r.Rarity]++
		}
		if r.Tier > 0 {
			summary.ByTier[r.Tier]++
		}

		switch {
		case r.GearScore > summary.TopGearScore:
			summary.TopGearScore = r.GearScore
			summary.TopGearScored = []string{r.Name}
		case r.GearScore > 0 && r.GearScore == summary.TopGearScore:
			summary.TopGearScored = append(summary.TopGearScored, r.Name)
		}
	}

	return summary
}

// FormatCacheStats writes a one-line human summary of cache statistics
func FormatCacheStats(stats cache.Stats, writer io.Writer) error {
	_, err := fmt.Fprintf(writer, "%s cache: %s entries (%s valid, %s expired)\n",
		stats.Provider,
		humanize.Comma(int64(stats.TotalEntries)),
		humanize.Comma(int64(stats.ValidEntries)),
		humanize.Comma(int64(stats.ExpiredEntries)))
	if err != nil {
		return fmt.Errorf("failed to write cache stats: %w", err)
	}
	return nil
}

// FormatPerkItemsSummary writes a human summary of items granting a perk
func FormatPerkItemsSummary(perkID string, summary *nwdb.PerkItemsSummary, writer io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s across %s %s\n",
		perkID,
		humanize.Comma(int64(summary.Total)),
		plural(summary.Total, "item", "items"),
		humanize.Comma(int64(summary.PageCount)),
		plural(summary.PageCount, "page", "pages"))

	for _, raw := range summary.Items {
		var item struct {
			ID   nwdb.FlexString `json:"id"`
			Name string          `json:"name"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		fmt.Fprintf(&b, "  - %s (%s)\n", item.Name, item.ID)
	}

	if _, err := io.WriteString(writer, b.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// FormatObjectives writes objective sentences as a numbered list
func FormatObjectives(itemID string, sentences []string, writer io.Writer) error {
	var b strings.Builder
	if len(sentences) == 0 {
		fmt.Fprintf(&b, "%s: no perk objectives\n", itemID)
	}
	for i, s := range sentences {
		fmt.Fprintf(&b, "%s %s\n", humanize.Ordinal(i+1), s)
	}
	if _, err := io.WriteString(writer, b.String()); err != nil {
		return fmt.Errorf("failed to write objectives: %w", err)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
