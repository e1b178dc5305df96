package nwdb

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/aeternum-guides/nwdb/internal/cache"
)

// PerkIDPrefix marks perks, which share the catalog with items
const PerkIDPrefix = "perkid_"

// ArtifactRarity is the numeric rarity the catalog uses for artifacts
const ArtifactRarity = "5"

// SearchCandidate is the projection of a catalog record used for search
type SearchCandidate struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	Icon      string `json:"icon,omitempty"`
	Rarity    string `json:"rarity,omitempty"`
	Tier      int    `json:"tier,omitempty"`
	GearScore int    `json:"gearScore,omitempty"`
}

// IsArtifact reports whether the candidate has artifact rarity
func (s SearchCandidate) IsArtifact() bool {
	r := strings.ToLower(strings.TrimSpace(s.Rarity))
	return r == "artifact" || r == ArtifactRarity
}

// catalogRecord is a raw catalog entry; numeric fields arrive as strings or numbers
type catalogRecord struct {
	Type      string     `json:"type"`
	ID        FlexString `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Icon      string     `json:"icon"`
	Rarity    FlexString `json:"rarity"`
	Tier      FlexInt    `json:"tier"`
	GearScore FlexInt    `json:"gearScore"`
}

func (r catalogRecord) candidate() SearchCandidate {
	return SearchCandidate{
		ID:        r.ID.String(),
		Name:      r.Name,
		Slug:      r.Slug,
		Icon:      r.Icon,
		Rarity:    r.Rarity.String(),
		Tier:      int(r.Tier),
		GearScore: int(r.GearScore),
	}
}

// isSearchableItem keeps named items and drops perks sharing the catalog
func (r catalogRecord) isSearchableItem() bool {
	return r.Type == "item" &&
		r.Name != "" &&
		!strings.HasPrefix(strings.ToLower(r.ID.String()), PerkIDPrefix)
}

// projectCatalog parses the bulk catalog and keeps searchable items in catalog order
func projectCatalog(raw json.RawMessage) ([]SearchCandidate, error) {
	var records []catalogRecord
	if err := json.Unmarshal(UnwrapData(raw), &records); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	candidates := make([]SearchCandidate, 0, len(records))
	for _, r := range records {
		if r.isSearchableItem() {
			candidates = append(candidates, r.candidate())
		}
	}
	return candidates, nil
}

// Catalog returns the searchable item catalog, loading it once per TTL window.
// Concurrent cold loads share one upstream request. The shared load ignores
// the cancellation of whichever caller started it; each caller stops waiting
// when its own ctx is done.
func (c *Client) Catalog(ctx context.Context) ([]SearchCandidate, error) {
	var candidates []SearchCandidate
	found, _, err := cache.GetJSON(ctx, c.cache, cache.CatalogKey(), &candidates)
	if err != nil {
		c.logger.Warnf("Catalog cache read failed, refetching: %v", err)
	}
	if found {
		return candidates, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.loads.DoChan(cache.CatalogKey(), func() (interface{}, error) {
		return c.loadCatalog(loadCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]SearchCandidate), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog load abandoned: %w", ctx.Err())
	}
}

func (c *Client) loadCatalog(ctx context.Context) ([]SearchCandidate, error) {
	resp, err := c.gateway.Fetch(ctx, c.config.CatalogPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	candidates, err := projectCatalog(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("NWDB API: Catalog loaded with %d searchable items", len(candidates))

	if err := c.cache.Set(ctx, cache.CatalogKey(), candidates, c.config.CatalogTTL); err != nil {
		c.logger.Warnf("Failed to cache catalog: %v", err)
	}
	return candidates, nil
}

// RefreshCatalog drops the cached catalog and loads a fresh one
func (c *Client) RefreshCatalog(ctx context.Context) ([]SearchCandidate, error) {
	if err := c.cache.Delete(ctx, cache.CatalogKey()); err != nil {
		return nil, fmt.Errorf("failed to drop cached catalog: %w", err)
	}
	return c.Catalog(ctx)
}

// SearchItems returns items whose name contains query, prefix matches first and
// catalog order within each class. Failures yield an empty result.
func (c *Client) SearchItems(ctx context.Context, query string, limit int) []SearchCandidate {
	q := normalizeQuery(query)
	if q == "" {
		return []SearchCandidate{}
	}

	catalog, err := c.Catalog(ctx)
	if err != nil {
		c.logger.Debugf("Search for %q degraded to empty result: %v", query, err)
		return []SearchCandidate{}
	}

	return truncate(RankByMatch(catalog, q), capLimit(limit, c.config.SearchLimit))
}

// SearchItemsRanked is the detail-page search: matches are ordered by match
// class, artifacts first, then tier, gear score (descending) and name.
func (c *Client) SearchItemsRanked(ctx context.Context, query string, limit int) []SearchCandidate {
	q := normalizeQuery(query)
	if q == "" {
		return []SearchCandidate{}
	}

	catalog, err := c.Catalog(ctx)
	if err != nil {
		c.logger.Debugf("Ranked search for %q degraded to empty result: %v", query, err)
		return []SearchCandidate{}
	}

	return truncate(RankDetailed(catalog, q), capLimit(limit, c.config.RankedSearchLimit))
}

// match classes, lower ranks first
const (
	matchNone = iota - 1
	matchPrefix
	matchContains
)

func matchClass(name, q string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, q):
		return matchPrefix
	case strings.Contains(lower, q):
		return matchContains
	default:
		return matchNone
	}
}

type scored struct {
	SearchCandidate
	class int
}

func matches(candidates []SearchCandidate, q string) []scored {
	var out []scored
	for _, cand := range candidates {
		if class := matchClass(cand.Name, q); class != matchNone {
			out = append(out, scored{SearchCandidate: cand, class: class})
		}
	}
	return out
}

// RankByMatch filters by case-insensitive substring and orders prefix matches
// before contains matches, keeping input order within a class
func RankByMatch(candidates []SearchCandidate, query string) []SearchCandidate {
	hits := matches(candidates, normalizeQuery(query))
	slices.SortStableFunc(hits, func(a, b scored) int {
		return cmp.Compare(a.class, b.class)
	})
	return unscore(hits)
}

// RankDetailed filters like RankByMatch and orders by (match class, artifact,
// tier desc, gear score desc, name, id); input order never matters
func RankDetailed(candidates []SearchCandidate, query string) []SearchCandidate {
	hits := matches(candidates, normalizeQuery(query))
	slices.SortFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(a.class, b.class); c != 0 {
			return c
		}
		if a.IsArtifact() != b.IsArtifact() {
			if a.IsArtifact() {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.Tier, a.Tier); c != 0 {
			return c
		}
		if c := cmp.Compare(b.GearScore, a.GearScore); c != 0 {
			return c
		}
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return unscore(hits)
}

func unscore(hits []scored) []SearchCandidate {
	out := make([]SearchCandidate, len(hits))
	for i, h := range hits {
		out[i] = h.SearchCandidate
	}
	return out
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// capLimit applies the absolute cap; a non-positive limit means "up to the cap"
func capLimit(limit, upperBound int) int {
	if limit <= 0 || limit > upperBound {
		return upperBound
	}
	return limit
}

func truncate(candidates []SearchCandidate, n int) []SearchCandidate {
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}
