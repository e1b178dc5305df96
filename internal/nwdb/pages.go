package nwdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-querystring/query"
	"golang.org/x/sync/errgroup"

	"github.com/aeternum-guides/nwdb/internal/cache"
)

// Paged collections
const (
	CollectionItems = "items"
	CollectionPerks = "perks"
)

// SummaryItemCount is how many items a perk summary carries
const SummaryItemCount = 5

// PageFilter narrows a paged listing
type PageFilter struct {
	ItemType string `url:"filter_item_type,omitempty"`
	Perks    string `url:"filter_perks,omitempty"`
}

// Page is one page of a paged listing
type Page struct {
	Data      []json.RawMessage `json:"data"`
	PageCount FlexInt           `json:"pageCount"`
}

// Pages returns the advertised page count, at least 1
func (p *Page) Pages() int {
	if p.PageCount < 1 {
		return 1
	}
	return int(p.PageCount)
}

// boundedPages returns the advertised page count, capped at MaxPages
func (c *Client) boundedPages(collection string, p *Page) int {
	pageCount := p.Pages()
	if pageCount > c.config.MaxPages {
		c.logger.Warnf("NWDB API: %s listing advertises %d pages, capping at %d", collection, pageCount, c.config.MaxPages)
		return c.config.MaxPages
	}
	return pageCount
}

// PerkItemsSummary is the first few items granting a perk plus exact totals
type PerkItemsSummary struct {
	Items     []json.RawMessage `json:"items"`
	PageCount int               `json:"pageCount"`
	Total     int               `json:"total"`
}

// PagePath builds /db/<collection>/page/<n>.json
func PagePath(collection string, page int) string {
	return fmt.Sprintf("/db/%s/page/%d.json", collection, page)
}

// FetchPage fetches a single page of a listing
func (c *Client) FetchPage(ctx context.Context, collection string, filter PageFilter, page int) (*Page, error) {
	values, err := query.Values(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page filter: %w", err)
	}

	resp, err := c.gateway.Fetch(ctx, PagePath(collection, page), values)
	if err != nil {
		return nil, err
	}

	var p Page
	if err := resp.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchAllPages reads page 1, then fetches the remaining pages concurrently and
// merges their data in page order. A failed page contributes nothing; only a
// failure of page 1 is returned as an error.
func (c *Client) FetchAllPages(ctx context.Context, collection string, filter PageFilter) ([]json.RawMessage, error) {
	first, err := c.FetchPage(ctx, collection, filter, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s page 1: %w", collection, err)
	}

	pageCount := c.boundedPages(collection, first)
	c.logger.Debugf("NWDB API: %s listing has %d pages", collection, pageCount)
	if pageCount == 1 {
		return first.Data, nil
	}

	rest := make([][]json.RawMessage, pageCount-1)
	var g errgroup.Group
	if c.config.MaxConcurrentPages > 0 {
		g.SetLimit(c.config.MaxConcurrentPages)
	}
	for page := 2; page <= pageCount; page++ {
		g.Go(func() error {
			p, err := c.FetchPage(ctx, collection, filter, page)
			if err != nil {
				c.logger.Warnf("NWDB API: %s page %d/%d failed, skipping - %v", collection, page, pageCount, err)
				return nil
			}
			rest[page-2] = p.Data
			return nil
		})
	}
	// goroutines never return errors; siblings always run to completion
	_ = g.Wait()

	merged := append([]json.RawMessage{}, first.Data...)
	for _, data := range rest {
		merged = append(merged, data...)
	}
	return merged, nil
}

// cachedListing serves a merged listing from cache or fetches and stores it
func (c *Client) cachedListing(ctx context.Context, key, collection string, filter PageFilter) ([]json.RawMessage, error) {
	var listing []json.RawMessage
	found, _, err := cache.GetJSON(ctx, c.cache, key, &listing)
	if err != nil {
		c.logger.Warnf("Listing cache read failed for %s, refetching: %v", key, err)
	}
	if found {
		return listing, nil
	}

	listing, err = c.FetchAllPages(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, listing, c.config.PagesTTL); err != nil {
		c.logger.Warnf("Failed to cache %s: %v", key, err)
	}
	return listing, nil
}

// FetchPerksForItemType returns every perk that can roll on an item type
func (c *Client) FetchPerksForItemType(ctx context.Context, itemType string) ([]json.RawMessage, error) {
	return c.cachedListing(ctx, cache.PerksForItemTypeKey(itemType), CollectionPerks,
		PageFilter{ItemType: itemType})
}

// FetchItemsByPerk returns every item granting a perk
func (c *Client) FetchItemsByPerk(ctx context.Context, perkID string) ([]json.RawMessage, error) {
	return c.cachedListing(ctx, cache.ItemsByPerkKey(perkID), CollectionItems,
		PageFilter{Perks: perkID})
}

// SearchPerksForItemType matches perks available to an item type by name,
// prefix matches first. A blank query lists perks in listing order. Failures
// yield an empty result.
func (c *Client) SearchPerksForItemType(ctx context.Context, itemType, q string, limit int) []SearchCandidate {
	listing, err := c.FetchPerksForItemType(ctx, itemType)
	if err != nil {
		c.logger.Debugf("Perk search for %s degraded to empty result: %v", itemType, err)
		return []SearchCandidate{}
	}

	perks := make([]SearchCandidate, 0, len(listing))
	for _, raw := range listing {
		var r catalogRecord
		if err := json.Unmarshal(raw, &r); err != nil || r.Name == "" {
			continue
		}
		perks = append(perks, r.candidate())
	}

	n := capLimit(limit, c.config.PerkSearchLimit)
	if normalizeQuery(q) == "" {
		return truncate(perks, n)
	}
	return truncate(RankByMatch(perks, q), n)
}

// FetchItemsByPerkSummary returns the first items granting a perk with an exact
// total. The total assumes every page before the last is full; when the last
// page cannot be fetched it falls back to perPage*(pageCount-1).
func (c *Client) FetchItemsByPerkSummary(ctx context.Context, perkID string) (*PerkItemsSummary, error) {
	key := cache.ItemsByPerkSummaryKey(perkID)
	var summary PerkItemsSummary
	found, _, err := cache.GetJSON(ctx, c.cache, key, &summary)
	if err != nil {
		c.logger.Warnf("Summary cache read failed for %s, refetching: %v", key, err)
	}
	if found {
		return &summary, nil
	}

	filter := PageFilter{Perks: perkID}
	first, err := c.FetchPage(ctx, CollectionItems, filter, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items for perk %s: %w", perkID, err)
	}

	perPage := len(first.Data)
	pageCount := c.boundedPages(CollectionItems, first)
	total := perPage
	if pageCount > 1 {
		total = perPage * (pageCount - 1)
		last, err := c.FetchPage(ctx, CollectionItems, filter, pageCount)
		if err != nil {
			c.logger.Warnf("NWDB API: last page %d for perk %s failed, total is an estimate - %v", pageCount, perkID, err)
		} else {
			total += len(last.Data)
		}
	}

	items := first.Data
	if len(items) > SummaryItemCount {
		items = items[:SummaryItemCount]
	}
	summary = PerkItemsSummary{
		Items:     append([]json.RawMessage{}, items...),
		PageCount: pageCount,
		Total:     total,
	}

	if err := c.cache.Set(ctx, key, summary, c.config.PagesTTL); err != nil {
		c.logger.Warnf("Failed to cache %s: %v", key, err)
	}
	return &summary, nil
}
