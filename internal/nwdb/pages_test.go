package nwdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageHandler serves page n of a listing with pageCount advertised as a string
func pageHandler(pageCount int, items ...string) http.HandlerFunc {
	return jsonHandler(fmt.Sprintf(`{"data":[%s],"pageCount":"%d"}`, strings.Join(items, ","), pageCount))
}

func rawIDs(t *testing.T, listing []json.RawMessage) []string {
	t.Helper()
	out := make([]string, len(listing))
	for i, raw := range listing {
		var v struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(raw, &v))
		out[i] = v.ID
	}
	return out
}

func TestFetchAllPages_FetchesEachPageOnce(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/items/page/1.json": pageHandler(3, `{"id":"a"}`, `{"id":"b"}`),
		"/db/items/page/2.json": pageHandler(3, `{"id":"c"}`, `{"id":"d"}`),
		"/db/items/page/3.json": pageHandler(3, `{"id":"e"}`),
	})
	client := newTestClient(t, server)

	listing, err := client.FetchAllPages(context.Background(), CollectionItems, PageFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, rawIDs(t, listing))
	assert.Equal(t, int64(3), server.total.Load())
	for page := 1; page <= 3; page++ {
		assert.Equal(t, 1, server.Hits(PagePath(CollectionItems, page)))
	}
}

func TestFetchAllPages_SkipsFailedPage(t *testing.T) {
	handlers := map[string]http.HandlerFunc{}
	for page := 1; page <= 5; page++ {
		handlers[PagePath(CollectionItems, page)] = pageHandler(5, fmt.Sprintf(`{"id":"p%d"}`, page))
	}
	handlers[PagePath(CollectionItems, 3)] = statusHandler(http.StatusInternalServerError)
	server := newMockNWDB(t, handlers)
	client := newTestClient(t, server, func(c *Config) { c.MaxConcurrentPages = 2 })

	listing, err := client.FetchAllPages(context.Background(), CollectionItems, PageFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p4", "p5"}, rawIDs(t, listing))
}

func TestFetchAllPages_FirstPageFailure(t *testing.T) {
	server := newMockNWDB(t, nil)
	client := newTestClient(t, server)

	listing, err := client.FetchAllPages(context.Background(), CollectionPerks, PageFilter{ItemType: "sword"})
	assert.Nil(t, listing)
	assert.True(t, IsNotFound(err))
	assert.ErrorContains(t, err, "failed to fetch perks page 1")
}

func TestFetchAllPages_MissingPageCount(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/perks/page/1.json": jsonHandler(`{"data":[{"id":"x"}]}`),
	})
	client := newTestClient(t, server)

	listing, err := client.FetchAllPages(context.Background(), CollectionPerks, PageFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, rawIDs(t, listing))
	assert.Equal(t, int64(1), server.total.Load())
}

func TestFetchAllPages_CapsAdvertisedPageCount(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/items/page/1.json": jsonHandler(`{"data":[{"id":"a"}],"pageCount":"1e17"}`),
		"/db/items/page/2.json": pageHandler(2, `{"id":"b"}`),
		"/db/items/page/3.json": pageHandler(3, `{"id":"c"}`),
	})
	client := newTestClient(t, server, func(c *Config) { c.MaxPages = 3 })

	listing, err := client.FetchAllPages(context.Background(), CollectionItems, PageFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, rawIDs(t, listing))
	assert.Equal(t, int64(3), server.total.Load())
}

func TestFetchItemsByPerkSummary_CapsAdvertisedPageCount(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/items/page/1.json": jsonHandler(`{"data":[{"id":"a"},{"id":"b"}],"pageCount":"1e9"}`),
		"/db/items/page/3.json": pageHandler(3, `{"id":"c"}`),
	})
	client := newTestClient(t, server, func(c *Config) { c.MaxPages = 3 })

	summary, err := client.FetchItemsByPerkSummary(context.Background(), "perkid_keen")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.PageCount)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, int64(2), server.total.Load())
}

func TestFetchPerksForItemType_FilterAndCache(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/perks/page/1.json": pageHandler(1, `{"id":"perkid_keen","name":"Keen"}`),
	})
	client := newTestClient(t, server)
	ctx := context.Background()

	listing, err := client.FetchPerksForItemType(ctx, "Sword")
	require.NoError(t, err)
	assert.Len(t, listing, 1)
	assert.Equal(t, "Sword", server.LastRequest().URL.Query().Get("filter_item_type"))
	assert.Empty(t, server.LastRequest().URL.Query().Get("filter_perks"))

	_, err = client.FetchPerksForItemType(ctx, " sword ")
	require.NoError(t, err)
	assert.Equal(t, 1, server.Hits("/db/perks/page/1.json"), "item type keys are case-insensitive")
}

func TestFetchItemsByPerk_Filter(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/items/page/1.json": pageHandler(1, `{"id":"i1"}`),
	})
	client := newTestClient(t, server)

	listing, err := client.FetchItemsByPerk(context.Background(), "perkid_keen")
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, rawIDs(t, listing))
	assert.Equal(t, "perkid_keen", server.LastRequest().URL.Query().Get("filter_perks"))
}

func TestSearchPerksForItemType(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/perks/page/1.json": pageHandler(1,
			`{"id":"perkid_a","name":"Vicious Keen"}`,
			`{"id":"perkid_b","name":"Keen"}`,
			`{"id":"perkid_c","name":"Refreshing"}`,
			`{"id":"perkid_d"}`),
	})
	client := newTestClient(t, server)
	ctx := context.Background()

	assert.Equal(t, []string{"perkid_b", "perkid_a"}, ids(client.SearchPerksForItemType(ctx, "sword", "KEEN", 0)))
	assert.Equal(t, []string{"perkid_a", "perkid_b", "perkid_c"}, ids(client.SearchPerksForItemType(ctx, "sword", "", 0)))
	assert.Len(t, client.SearchPerksForItemType(ctx, "sword", "", 2), 2)
}

func TestSearchPerksForItemType_FailureYieldsEmpty(t *testing.T) {
	server := newMockNWDB(t, nil)
	client := newTestClient(t, server)

	results := client.SearchPerksForItemType(context.Background(), "sword", "keen", 0)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFetchItemsByPerkSummary(t *testing.T) {
	full := make([]string, 10)
	for i := range full {
		full[i] = fmt.Sprintf(`{"id":"i%d"}`, i)
	}

	t.Run("exact total from last page", func(t *testing.T) {
		server := newMockNWDB(t, map[string]http.HandlerFunc{
			"/db/items/page/1.json": pageHandler(4, full...),
			"/db/items/page/4.json": pageHandler(4, `{"id":"z1"}`, `{"id":"z2"}`, `{"id":"z3"}`),
		})
		client := newTestClient(t, server)

		summary, err := client.FetchItemsByPerkSummary(context.Background(), "perkid_keen")
		require.NoError(t, err)
		assert.Equal(t, 4, summary.PageCount)
		assert.Equal(t, 33, summary.Total)
		assert.Equal(t, []string{"i0", "i1", "i2", "i3", "i4"}, rawIDs(t, summary.Items))
		assert.Zero(t, server.Hits("/db/items/page/2.json"))

		_, err = client.FetchItemsByPerkSummary(context.Background(), "perkid_keen")
		require.NoError(t, err)
		assert.Equal(t, 1, server.Hits("/db/items/page/1.json"))
	})

	t.Run("estimate when last page fails", func(t *testing.T) {
		server := newMockNWDB(t, map[string]http.HandlerFunc{
			"/db/items/page/1.json": pageHandler(4, full...),
		})
		client := newTestClient(t, server)

		summary, err := client.FetchItemsByPerkSummary(context.Background(), "perkid_keen")
		require.NoError(t, err)
		assert.Equal(t, 30, summary.Total)
	})

	t.Run("single page", func(t *testing.T) {
		server := newMockNWDB(t, map[string]http.HandlerFunc{
			"/db/items/page/1.json": pageHandler(1, `{"id":"only"}`),
		})
		client := newTestClient(t, server)

		summary, err := client.FetchItemsByPerkSummary(context.Background(), "perkid_keen")
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Total)
		assert.Equal(t, 1, summary.PageCount)
	})

	t.Run("first page failure", func(t *testing.T) {
		server := newMockNWDB(t, nil)
		client := newTestClient(t, server)

		_, err := client.FetchItemsByPerkSummary(context.Background(), "perkid_keen")
		assert.True(t, IsNotFound(err))
	})
}
