package nwdb

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEntityDetails_NotFound(t *testing.T) {
	server := newMockNWDB(t, nil)
	client := newTestClient(t, server)

	raw, err := client.GetEntityDetails(context.Background(), "item", "abc")
	assert.Nil(t, raw)
	assert.EqualError(t, err, "HTTP 404: Not Found")

	got, err := OutcomeOf(raw, err).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"HTTP 404: Not Found"}`, string(got))
}

func TestGetEntityDetails_BuildsPath(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/item/sword of ages.json": jsonHandler(`{"data":{"id":"sword of ages","name":"Sword of Ages"}}`),
		"/db/perk/perkid_a.json":      jsonHandler(`{"id":"perkid_a","name":"Keen"}`),
	})
	client := newTestClient(t, server)
	ctx := context.Background()

	raw, err := client.GetEntityDetails(ctx, "  ITEM ", "sword of ages")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"id":"sword of ages","name":"Sword of Ages"}}`, string(raw), "details are returned raw")
	assert.Equal(t, "/db/item/sword%20of%20ages.json", server.LastRequest().URL.EscapedPath())

	raw, err = client.GetPerkDetails(ctx, "perkid_a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"perkid_a","name":"Keen"}`, string(raw))

	_, err = client.GetItemDetails(ctx, "nothing")
	assert.True(t, IsNotFound(err))
}

func TestGetEntityDetails_DoesNotCache(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/item/abc.json": jsonHandler(`{"id":"abc"}`),
	})
	client := newTestClient(t, server)

	for i := 0; i < 3; i++ {
		_, err := client.GetItemDetails(context.Background(), "abc")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, server.Hits("/db/item/abc.json"))
}

func TestGetEntityDetails_InvalidJSON(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/item/abc.json": jsonHandler(`<html>blocked</html>`),
	})
	client := newTestClient(t, server)

	_, err := client.GetItemDetails(context.Background(), "abc")
	assert.ErrorContains(t, err, "failed to parse response JSON")
}

func TestGetEntity_Normalizes(t *testing.T) {
	server := newMockNWDB(t, map[string]http.HandlerFunc{
		"/db/zone/42.json":         jsonHandler(`{"data":{"id":42,"name":"Windward Reach"}}`),
		"/db/creature/wolf01.json": jsonHandler(`{"id":"wolf01","name":"Young Wolf","type":"creature"}`),
	})
	client := newTestClient(t, server)
	ctx := context.Background()

	zone, err := client.GetZone(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", zone.ID.String())
	assert.Equal(t, "Windward Reach", zone.Name)
	assert.Equal(t, "zone", zone.Type)

	creature, err := client.GetCreature(ctx, "wolf01")
	require.NoError(t, err)
	assert.Equal(t, "Young Wolf", creature.Name)

	assert.Equal(t, server.URL+"/db/zone/42", client.EntityURL("Zone", "42"))
}
