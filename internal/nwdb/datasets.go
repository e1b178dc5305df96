package nwdb

import (
	"context"
	"encoding/json"
	"fmt"
)

// FetchDataset fetches a bulk reference dataset (objective tasks, game modes).
// location may be absolute or relative to the base URL. A {"data": [...]}
// envelope is unwrapped.
func (c *Client) FetchDataset(ctx context.Context, location string) (json.RawMessage, error) {
	resp, err := c.gateway.Fetch(ctx, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset %s: %w", location, err)
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("failed to parse dataset %s: invalid JSON", location)
	}
	return UnwrapData(json.RawMessage(resp.Body)), nil
}
