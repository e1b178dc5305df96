package nwdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Entity is the normalized subset of a single-entity response
type Entity struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
	Type string     `json:"type,omitempty"`
}

// EntityPath builds /db/<type>/<id>.json with the type trimmed and lower-cased
func EntityPath(entityType, entityID string) string {
	return fmt.Sprintf("/db/%s/%s.json",
		strings.ToLower(strings.TrimSpace(entityType)), url.PathEscape(entityID))
}

// EntityURL is the human-facing page for an entity
func (c *Client) EntityURL(entityType, entityID string) string {
	return fmt.Sprintf("%s/db/%s/%s",
		c.gateway.BaseURL(), strings.ToLower(strings.TrimSpace(entityType)), url.PathEscape(entityID))
}

// GetEntityDetails fetches one entity as raw JSON. It does not cache and does
// not validate entityType; unknown types come back as upstream 404s.
func (c *Client) GetEntityDetails(ctx context.Context, entityType, entityID string) (json.RawMessage, error) {
	resp, err := c.gateway.Fetch(ctx, EntityPath(entityType, entityID), nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("failed to parse response JSON for %s %s", entityType, entityID)
	}
	return json.RawMessage(resp.Body), nil
}

// GetItemDetails fetches an item by id
func (c *Client) GetItemDetails(ctx context.Context, itemID string) (json.RawMessage, error) {
	return c.GetEntityDetails(ctx, "item", itemID)
}

// GetPerkDetails fetches a perk by id
func (c *Client) GetPerkDetails(ctx context.Context, perkID string) (json.RawMessage, error) {
	return c.GetEntityDetails(ctx, "perk", perkID)
}

// GetEntity fetches and normalizes an entity, unwrapping a {"data": ...} envelope
func (c *Client) GetEntity(ctx context.Context, entityType, entityID string) (*Entity, error) {
	raw, err := c.GetEntityDetails(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	var entity Entity
	if err := json.Unmarshal(UnwrapData(raw), &entity); err != nil {
		return nil, fmt.Errorf("failed to parse %s %s: %w", entityType, entityID, err)
	}
	if entity.Type == "" {
		entity.Type = strings.ToLower(strings.TrimSpace(entityType))
	}
	return &entity, nil
}

// GetCreature fetches a creature by id
func (c *Client) GetCreature(ctx context.Context, creatureID string) (*Entity, error) {
	return c.GetEntity(ctx, "creature", creatureID)
}

// GetZone fetches a zone (territory or point of interest) by id
func (c *Client) GetZone(ctx context.Context, zoneID string) (*Entity, error) {
	return c.GetEntity(ctx, "zone", zoneID)
}
