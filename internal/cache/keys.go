package cache

import "strings"

// RefKind names a cross-reference namespace.
type RefKind string

const (
	RefCreature RefKind = "creature"
	RefZone     RefKind = "zone"
	RefGameMode RefKind = "gamemode"
)

const catalogKey = "catalog:all"

// CatalogKey is the key of the projected search catalog.
func CatalogKey() string {
	return catalogKey
}

// PerksForItemTypeKey keys the merged perk listing for an item type.
func PerksForItemTypeKey(itemType string) string {
	return "perks:" + normalizeKeyPart(itemType)
}

// ItemsByPerkKey keys the merged item listing for a perk.
func ItemsByPerkKey(perkID string) string {
	return "perkitems:" + normalizeKeyPart(perkID)
}

// ItemsByPerkSummaryKey keys the first-page summary of items granting a perk.
func ItemsByPerkSummaryKey(perkID string) string {
	return "perkitems-summary:" + normalizeKeyPart(perkID)
}

// RefKey keys a resolved cross-reference as "<kind>:<id>".
func RefKey(kind RefKind, id string) string {
	return string(kind) + ":" + strings.TrimSpace(id)
}

// DatasetKey keys a bulk reference dataset.
func DatasetKey(name string) string {
	return "dataset:" + normalizeKeyPart(name)
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
