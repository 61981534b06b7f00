package model

// Category is one of the fixed cosmetic categories an inventory entry can fall into.
type Category string

const (
	CategorySkins      Category = "skins"
	CategoryBackblings Category = "backblings"
	CategoryPickaxes   Category = "pickaxes"
	CategoryEmotes     Category = "emotes"
	CategoryGliders    Category = "gliders"
)

// Categories lists every category in processing order.
var Categories = []Category{
	CategorySkins,
	CategoryBackblings,
	CategoryPickaxes,
	CategoryEmotes,
	CategoryGliders,
}

// InventoryEntry is a raw profile item after classification.
type InventoryEntry struct {
	EntryID    string   `json:"id"`
	TemplateID string   `json:"templateId"`
	Category   Category `json:"category"`
}

// CatalogRecord is a display-ready description of a cosmetic.
// Name, Rarity and Type are never empty; Image is nil when unknown.
type CatalogRecord struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rarity string  `json:"rarity"`
	Type   string  `json:"type"`
	Image  *string `json:"image"`
}
