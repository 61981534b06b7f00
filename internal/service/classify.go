package service

import (
	"strings"

	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/upstream"
)

const founderNone = "None"

type categoryRule struct {
	category model.Category
	patterns []string
}

// categoryRules is evaluated in order; the first match wins.
var categoryRules = []categoryRule{
	{model.CategorySkins, []string{"athenacharacter", "cid_"}},
	{model.CategoryBackblings, []string{"athenabackpack", "bid_"}},
	{model.CategoryPickaxes, []string{"athenapickaxe", "pickaxe_id"}},
	{model.CategoryEmotes, []string{"athenadance", "eid_"}},
	{model.CategoryGliders, []string{"athenaglider", "glider_id"}},
}

// Classify returns the category of a templateId. Loading screens and
// unrecognised templates report false.
func Classify(templateID string) (model.Category, bool) {
	t := strings.ToLower(templateID)
	if strings.Contains(t, "loadingscreen") {
		return "", false
	}
	for _, rule := range categoryRules {
		for _, p := range rule.patterns {
			if strings.Contains(t, p) {
				return rule.category, true
			}
		}
	}
	return "", false
}

// ClassifyItems groups athena items by category, keeping item order.
func ClassifyItems(items upstream.ProfileItems) map[model.Category][]model.InventoryEntry {
	out := make(map[model.Category][]model.InventoryEntry, len(model.Categories))
	for _, item := range items {
		cat, ok := Classify(item.TemplateID)
		if !ok {
			continue
		}
		out[cat] = append(out[cat], model.InventoryEntry{
			EntryID:    item.ID,
			TemplateID: item.TemplateID,
			Category:   cat,
		})
	}
	return out
}

// CatalogID derives the lookup id from a templateId: the lower-cased second
// ':'-separated segment, or the whole lower-cased templateId when there is none.
func CatalogID(templateID string) string {
	parts := strings.Split(templateID, ":")
	if len(parts) > 1 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}
	return strings.ToLower(templateID)
}

// VBucks sums the quantity of every Currency:Mtx* item.
func VBucks(items upstream.ProfileItems) int64 {
	var total int64
	for _, item := range items {
		if strings.HasPrefix(item.TemplateID, "Currency:Mtx") {
			total += int64(item.Quantity)
		}
	}
	return total
}

// Founder returns the templateId of the last item mentioning "founder", or "None".
func Founder(items upstream.ProfileItems) string {
	found := founderNone
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.TemplateID), "founder") {
			found = item.TemplateID
		}
	}
	return found
}
