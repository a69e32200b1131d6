package model

// Category groups items for filtering and reporting. Value doubles as the
// document key and the display fallback when Label is empty. Deleting a
// category never cascades to items that reference it.
type Category struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DisplayLabel returns the label, falling back to the value.
func (c Category) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Value
}

// DefaultCategories returns the reference categories seeded into an empty
// category collection.
func DefaultCategories() []Category {
	return []Category{
		{Value: "Audio", Label: "Audio (Mics, Mixers)"},
		{Value: "Video", Label: "Video (Cameras, Projectors)"},
		{Value: "Lighting", Label: "Lighting (LEDs, Spotlights)"},
		{Value: "Accessories", Label: "Accessories (Cables, Stands)"},
	}
}
