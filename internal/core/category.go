package core

import "fmt"

// UncategorizedLabel names the bucket of transactions without a category.
const UncategorizedLabel = "Uncategorized"

// ResolveCategoryLabel returns the display name and color for c. A nil
// category resolves to UncategorizedLabel; a missing color to defaultColor.
func ResolveCategoryLabel(c *Category, defaultColor string) (string, string) {
	if c == nil {
		return UncategorizedLabel, defaultColor
	}
	color := c.ColorHex
	if color == "" {
		color = defaultColor
	}
	return c.Name, color
}

// PaletteColor is the chart fallback for the rank-th slice of a breakdown.
func PaletteColor(rank int) string {
	if rank < 0 {
		rank = -rank
	}
	return fmt.Sprintf("chart-%d", rank%5+1)
}
