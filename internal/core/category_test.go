package core

import "testing"

func TestResolveCategoryLabel(t *testing.T) {
	name, color := ResolveCategoryLabel(nil, "#999")
	if name != UncategorizedLabel || color != "#999" {
		t.Fatalf("nil category resolved to %q %q", name, color)
	}
	name, color = ResolveCategoryLabel(&Category{Name: "Food"}, "#999")
	if name != "Food" || color != "#999" {
		t.Fatalf("colorless category resolved to %q %q", name, color)
	}
	name, color = ResolveCategoryLabel(&Category{Name: "Rent", ColorHex: "#f00"}, "#999")
	if name != "Rent" || color != "#f00" {
		t.Fatalf("colored category resolved to %q %q", name, color)
	}
}

func TestPaletteColor(t *testing.T) {
	if PaletteColor(0) != "chart-1" || PaletteColor(4) != "chart-5" || PaletteColor(5) != "chart-1" {
		t.Fatal("palette must cycle through five chart colors")
	}
}
