package cache

import (
	"testing"

	"github.com/nahlund/backend/tileserver/internal/tile"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"land_tile", LandTile},
		{"land", LandTile},
		{"water_tile", WaterTile},
		{"water", WaterTile},
		{"custom_model_tile", CustomModelTile},
		{"custom", CustomModelTile},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKind("voxel"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestKindNamesRoundTrip(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = (%v, %v)", k.String(), got, err)
		}
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Kind: WaterTile, Tile: tile.ID{X: 232837, Y: 103208, Z: 18}}
	if got := k.String(); got != "water_tile/232837_103208_18" {
		t.Fatalf("Key.String() = %q", got)
	}
}

func TestOfKind(t *testing.T) {
	p := OfKind(LandTile)
	if !p(Key{Kind: LandTile}) || p(Key{Kind: WaterTile}) {
		t.Fatal("OfKind matched the wrong kinds")
	}
}
