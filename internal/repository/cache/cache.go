package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/nahlund/backend/tileserver/internal/tile"
)

// Kind discriminates the tile families sharing the cache.
type Kind uint8

const (
	LandTile Kind = iota
	WaterTile
	CustomModelTile
)

// Kinds lists every kind; each one owns a subdirectory of the disk tier.
var Kinds = []Kind{LandTile, WaterTile, CustomModelTile}

func (k Kind) String() string {
	switch k {
	case LandTile:
		return "land_tile"
	case WaterTile:
		return "water_tile"
	case CustomModelTile:
		return "custom_model_tile"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind accepts the canonical names and the short aliases used in URLs.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "land_tile", "land":
		return LandTile, nil
	case "water_tile", "water":
		return WaterTile, nil
	case "custom_model_tile", "custom":
		return CustomModelTile, nil
	default:
		return 0, fmt.Errorf("unknown tile kind %q", s)
	}
}

// Key indexes a record. It carries no payload and compares structurally.
type Key struct {
	Kind Kind
	Tile tile.ID
}

func (k Key) String() string {
	return k.Kind.String() + "/" + k.Tile.String()
}

// Predicate selects keys for bulk invalidation.
type Predicate func(Key) bool

// OfKind matches every key of the given kind.
func OfKind(kind Kind) Predicate {
	return func(k Key) bool { return k.Kind == kind }
}

// Record is the unit stored in both tiers. Records are never mutated; an
// update replaces the record.
type Record struct {
	Bytes        []byte
	RegisteredAt time.Time
}

func NewRecord(b []byte) Record {
	return Record{Bytes: b, RegisteredAt: time.Now()}
}

// Generator produces the payload for a missing key.
type Generator func(ctx context.Context) ([]byte, error)

// TileCache is implemented by each tier.
type TileCache interface {
	Lookup(ctx context.Context, k Key) (Record, bool, error)
	Insert(ctx context.Context, k Key, r Record) error
	InvalidateIf(p Predicate) int
	Len() int
}
