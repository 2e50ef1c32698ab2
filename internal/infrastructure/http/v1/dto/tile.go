package dto

import "github.com/nahlund/backend/tileserver/internal/repository/cache"

// TileParams are the path parameters addressing one tile.
type TileParams struct {
	Kind string `uri:"kind" validate:"required,oneof=land water custom land_tile water_tile custom_model_tile"`
	Z    int    `uri:"z" validate:"gte=0,lte=24"`
	X    int    `uri:"x" validate:"gte=0"`
	Y    int    `uri:"y" validate:"gte=0"`
}

// CoordParams address a tile whose kind is fixed by the route.
type CoordParams struct {
	Z int `uri:"z" validate:"gte=0,lte=24"`
	X int `uri:"x" validate:"gte=0"`
	Y int `uri:"y" validate:"gte=0"`
}

type KindParams struct {
	Kind string `uri:"kind" validate:"required,oneof=land water custom land_tile water_tile custom_model_tile"`
}

type EvictResponse struct {
	Kind          string `json:"kind"`
	MemoryEvicted int    `json:"memory_evicted"`
	DiskEvicted   int    `json:"disk_evicted"`
}

type StatsResponse = cache.Stats
