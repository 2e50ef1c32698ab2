package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nahlund/backend/tileserver/internal/infrastructure/http/v1/dto"
	"github.com/nahlund/backend/tileserver/internal/repository/cache"
	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/internal/usecase"
	"github.com/nahlund/backend/tileserver/pkg/logger"
)

const (
	glbContentType = "model/gltf-binary"

	maxModelSize = 32 << 20
)

func (h *Handler) bindTile(c *gin.Context) (cache.Kind, tile.ID, error) {
	var p dto.TileParams
	if err := c.ShouldBindUri(&p); err != nil {
		return 0, tile.ID{}, fmt.Errorf("%w: %v", ErrInvalidTileAddress, err)
	}
	if err := h.validate.Struct(p); err != nil {
		return 0, tile.ID{}, fmt.Errorf("%w: %v", ErrInvalidTileAddress, err)
	}

	kind, err := cache.ParseKind(p.Kind)
	if err != nil {
		return 0, tile.ID{}, fmt.Errorf("%w: %v", ErrInvalidTileAddress, err)
	}
	id, err := tile.NewID(p.Z, p.X, p.Y)
	if err != nil {
		return 0, tile.ID{}, fmt.Errorf("%w: %v", ErrInvalidTileAddress, err)
	}

	return kind, id, nil
}

func (h *Handler) bindCoords(c *gin.Context) (tile.ID, error) {
	var p dto.CoordParams
	if err := c.ShouldBindUri(&p); err != nil {
		return tile.ID{}, fmt.Errorf("%w: %v", ErrInvalidTileAddress, err)
	}
	if err := h.validate.Struct(p); err != nil {
		return tile.ID{}, fmt.Errorf("%w: %v", ErrInvalidTileAddress, err)
	}

	id, err := tile.NewID(p.Z, p.X, p.Y)
	if err != nil {
		return tile.ID{}, fmt.Errorf("%w: %v", ErrInvalidTileAddress, err)
	}
	return id, nil
}

// Tile serves a GLB tile, generating it on a cache miss.
func (h *Handler) Tile(c *gin.Context) {
	l := logger.FromContext(c.Request.Context())

	kind, id, err := h.bindTile(c)
	if err != nil {
		h.RespondWithBadRequest(c, err)
		return
	}

	data, err := h.tiles.GetTile(c.Request.Context(), kind, id)
	if err != nil {
		h.respondWithTileError(c, err)
		return
	}

	l.Debug("served tile", "kind", kind.String(), "tile", id.String(), "size", len(data))

	c.Data(http.StatusOK, glbContentType, data)
}

// PutCustomTile replaces the uploaded model for a tile.
func (h *Handler) PutCustomTile(c *gin.Context) {
	id, err := h.bindCoords(c)
	if err != nil {
		h.RespondWithBadRequest(c, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxModelSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.RespondWithJSON(c, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge.Error(), nil)
			return
		}
		h.RespondWithBadRequest(c, ErrFailedToDecodeRequestBody)
		return
	}

	if err := h.tiles.StoreCustomTile(c.Request.Context(), id, body); err != nil {
		if errors.Is(err, usecase.ErrInvalidModel) {
			h.RespondWithBadRequest(c, err)
			return
		}
		h.RespondWithInternalServerError(c)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "stored tile", gin.H{"tile": id.String(), "size": len(body)})
}

func (h *Handler) respondWithTileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrTileNotFound):
		h.RespondWithJSON(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, usecase.ErrUpstream):
		h.RespondWithJSON(c, http.StatusBadGateway, err.Error(), nil)
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the response
		c.Status(499)
	case errors.Is(err, context.DeadlineExceeded):
		h.RespondWithJSON(c, http.StatusGatewayTimeout, err.Error(), nil)
	default:
		h.RespondWithInternalServerError(c)
	}
}
