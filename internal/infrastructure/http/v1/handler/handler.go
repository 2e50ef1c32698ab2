package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nahlund/backend/tileserver/internal/repository/cache"
	"github.com/nahlund/backend/tileserver/internal/tile"
)

const (
	internalServerErrorText = "the server encountered an error and could not process your request"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// TileService is what the handlers need from the tile use case.
type TileService interface {
	GetTile(ctx context.Context, kind cache.Kind, id tile.ID) ([]byte, error)
	StoreCustomTile(ctx context.Context, id tile.ID, data []byte) error
	Evict(kind cache.Kind) (memory, disk int)
	Stats() cache.Stats
}

type Handler struct {
	validate *validator.Validate
	tiles    TileService
}

func NewHandler(v *validator.Validate, tiles TileService) *Handler {
	return &Handler{
		validate: v,
		tiles:    tiles,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}

func (h *Handler) RespondWithBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
	})
}
