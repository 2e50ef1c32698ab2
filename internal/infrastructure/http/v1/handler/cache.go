package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nahlund/backend/tileserver/internal/infrastructure/http/v1/dto"
	"github.com/nahlund/backend/tileserver/internal/repository/cache"
)

// EvictCache drops every cached tile of one kind from both tiers.
func (h *Handler) EvictCache(c *gin.Context) {
	var p dto.KindParams
	if err := c.ShouldBindUri(&p); err != nil {
		h.RespondWithBadRequest(c, err)
		return
	}
	if err := h.validate.Struct(p); err != nil {
		h.RespondWithBadRequest(c, err)
		return
	}
	kind, err := cache.ParseKind(p.Kind)
	if err != nil {
		h.RespondWithBadRequest(c, err)
		return
	}

	memory, disk := h.tiles.Evict(kind)

	h.RespondWithJSON(c, http.StatusOK, "evicted", dto.EvictResponse{
		Kind:          kind.String(),
		MemoryEvicted: memory,
		DiskEvicted:   disk,
	})
}

func (h *Handler) CacheStats(c *gin.Context) {
	var resp dto.StatsResponse = h.tiles.Stats()
	h.RespondWithJSON(c, http.StatusOK, "cache stats", resp)
}
