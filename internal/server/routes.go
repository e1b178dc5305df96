package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aeternum-guides/nwdb/internal/cache"
	"github.com/aeternum-guides/nwdb/internal/nwdb"
)

func (s *Server) registerRoutes(router *gin.RouterGroup) {
	router.GET("/search/items", s.searchItems)

	router.GET("/entities/:type/:id", s.getEntity)
	router.GET("/items/:id", s.getItem)
	router.GET("/perks/:id", s.getPerk)

	router.GET("/item-types/:type/perks", s.searchPerks)
	router.GET("/perks/:id/items/summary", s.perkItemsSummary)
	router.GET("/items/:id/objectives", s.itemObjectives)

	admin := router.Group("/admin")
	admin.GET("/cache/stats", s.cacheStats)
	admin.POST("/cache/clear", s.clearCache)
	admin.POST("/catalog/refresh", s.refreshCatalog)
}

// queryLimit reads ?limit=; absent means 0 (the call site's cap)
func queryLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		abortBadRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func (s *Server) searchItems(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	ranked := false
	if raw := c.Query("ranked"); raw != "" {
		var err error
		if ranked, err = strconv.ParseBool(raw); err != nil {
			abortBadRequest(c, "ranked must be a boolean")
			return
		}
	}

	ctx := c.Request.Context()
	var results []nwdb.SearchCandidate
	if ranked {
		results = s.client.SearchItemsRanked(ctx, c.Query("q"), limit)
	} else {
		results = s.client.SearchItems(ctx, c.Query("q"), limit)
	}
	c.JSON(http.StatusOK, newListResponse(results))
}

func (s *Server) writeDetails(c *gin.Context, entityType, entityID string) {
	raw, err := s.client.GetEntityDetails(c.Request.Context(), entityType, entityID)
	if err != nil {
		abortWithUpstreamError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) getEntity(c *gin.Context) {
	s.writeDetails(c, c.Param("type"), c.Param("id"))
}

func (s *Server) getItem(c *gin.Context) {
	s.writeDetails(c, "item", c.Param("id"))
}

func (s *Server) getPerk(c *gin.Context) {
	s.writeDetails(c, "perk", c.Param("id"))
}

func (s *Server) searchPerks(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	results := s.client.SearchPerksForItemType(c.Request.Context(), c.Param("type"), c.Query("q"), limit)
	c.JSON(http.StatusOK, newListResponse(results))
}

func (s *Server) perkItemsSummary(c *gin.Context) {
	summary, err := s.client.FetchItemsByPerkSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) itemObjectives(c *gin.Context) {
	sentences := s.objectives.BuildArtifactObjectives(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, newListResponse(sentences))
}

func (s *Server) cacheStats(c *gin.Context) {
	stats, err := s.cache.GetStats(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GeneralResponse[cache.Stats]{Status: ResponseStatusOK, Result: stats})
}

func (s *Server) clearCache(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.cache.Clear(ctx); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	s.logger.WithField("request_id", RequestID(ctx)).Info("Cache cleared")
	s.cacheStats(c)
}

func (s *Server) refreshCatalog(c *gin.Context) {
	ctx := c.Request.Context()
	catalog, err := s.client.RefreshCatalog(ctx)
	if err != nil {
		abortWithUpstreamError(c, err)
		return
	}
	s.logger.WithField("request_id", RequestID(ctx)).Infof("Catalog refreshed with %d items", len(catalog))
	c.JSON(http.StatusOK, GeneralResponse[CatalogRefresh]{
		Status: ResponseStatusOK,
		Result: CatalogRefresh{Items: len(catalog)},
	})
}
