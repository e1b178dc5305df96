package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aeternum-guides/nwdb/internal/nwdb"
)

// ResponseStatusOK is the status of every successful envelope
const ResponseStatusOK = "ok"

type ErrorResponse struct {
	Error string `json:"error"`
}

type GeneralResponse[T any] struct {
	Status string `json:"status"`
	Result T      `json:"result"`
}

type ListResponse[T any] struct {
	Status  string `json:"status"`
	Total   int    `json:"total"`
	Results []T    `json:"results"`
}

// CatalogRefresh reports the size of a freshly loaded search catalog
type CatalogRefresh struct {
	Items int `json:"items"`
}

func newListResponse[T any](results []T) ListResponse[T] {
	if results == nil {
		results = []T{}
	}
	return ListResponse[T]{Status: ResponseStatusOK, Total: len(results), Results: results}
}

// abortWithUpstreamError maps an upstream failure onto the response: 304 for
// not-modified, 404 for upstream 404s and 502 for everything else
func abortWithUpstreamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, nwdb.ErrNotModified):
		c.AbortWithStatus(http.StatusNotModified)
	case nwdb.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}
}

func abortBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: message})
}
