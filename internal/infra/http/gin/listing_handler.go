package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentdetail/internal/app/dto"
	listingapp "rentdetail/internal/app/handlers/listings"
	"rentdetail/internal/app/queries"
	"rentdetail/internal/domain/listings"
)

// ListingHandler wires listing queries to HTTP.
type ListingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Catalog responds with a filtered collection of listings.
func (h ListingHandler) Catalog(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listing handler unavailable"})
		return
	}
	query := listingapp.SearchCatalogQuery{
		City:   c.Query("city"),
		Region: c.Query("region"),
		Text:   c.Query("q"),
		Limit:  parseIntWithDefault(c.Query("limit"), 24),
		Offset: parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Detail(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listing handler unavailable"})
		return
	}
	query := listingapp.GetDetailQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[listingapp.GetDetailQuery, dto.ListingDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, listings.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
	case errors.Is(err, listingapp.ErrCatalogUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listings temporarily unavailable"})
	default:
		if h.Logger != nil {
			h.Logger.Error("listing query failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ListingHTTP = ListingHandler{}

func parseInt(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}

func parseIntWithDefault(raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}
