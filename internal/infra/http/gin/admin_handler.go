package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentdetail/internal/app/commands"
	listingapp "rentdetail/internal/app/handlers/listings"
	"rentdetail/internal/app/middleware"
)

type AdminHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

// InvalidateCache drops the shared listing cache. Requires the operator token.
func (h AdminHandler) InvalidateCache(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin handler unavailable"})
		return
	}
	cmd := listingapp.InvalidateCatalogCommand{
		Reason:    "admin",
		ListingID: c.Query("listing_id"),
	}
	_, err := commands.Dispatch[listingapp.InvalidateCatalogCommand, listingapp.InvalidationResult](c.Request.Context(), h.Commands, cmd)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, middleware.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		if h.Logger != nil {
			h.Logger.Error("cache invalidation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot invalidate cache"})
	}
}

var _ AdminHTTP = AdminHandler{}
