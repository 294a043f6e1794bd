package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drak905/replit-kara/internal/service"
)

// SearchHandler proxies free-text search to the external video API.
type SearchHandler struct {
	searchService *service.SearchService
}

func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	if searchService == nil {
		panic("SearchService cannot be nil for SearchHandler")
	}
	return &SearchHandler{searchService: searchService}
}

// Search handles GET /api/search?q=.
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		ErrorResponse(c, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	results, err := h.searchService.Search(c.Request.Context(), query)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"results": results})
}
