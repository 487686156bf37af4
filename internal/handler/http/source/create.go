package source

import (
	"encoding/json"
	"net/http"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/handler/http/auth"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/usecase/sources"
)

type CreateHandler struct{ Svc sources.Service }

// ServeHTTP creates a new source owned by the authenticated user.
// @Summary      Create source
// @Description  Registers a new content source for the caller
// @Tags         sources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        source body object true "source fields"
// @Success      201 {object} DTO
// @Failure      400 {string} string "invalid input"
// @Failure      401 {string} string "unauthorized"
// @Router       /sources [post]
func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title      string `json:"title"`
		URL        string `json:"url"`
		SourceType string `json:"source_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	userID := auth.UserFromContext(r.Context())
	src, err := h.Svc.Create(r.Context(), sources.CreateInput{
		UserID:     userID,
		Title:      req.Title,
		URL:        req.URL,
		SourceType: entity.SourceType(req.SourceType),
	})
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toDTO(src))
}
