package source

import (
	"encoding/json"
	"errors"
	"net/http"

	"insightfeed/internal/handler/http/auth"
	"insightfeed/internal/handler/http/pathutil"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/usecase/sources"
)

type UpdateHandler struct{ Svc sources.Service }

// ServeHTTP applies a partial update to a source owned by the
// authenticated user.
// @Summary      Update source
// @Description  Partially updates a source; omitted fields are left unchanged
// @Tags         sources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "source id"
// @Param        source body object true "fields to update"
// @Success      200 {object} DTO
// @Failure      400 {string} string "invalid input"
// @Failure      404 {string} string "not found"
// @Router       /sources/{id} [patch]
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/sources/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Title  string `json:"title"`
		URL    string `json:"url"`
		Active *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	userID := auth.UserFromContext(r.Context())
	src, err := h.Svc.Update(r.Context(), sources.UpdateInput{
		ID:     id,
		UserID: userID,
		Title:  req.Title,
		URL:    req.URL,
		Active: req.Active,
	})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, sources.ErrSourceNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(src))
}
