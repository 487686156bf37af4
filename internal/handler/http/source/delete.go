package source

import (
	"errors"
	"net/http"

	"insightfeed/internal/handler/http/auth"
	"insightfeed/internal/handler/http/pathutil"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/usecase/sources"
)

type DeleteHandler struct{ Svc sources.Service }

// ServeHTTP deletes a source owned by the authenticated user.
// @Summary      Delete source
// @Tags         sources
// @Security     BearerAuth
// @Param        id path int true "source id"
// @Success      204 "No Content"
// @Failure      400 {string} string "invalid id"
// @Failure      404 {string} string "not found"
// @Router       /sources/{id} [delete]
func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/sources/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	userID := auth.UserFromContext(r.Context())
	if err := h.Svc.Delete(r.Context(), userID, id); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, sources.ErrSourceNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
