package source

import (
	"net/http"

	"insightfeed/internal/handler/http/auth"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/usecase/sources"
)

type ListHandler struct{ Svc sources.Service }

// ServeHTTP lists every source owned by the authenticated user.
// @Summary      List sources
// @Description  Returns all content sources owned by the caller
// @Tags         sources
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} DTO
// @Failure      401 {string} string "unauthorized"
// @Router       /sources [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserFromContext(r.Context())
	list, err := h.Svc.List(r.Context(), userID)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, s := range list {
		out = append(out, toDTO(s))
	}
	respond.JSON(w, http.StatusOK, out)
}
