package reprocess

import (
	"net/http"
	"strconv"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/repository"
	"insightfeed/internal/usecase/orchestrator"
)

// InfoHandler implements "GET /reprocess/info?article_id&is_private",
// reporting which steps are currently runnable and, for the rest, why
// not.
type InfoHandler struct {
	ContentItems        repository.ContentItemRepository
	PrivateContentItems repository.PrivateContentItemRepository
}

type stepInfo struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (h InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("article_id"), 10, 64)
	if err != nil || id <= 0 {
		respond.SafeError(w, http.StatusBadRequest, errArticleIDRequired)
		return
	}
	isPrivate := r.URL.Query().Get("is_private") == "true"

	var item *entity.ContentItem
	if isPrivate {
		private, err := h.PrivateContentItems.Get(r.Context(), id)
		if err != nil {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		item = &private.ContentItem
	} else {
		item, err = h.ContentItems.Get(r.Context(), id)
		if err != nil {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
	}

	available := orchestrator.AvailableSteps(item, isPrivate)
	out := make(map[string]stepInfo, len(available))
	for step, result := range available {
		out[step] = stepInfo{Status: result.Status, Reason: result.Reason}
	}
	respond.JSON(w, http.StatusOK, out)
}
