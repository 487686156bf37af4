package reprocess

import (
	"net/http"
	"strconv"

	"insightfeed/internal/common/pagination"
	"insightfeed/internal/domain/entity"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/repository"
)

// ListHandler implements "GET /reprocess/list?is_private&search&limit&offset",
// the paginated listing the reprocess UI drives. Pagination
// accepts either page/limit or an explicit offset; an explicit offset
// wins when both are supplied.
type ListHandler struct {
	ContentItems        repository.ContentItemRepository
	PrivateContentItems repository.PrivateContentItemRepository
	UserOrOrg           func(r *http.Request, isPrivate bool) string
	DefaultLimit        int
	MaxLimit            int
}

type listItemDTO struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	CanonicalURL string `json:"canonical_url"`
	ContentType  string `json:"content_type"`
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	isPrivate := r.URL.Query().Get("is_private") == "true"
	search := r.URL.Query().Get("search")

	cfg := pagination.Config{DefaultPage: 1, DefaultLimit: h.DefaultLimit, MaxLimit: h.MaxLimit}
	params, err := pagination.ParseQueryParams(r, cfg)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	offset := pagination.CalculateOffset(params.Page, params.Limit)
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, perr := strconv.Atoi(raw); perr == nil && v >= 0 {
			offset = v
			params.Page = offset/params.Limit + 1
		}
	}

	scope := h.UserOrOrg(r, isPrivate)

	var (
		out   []listItemDTO
		total int64
	)
	if isPrivate {
		items, err := h.PrivateContentItems.ListForOrg(r.Context(), scope, search, offset, params.Limit)
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		total, err = h.PrivateContentItems.CountForOrg(r.Context(), scope, search)
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		out = make([]listItemDTO, 0, len(items))
		for _, it := range items {
			out = append(out, toListItemDTO(&it.ContentItem))
		}
	} else {
		items, err := h.ContentItems.ListForUser(r.Context(), scope, search, repository.ContentItemFilters{}, offset, params.Limit)
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		total, err = h.ContentItems.CountForUser(r.Context(), scope, search, repository.ContentItemFilters{})
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		out = make([]listItemDTO, 0, len(items))
		for _, it := range items {
			out = append(out, toListItemDTO(it))
		}
	}

	meta := pagination.Metadata{
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pagination.CalculateTotalPages(total, params.Limit),
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(out, meta))
}

func toListItemDTO(item *entity.ContentItem) listItemDTO {
	return listItemDTO{
		ID:           item.ID,
		Title:        item.Title,
		CanonicalURL: item.CanonicalURL,
		ContentType:  string(item.ContentType),
	}
}
