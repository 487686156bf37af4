package entity

import "time"

// Association is the per-user library join row: the content item
// exists globally, but is only listed for users who have an
// association with it.
type Association struct {
	ContentItemID  int64
	UserID         string
	OrganizationID string
	CreatedAt      time.Time
}

// Validate enforces the fields required to write an association row.
func (a *Association) Validate() error {
	if a.ContentItemID <= 0 {
		return &ValidationError{Field: "content_item_id", Message: "is required"}
	}
	if a.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "is required"}
	}
	return nil
}
