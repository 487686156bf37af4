package entity

// PrivateContentItem is structurally identical to ContentItem but
// gated by organization id. It exists as a distinct Go type (rather
// than reusing ContentItem with a nullable org id) so the persistence
// layer and reprocess gating (themed_insights requires a private/org
// context) can dispatch on type rather than on a nullable-field check.
type PrivateContentItem struct {
	ContentItem
	OrganizationID string
}

// Validate delegates to the embedded ContentItem and additionally
// requires an organization id, since private items are always
// org-scoped.
func (p *PrivateContentItem) Validate() error {
	if p.OrganizationID == "" {
		return &ValidationError{Field: "organization_id", Message: "is required for private content items"}
	}
	return p.ContentItem.Validate()
}
