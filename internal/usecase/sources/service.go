// Package sources implements per-user CRUD over content_sources
// rows, with every operation scoped to the owning user id as
// content_source.go requires.
package sources

import (
	"context"
	"errors"
	"fmt"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// ErrSourceNotFound is returned by Update/Delete when the id does not
// exist, or exists but belongs to a different user.
var ErrSourceNotFound = errors.New("source not found")

// CreateInput is the input to Create.
type CreateInput struct {
	UserID     string
	Title      string
	URL        string
	SourceType entity.SourceType
}

// UpdateInput updates an existing source. Empty string fields and a
// nil Active leave the corresponding column unchanged.
type UpdateInput struct {
	ID     int64
	UserID string
	Title  string
	URL    string
	Active *bool
}

// Service provides source management use cases over
// repository.ContentSourceRepository, scoping every mutation to the
// requesting user.
type Service struct {
	Repo repository.ContentSourceRepository
}

// List returns every source owned by userID.
func (s Service) List(ctx context.Context, userID string) ([]*entity.ContentSource, error) {
	list, err := s.Repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return list, nil
}

// Create validates and persists a new content source for in.UserID.
func (s Service) Create(ctx context.Context, in CreateInput) (*entity.ContentSource, error) {
	src := &entity.ContentSource{
		UserID:     in.UserID,
		Title:      in.Title,
		URL:        in.URL,
		SourceType: in.SourceType,
		IsActive:   true,
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	return src, nil
}

// Update applies a partial update, scoped to the source's owner.
// Returns ErrSourceNotFound if the source does not exist or is not
// owned by in.UserID.
func (s Service) Update(ctx context.Context, in UpdateInput) (*entity.ContentSource, error) {
	src, err := s.Repo.Get(ctx, in.ID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	if src.UserID != in.UserID {
		return nil, ErrSourceNotFound
	}

	if in.Title != "" {
		src.Title = in.Title
	}
	if in.URL != "" {
		src.URL = in.URL
	}
	if in.Active != nil {
		src.IsActive = *in.Active
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, src); err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	return src, nil
}

// Delete removes a source, scoped to the owner. Returns
// ErrSourceNotFound if the source does not exist or belongs to
// another user.
func (s Service) Delete(ctx context.Context, userID string, id int64) error {
	src, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return ErrSourceNotFound
		}
		return fmt.Errorf("get source: %w", err)
	}
	if src.UserID != userID {
		return ErrSourceNotFound
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}
