package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// KnownChannelRepo implements repository.KnownChannelRepository.
type KnownChannelRepo struct{ db Queryer }

func NewKnownChannelRepo(db Queryer) repository.KnownChannelRepository {
	return &KnownChannelRepo{db: db}
}

func (r *KnownChannelRepo) FindByCanonicalURL(ctx context.Context, canonicalURL string) (*entity.KnownChannel, error) {
	const query = `SELECT id, canonical_url, preferred_url, preferred_platform FROM known_channels WHERE canonical_url = $1`
	var k entity.KnownChannel
	var platform sql.NullString
	err := r.db.QueryRowContext(ctx, query, canonicalURL).Scan(&k.ID, &k.CanonicalURL, &k.PreferredURL, &platform)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByCanonicalURL: %w", err)
	}
	k.PreferredPlatform = platform.String
	return &k, nil
}
