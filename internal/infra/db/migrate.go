package db

import (
	"database/sql"
)

// MigrateUp creates the full schema
// (CREATE TABLE IF NOT EXISTS, explicit
// index list, pgvector extension bootstrap, tolerant of a missing
// superuser role for CREATE EXTENSION).
func MigrateUp(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS content_items (
    id                   SERIAL PRIMARY KEY,
    title                TEXT NOT NULL,
    canonical_url        TEXT NOT NULL UNIQUE,
    content_type         VARCHAR(20) NOT NULL,
    platform             VARCHAR(50) NOT NULL DEFAULT 'generic',
    video_id             TEXT,
    audio_url            TEXT,
    word_count           INT NOT NULL DEFAULT 0,
    duration_seconds     INT,
    summary_text         TEXT,
    summary_html         TEXT,
    transcript_text      TEXT,
    key_insights         JSONB NOT NULL DEFAULT '[]',
    quotes               JSONB NOT NULL DEFAULT '[]',
    topics               JSONB NOT NULL DEFAULT '[]',
    earnings_insights    JSONB,
    media_bucket         TEXT,
    media_storage_path   TEXT,
    media_uploaded_at    TIMESTAMPTZ,
    media_mime_type      TEXT,
    media_size_bytes     BIGINT,
    media_duration_sec   INT,
    media_is_permanent   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS private_content_items (
    id                   SERIAL PRIMARY KEY,
    organization_id      TEXT NOT NULL,
    title                TEXT NOT NULL,
    canonical_url        TEXT NOT NULL,
    content_type         VARCHAR(20) NOT NULL,
    platform             VARCHAR(50) NOT NULL DEFAULT 'generic',
    video_id             TEXT,
    audio_url            TEXT,
    word_count           INT NOT NULL DEFAULT 0,
    duration_seconds     INT,
    summary_text         TEXT,
    summary_html         TEXT,
    transcript_text      TEXT,
    key_insights         JSONB NOT NULL DEFAULT '[]',
    quotes               JSONB NOT NULL DEFAULT '[]',
    topics               JSONB NOT NULL DEFAULT '[]',
    earnings_insights    JSONB,
    media_bucket         TEXT,
    media_storage_path   TEXT,
    media_uploaded_at    TIMESTAMPTZ,
    media_mime_type      TEXT,
    media_size_bytes     BIGINT,
    media_duration_sec   INT,
    media_is_permanent   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(organization_id, canonical_url)
)`,
		`CREATE TABLE IF NOT EXISTS content_item_associations (
    content_item_id  INTEGER NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
    user_id          TEXT NOT NULL,
    organization_id  TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (content_item_id, user_id)
)`,
		`CREATE TABLE IF NOT EXISTS content_queue (
    id                SERIAL PRIMARY KEY,
    url               TEXT NOT NULL UNIQUE,
    title             TEXT,
    content_type      VARCHAR(20) NOT NULL,
    channel_title     TEXT,
    channel_url       TEXT,
    video_url         TEXT,
    platform          TEXT,
    source_feed       TEXT,
    found_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    published_date    TIMESTAMPTZ,
    status            VARCHAR(20) NOT NULL DEFAULT 'discovered',
    podcast_uuid      TEXT,
    episode_uuid      TEXT,
    duration_seconds  INT,
    played_up_to      INT,
    progress_percent  DOUBLE PRECISION,
    playing_status    TEXT
)`,
		`CREATE TABLE IF NOT EXISTS content_sources (
    id              SERIAL PRIMARY KEY,
    user_id         TEXT NOT NULL,
    title           TEXT NOT NULL,
    url             TEXT NOT NULL,
    source_type     VARCHAR(20) NOT NULL,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    last_checked_at TIMESTAMPTZ,
    UNIQUE(user_id, url)
)`,
		`CREATE TABLE IF NOT EXISTS known_channels (
    id                 SERIAL PRIMARY KEY,
    canonical_url      TEXT NOT NULL UNIQUE,
    preferred_url      TEXT NOT NULL,
    preferred_platform TEXT
)`,
		`CREATE TABLE IF NOT EXISTS browser_sessions (
    platform_key        TEXT NOT NULL,
    storage_state_json  JSONB NOT NULL,
    is_active           BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at          TIMESTAMPTZ,
    PRIMARY KEY (platform_key, updated_at)
)`,
	}

	for _, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_content_items_canonical_url ON content_items(canonical_url)`,
		`CREATE INDEX IF NOT EXISTS idx_content_item_associations_user ON content_item_associations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_content_queue_status ON content_queue(status)`,
		`CREATE INDEX IF NOT EXISTS idx_content_queue_found_at ON content_queue(found_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_content_sources_user_active ON content_sources(user_id) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_browser_sessions_active ON browser_sessions(platform_key, is_active)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// ILIKE search acceleration, tolerant of a non-superuser role that
	// cannot CREATE EXTENSION: the error is ignored.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	searchIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_content_items_title_gin ON content_items USING gin(title gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_content_items_summary_gin ON content_items USING gin(summary_text gin_trgm_ops)`,
	}
	for _, idx := range searchIndexes {
		_, _ = db.Exec(idx)
	}

	// pgvector extension + embeddings table (384-dim).
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS content_item_embeddings (
    id               SERIAL PRIMARY KEY,
    content_item_id  INTEGER NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
    embedding_type   VARCHAR(50) NOT NULL,
    provider         VARCHAR(50) NOT NULL,
    model            VARCHAR(100) NOT NULL,
    dimension        INT NOT NULL,
    embedding        vector(384) NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(content_item_id, embedding_type, provider, model)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_content_item_embeddings_item_id ON content_item_embeddings(content_item_id)`); err != nil {
		return err
	}

	// IVFFlat similarity index; ignored if pgvector is unavailable.
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_content_item_embeddings_vector
    ON content_item_embeddings USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100)`)

	return nil
}

// MigrateDown rolls back the embedding feature only, leaving the core
// tables intact. Use with caution: deletes embedding data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_content_item_embeddings_vector`,
		`DROP INDEX IF EXISTS idx_content_item_embeddings_item_id`,
		`DROP TABLE IF EXISTS content_item_embeddings CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
