// Package listening implements the HTTP client for the external
// podcast listening-history service polled by the discovery
// workers. The service exposes a login endpoint that exchanges
// account credentials for a bearer token and a history endpoint
// returning the episodes the account has recently played.
package listening

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/resilience/circuitbreaker"
	"insightfeed/internal/resilience/retry"
)

// HistoryEntry is one row of a user's playback history as reported by
// the listening-history service.
type HistoryEntry struct {
	EpisodeURL      string
	PodcastUUID     string
	EpisodeUUID     string
	Title           string
	ChannelTitle    string
	PublishedAt     time.Time
	DurationSeconds int
	PlayedUpTo      int
	ProgressPercent float64
	PlayingStatus   string
}

// Config carries the service endpoint and account credentials, loaded
// from LISTENING_HISTORY_API_URL / LISTENING_HISTORY_EMAIL /
// LISTENING_HISTORY_PASSWORD by the caller.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// DefaultConfig applies the default per-call timeout.
func DefaultConfig(baseURL, email, password string) Config {
	return Config{BaseURL: baseURL, Email: email, Password: password, Timeout: 30 * time.Second}
}

// Client authenticates with the listening-history service and
// downloads recent playback history. The bearer token obtained at
// login is cached and transparently refreshed on a 401.
type Client struct {
	cfg            Config
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config

	mu    sync.Mutex
	token string
}

// NewClient builds a Client wrapped in the same circuit-breaker +
// retry stack as the other oracle clients.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: circuitbreaker.New(circuitbreaker.ListeningHistoryConfig()),
		retryConfig:    retry.ListeningHistoryConfig(),
	}
}

type loginResponse struct {
	Token string `json:"token"`
	UUID  string `json:"uuid"`
}

type historyResponse struct {
	Episodes []historyEpisode `json:"episodes"`
}

type historyEpisode struct {
	UUID          string `json:"uuid"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	PodcastUUID   string `json:"podcastUuid"`
	PodcastTitle  string `json:"podcastTitle"`
	PodcastSlug   string `json:"podcastSlug"`
	Slug          string `json:"slug"`
	Published     string `json:"published"`
	Duration      int    `json:"duration"`
	PlayedUpTo    int    `json:"playedUpTo"`
	PlayingStatus int    `json:"playingStatus"`
}

// RecentHistory downloads the account's recent playback history. The
// source parameter identifies which subscription triggered the pull;
// the history service is account-scoped, so it only affects logging
// upstream, not the request itself.
func (c *Client) RecentHistory(ctx context.Context, _ *entity.ContentSource) ([]HistoryEntry, error) {
	var episodes []historyEpisode

	err := retry.WithBackoff(ctx, c.retryConfig, func() error {
		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			eps, err := c.fetchHistory(ctx)
			if err != nil {
				return nil, err
			}
			episodes = eps
			return nil, nil
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("RecentHistory: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(episodes))
	for _, ep := range episodes {
		entries = append(entries, ep.toEntry())
	}
	return entries, nil
}

func (c *Client) fetchHistory(ctx context.Context) ([]historyEpisode, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := c.post(ctx, c.cfg.BaseURL+"/user/history", token, map[string]any{})
	if status == http.StatusUnauthorized {
		// Token expired server-side; log in again once before failing.
		if token, err = c.login(ctx); err != nil {
			return nil, err
		}
		body, status, err = c.post(ctx, c.cfg.BaseURL+"/user/history", token, map[string]any{})
	}
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: status, Message: "history request failed"}
	}

	var parsed historyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	return parsed.Episodes, nil
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) (string, error) {
	body, status, err := c.post(ctx, c.cfg.BaseURL+"/user/login", "", map[string]any{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
		"scope":    "webplayer",
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &retry.HTTPError{StatusCode: status, Message: "login failed"}
	}

	var parsed loginResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("login response contained no token")
	}

	c.mu.Lock()
	c.token = parsed.Token
	c.mu.Unlock()
	return parsed.Token, nil
}

func (c *Client) post(ctx context.Context, url, token string, payload map[string]any) ([]byte, int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (ep historyEpisode) toEntry() HistoryEntry {
	progress := 0.0
	if ep.Duration > 0 {
		progress = float64(ep.PlayedUpTo) / float64(ep.Duration) * 100
	}

	published, _ := time.Parse(time.RFC3339, ep.Published)

	url := ep.URL
	if url == "" {
		url = episodeURL(ep)
	}

	return HistoryEntry{
		EpisodeURL:      url,
		PodcastUUID:     ep.PodcastUUID,
		EpisodeUUID:     ep.UUID,
		Title:           ep.Title,
		ChannelTitle:    ep.PodcastTitle,
		PublishedAt:     published,
		DurationSeconds: ep.Duration,
		PlayedUpTo:      ep.PlayedUpTo,
		ProgressPercent: progress,
		PlayingStatus:   playingStatusLabel(ep.PlayingStatus),
	}
}

// episodeURL reconstructs a canonical episode page URL from the slugs
// the history API returns, falling back to the bare-UUID form when
// slugs are absent.
func episodeURL(ep historyEpisode) string {
	if ep.PodcastSlug != "" && ep.Slug != "" && ep.PodcastUUID != "" && ep.UUID != "" {
		return fmt.Sprintf("https://pocketcasts.com/podcast/%s/%s/%s/%s", ep.PodcastSlug, ep.PodcastUUID, ep.Slug, ep.UUID)
	}
	return fmt.Sprintf("https://pocketcasts.com/episode/%s", ep.UUID)
}

// playingStatusLabel maps the service's numeric playing status onto
// the content_queue playing_status vocabulary.
func playingStatusLabel(status int) string {
	switch status {
	case 1:
		return "unplayed"
	case 2:
		return "in_progress"
	case 3:
		return "played"
	default:
		return "unknown"
	}
}
