package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/infra/listening"
)

type fakeHistoryOracle struct {
	entries map[string][]listening.HistoryEntry
	err     map[string]error
}

func (f *fakeHistoryOracle) RecentHistory(_ context.Context, source *entity.ContentSource) ([]listening.HistoryEntry, error) {
	if err := f.err[source.URL]; err != nil {
		return nil, err
	}
	return f.entries[source.URL], nil
}

type fakeRicherSource struct {
	byChannel map[string]string
}

func (f *fakeRicherSource) FindRicherSource(_ context.Context, _, channelURL string) (string, bool) {
	v, ok := f.byChannel[channelURL]
	return v, ok
}

func podcastSource(id int64, url string) *entity.ContentSource {
	return &entity.ContentSource{ID: id, UserID: "u1", Title: "Show", URL: url, SourceType: entity.SourceTypePodcast, IsActive: true}
}

func TestListeningHistoryPuller_KeepsOnlyStartedEpisodes(t *testing.T) {
	sources := &fakeSourceLister{sources: []*entity.ContentSource{podcastSource(1, "https://pocketcasts.com/podcast/show")}}
	queue := &fakeQueueRepo{}
	oracle := &fakeHistoryOracle{entries: map[string][]listening.HistoryEntry{
		"https://pocketcasts.com/podcast/show": {
			{EpisodeURL: "https://pocketcasts.com/episode/a?src=x", Title: "started", PlayedUpTo: 120, DurationSeconds: 3600, ProgressPercent: 3.3, PublishedAt: time.Now()},
			{EpisodeURL: "https://pocketcasts.com/episode/b", Title: "untouched", PlayedUpTo: 0},
		},
	}}

	puller := NewListeningHistoryPuller(sources, queue, oracle, nil, nil)
	require.NoError(t, puller.Run(context.Background()))

	require.Len(t, queue.inserted, 1)
	got := queue.inserted[0]
	assert.Equal(t, "https://pocketcasts.com/episode/a", got.URL, "query must be stripped")
	assert.Equal(t, entity.QueueContentPodcastEpisode, got.ContentType)
	assert.Equal(t, entity.QueueStatusDiscovered, got.Status)
	if assert.NotNil(t, got.PlayedUpTo) {
		assert.Equal(t, 120, *got.PlayedUpTo)
	}
	if assert.NotNil(t, got.DurationSeconds) {
		assert.Equal(t, 3600, *got.DurationSeconds)
	}
}

func TestListeningHistoryPuller_AttachesRicherSource(t *testing.T) {
	channel := "https://pocketcasts.com/podcast/show"
	sources := &fakeSourceLister{sources: []*entity.ContentSource{podcastSource(1, channel)}}
	queue := &fakeQueueRepo{}
	oracle := &fakeHistoryOracle{entries: map[string][]listening.HistoryEntry{
		channel: {{EpisodeURL: "https://pocketcasts.com/episode/a", Title: "ep", PlayedUpTo: 10}},
	}}
	richer := &fakeRicherSource{byChannel: map[string]string{channel: "https://youtube.com/watch?v=abc123"}}

	puller := NewListeningHistoryPuller(sources, queue, oracle, richer, nil)
	require.NoError(t, puller.Run(context.Background()))

	require.Len(t, queue.inserted, 1)
	assert.Equal(t, "https://youtube.com/watch?v=abc123", queue.inserted[0].VideoURL)
}

func TestListeningHistoryPuller_Idempotent(t *testing.T) {
	channel := "https://pocketcasts.com/podcast/show"
	sources := &fakeSourceLister{sources: []*entity.ContentSource{podcastSource(1, channel)}}
	queue := &fakeQueueRepo{}
	oracle := &fakeHistoryOracle{entries: map[string][]listening.HistoryEntry{
		channel: {{EpisodeURL: "https://pocketcasts.com/episode/a", Title: "ep", PlayedUpTo: 10}},
	}}

	puller := NewListeningHistoryPuller(sources, queue, oracle, nil, nil)
	require.NoError(t, puller.Run(context.Background()))
	require.NoError(t, puller.Run(context.Background()))

	assert.Len(t, queue.inserted, 1)
}

func TestListeningHistoryPuller_PerSourceFailureTolerated(t *testing.T) {
	broken := "https://pocketcasts.com/podcast/broken"
	healthy := "https://pocketcasts.com/podcast/healthy"
	sources := &fakeSourceLister{sources: []*entity.ContentSource{podcastSource(1, broken), podcastSource(2, healthy)}}
	queue := &fakeQueueRepo{}
	oracle := &fakeHistoryOracle{
		err:     map[string]error{broken: errors.New("auth expired")},
		entries: map[string][]listening.HistoryEntry{healthy: {{EpisodeURL: "https://pocketcasts.com/episode/a", Title: "ep", PlayedUpTo: 5}}},
	}

	puller := NewListeningHistoryPuller(sources, queue, oracle, nil, nil)
	require.NoError(t, puller.Run(context.Background()))

	assert.Len(t, queue.inserted, 1)
	assert.Equal(t, []int64{2}, sources.touched)
}

func TestKnownChannelRicherSource_Miss(t *testing.T) {
	finder := NewKnownChannelRicherSource(missingChannelRepo{})
	_, ok := finder.FindRicherSource(context.Background(), "u", "c")
	assert.False(t, ok)
}

type missingChannelRepo struct{}

func (missingChannelRepo) FindByCanonicalURL(_ context.Context, _ string) (*entity.KnownChannel, error) {
	return nil, entity.ErrNotFound
}
