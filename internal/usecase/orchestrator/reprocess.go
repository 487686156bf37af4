package orchestrator

import (
	"context"
	"os"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/infra/adapter/persistence/postgres"
	"insightfeed/internal/infra/transcript"
	"insightfeed/internal/repository"
	"insightfeed/internal/usecase/progressbus"
)

// Reprocess step names accepted by POST /reprocess.
const (
	StepAISummary      = "ai_summary"
	StepThemedInsights = "themed_insights"
	StepEmbedding      = "embedding"
	StepVideoFrames    = "video_frames"
	StepTranscript     = "transcript"
)

// ReprocessRequest is the input to RunReprocess.
type ReprocessRequest struct {
	ContentItemID  int64
	IsPrivate      bool
	OrganizationID string
	Steps          []string
}

// StepResult is the per-step outcome reported in the final completed
// event's results map.
type StepResult struct {
	Status string // "complete", "error", "skipped"
	Reason string
}

// AvailableSteps reports, for a loaded content item, which reprocess
// steps are currently runnable and why the rest are not, backing
// GET /reprocess/info.
func AvailableSteps(item *entity.ContentItem, isPrivate bool) map[string]StepResult {
	hasMedia := item.MediaStoragePath != ""
	out := map[string]StepResult{
		StepAISummary: {Status: "available"},
		StepEmbedding: {Status: "available"},
	}
	if hasMedia {
		out[StepVideoFrames] = StepResult{Status: "available"}
		out[StepTranscript] = StepResult{Status: "available"}
	} else {
		out[StepVideoFrames] = StepResult{Status: "unavailable", Reason: "no stored media"}
		out[StepTranscript] = StepResult{Status: "unavailable", Reason: "no stored media"}
	}
	if isPrivate {
		out[StepThemedInsights] = StepResult{Status: "available"}
	} else {
		out[StepThemedInsights] = StepResult{Status: "unavailable", Reason: "themed insights require a private/organization-scoped item"}
	}
	return out
}

// RunReprocess re-executes a requested subset of pipeline steps
// against an already-persisted content item
// "Reprocess mode".
func (o *Orchestrator) RunReprocess(ctx context.Context, bus *progressbus.Bus, req ReprocessRequest) (Outcome, error) {
	bus.Emit("started", map[string]any{})

	item, orgID, err := o.loadForReprocess(ctx, req)
	if err != nil {
		return o.fail(bus, entity.KindStorageOutage, err)
	}
	bus.Emit("article_loaded", map[string]any{"content_item_id": req.ContentItemID})

	available := AvailableSteps(item, req.IsPrivate)
	results := make(map[string]StepResult, len(req.Steps))
	var emb *postgres.Embedding

	for _, step := range req.Steps {
		if cancelled(ctx) {
			return Outcome{Cancelled: true}, nil
		}

		gate := available[step]
		if gate.Status == "unavailable" {
			bus.Emit(step+"_start", map[string]any{})
			bus.Emit(step+"_skipped", map[string]any{"reason": gate.Reason})
			results[step] = StepResult{Status: "skipped", Reason: gate.Reason}
			continue
		}

		bus.Emit(step+"_start", map[string]any{})
		switch step {
		case StepAISummary, StepThemedInsights:
			if err := o.reprocessInsights(ctx, item); err != nil {
				bus.Emit(step+"_error", map[string]any{"message": err.Error()})
				results[step] = StepResult{Status: "error", Reason: err.Error()}
				continue
			}
		case StepTranscript:
			if err := o.reprocessTranscript(ctx, item); err != nil {
				bus.Emit(step+"_error", map[string]any{"message": err.Error()})
				results[step] = StepResult{Status: "error", Reason: err.Error()}
				continue
			}
		case StepVideoFrames:
			if err := o.reprocessFrames(ctx, item); err != nil {
				bus.Emit(step+"_error", map[string]any{"message": err.Error()})
				results[step] = StepResult{Status: "error", Reason: err.Error()}
				continue
			}
		case StepEmbedding:
			if o.deps.Embedder != nil {
				vector, provider, model, err := o.deps.Embedder.Embed(ctx, item)
				if err != nil {
					bus.Emit(step+"_error", map[string]any{"message": err.Error()})
					results[step] = StepResult{Status: "error", Reason: err.Error()}
					continue
				}
				emb = &postgres.Embedding{Type: repository.EmbeddingTypeInsight, Provider: provider, Model: model, Vector: vector}
			}
		}
		bus.Emit(step+"_complete", map[string]any{})
		results[step] = StepResult{Status: "complete"}
	}

	if err := o.persistReprocess(ctx, req, item, orgID, emb); err != nil {
		return o.fail(bus, entity.KindPersistenceConflict, err)
	}

	payload := map[string]any{"results": results}
	bus.Emit("completed", payload)
	return Outcome{ContentItemID: req.ContentItemID}, nil
}

func (o *Orchestrator) loadForReprocess(ctx context.Context, req ReprocessRequest) (*entity.ContentItem, string, error) {
	if !req.IsPrivate {
		item, err := o.deps.ContentItems.Get(ctx, req.ContentItemID)
		return item, "", err
	}
	private, err := o.deps.PrivateContentItems.Get(ctx, req.ContentItemID)
	if err != nil {
		return nil, "", err
	}
	return &private.ContentItem, private.OrganizationID, nil
}

func (o *Orchestrator) persistReprocess(ctx context.Context, req ReprocessRequest, item *entity.ContentItem, orgID string, emb *postgres.Embedding) error {
	if !req.IsPrivate {
		if emb != nil {
			// FinalizeContentItem requires a userID to touch the
			// association; reprocess never creates one, so pass "" to
			// skip that step while still writing insights/embedding.
			_, err := o.deps.Persister.FinalizeContentItem(ctx, req.ContentItemID, item, "", "", emb)
			return err
		}
		return o.deps.ContentItems.UpdateInsights(ctx, req.ContentItemID, item)
	}
	private := &entity.PrivateContentItem{ContentItem: *item, OrganizationID: orgID}
	return o.deps.PrivateContentItems.UpdateInsights(ctx, req.ContentItemID, private)
}

func (o *Orchestrator) reprocessInsights(ctx context.Context, item *entity.ContentItem) error {
	promptCtx := buildPromptCtx(item, item.SummaryText, item.TranscriptText)
	result, err := o.deps.InsightGenerator.Generate(ctx, promptCtx)
	if err != nil {
		return err
	}
	applyInsights(item, result)
	return nil
}

func (o *Orchestrator) reprocessTranscript(ctx context.Context, item *entity.ContentItem) error {
	audioPath, cleanup, err := o.redownloadMedia(ctx, item)
	if err != nil {
		return err
	}
	defer cleanup()

	in := transcript.Input{
		Classification: entity.Classification{Platform: item.Platform},
		VideoID:        item.VideoID,
		AudioPath:      audioPath,
	}
	t, err := o.deps.TranscriptAcquirer.Acquire(ctx, in)
	if err != nil {
		return err
	}
	if t != nil {
		item.TranscriptText = transcript.FormatForPrompt(t)
	}
	return nil
}

func (o *Orchestrator) reprocessFrames(ctx context.Context, item *entity.ContentItem) error {
	videoPath, cleanup, err := o.redownloadMedia(ctx, item)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = o.deps.FrameSampler.Sample(ctx, videoPath, item.ID)
	return err
}

// redownloadMedia fetches the already-stored media object back to a
// local temp file via a short-lived signed URL, for reprocess steps
// that need the bytes rather than the storage pointer.
func (o *Orchestrator) redownloadMedia(ctx context.Context, item *entity.ContentItem) (path string, cleanup func(), err error) {
	signedURL, err := o.deps.MediaStore.SignedGET(ctx, item.MediaStoragePath, time.Hour)
	if err != nil {
		return "", func() {}, err
	}
	info, err := o.deps.MediaExtractor.Download(ctx, signedURL)
	if err != nil {
		return "", func() {}, err
	}
	return info.DownloadPath, func() { _ = os.Remove(info.DownloadPath) }, nil
}
