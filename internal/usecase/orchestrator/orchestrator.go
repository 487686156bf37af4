// Package orchestrator drives a single content submission through
// the fetch/classify/transcribe/summarize/persist pipeline,
// reporting every state transition on a progressbus.Bus. The flow is
// a branching state machine that also resolves platform media,
// acquires transcripts, and optionally samples video frames.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/infra/adapter/persistence/postgres"
	"insightfeed/internal/infra/classifier"
	"insightfeed/internal/infra/embedding"
	"insightfeed/internal/infra/fetcher"
	"insightfeed/internal/infra/frames"
	"insightfeed/internal/infra/insight"
	"insightfeed/internal/infra/media"
	"insightfeed/internal/infra/objectstore"
	"insightfeed/internal/infra/transcript"
	"insightfeed/internal/observability/metrics"
	"insightfeed/internal/repository"
	"insightfeed/internal/usecase/progressbus"
)

// Fetcher is the subset of fetching capability the orchestrator
// drives: readability-extracted text for the fetching state, and the
// raw unprocessed HTML the classifier and media extractor need to
// scan for embeds.
type Fetcher interface {
	fetcher.ContentFetcher
	fetcher.RawHTMLFetcher
}

// Deps wires every external collaborator the pipeline states drive.
// FrameSampler may be nil to disable frame sampling for a deployment
// entirely, independent of a per-request opt-in.
type Deps struct {
	Fetcher            Fetcher
	MediaExtractor     *media.Extractor
	TranscriptAcquirer *transcript.Acquirer
	FrameSampler       *frames.Sampler
	InsightGenerator   insight.Generator
	Embedder           embedding.Embedder
	Persister          *postgres.Persister
	ContentItems       repository.ContentItemRepository
	Associations       repository.AssociationRepository
	PrivateContentItems repository.PrivateContentItemRepository
	MediaStore         *objectstore.Store // long-term bucket; needed to re-download stored media for reprocess steps
}

// SubmitRequest is the entry parameters for a first submission (or a
// forced reprocess of an existing canonical URL).
type SubmitRequest struct {
	URL            string
	UserID         string
	OrganizationID string
	ForceReprocess bool
	DemoVideo      bool // opt-in to frame sampling for video content
}

// Outcome is what Run returns once the invocation reaches completed,
// a short-circuited duplicate, or a non-error cancellation. A
// returned error means the FSM reached its error state; the caller's
// SSE handler has already observed the `error` event via the bus.
type Outcome struct {
	ContentItemID    int64
	AlreadyProcessed bool
	Cancelled        bool
}

// Orchestrator runs the ingestion pipeline.
type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

// Run drives one submission through the pipeline to completed,
// duplicate short-circuit, cancellation, or a terminal error event.
func (o *Orchestrator) Run(ctx context.Context, bus *progressbus.Bus, req SubmitRequest) (Outcome, error) {
	outcome, err := o.run(ctx, bus, req)
	switch {
	case err != nil:
		metrics.RecordPipelineRun("error")
	case outcome.Cancelled:
		metrics.RecordPipelineRun("cancelled")
	case outcome.AlreadyProcessed:
		metrics.RecordPipelineRun("duplicate")
	default:
		metrics.RecordPipelineRun("completed")
	}
	return outcome, err
}

func (o *Orchestrator) run(ctx context.Context, bus *progressbus.Bus, req SubmitRequest) (Outcome, error) {
	bus.Emit("started", map[string]any{})

	canonicalURL, err := canonicalizeURL(req.URL)
	if err != nil {
		return o.fail(bus, entity.KindClassificationMiss, err)
	}

	if !req.ForceReprocess {
		if outcome, handled, err := o.checkExisting(ctx, bus, canonicalURL, req); handled {
			return outcome, err
		}
	}

	if cancelled(ctx) {
		return Outcome{Cancelled: true}, nil
	}

	bus.Emit("fetch_start", map[string]any{})
	fetchStart := time.Now()
	rawHTML, err := o.deps.Fetcher.FetchRawHTML(ctx, canonicalURL)
	metrics.RecordPipelineStage("fetch", time.Since(fetchStart))
	if err != nil {
		if cancelled(ctx) {
			return Outcome{Cancelled: true}, nil
		}
		return o.fail(bus, networkKind(err), err)
	}
	bus.Emit("fetch_complete", map[string]any{})

	if cancelled(ctx) {
		return Outcome{Cancelled: true}, nil
	}

	classification := classifier.Classify(canonicalURL, rawHTML)
	item := &entity.ContentItem{CanonicalURL: canonicalURL, Platform: classification.Platform}

	var mediaInfo *media.Info
	var rawTranscript *entity.Transcript
	var articleText string

	if !classification.IsMediaEmbed() && !classification.DirectMedia {
		item.ContentType = entity.ContentSourceArticle
		text, err := o.extractContent(ctx, bus, canonicalURL, rawHTML)
		if err != nil {
			if cancelled(ctx) {
				return Outcome{Cancelled: true}, nil
			}
			return o.fail(bus, entity.KindNetwork, err)
		}
		articleText = text
	} else {
		item.ContentType = mediaContentType(classification)
		switch item.ContentType {
		case entity.ContentSourceVideo:
			if classification.PlatformID != "" {
				item.VideoID = classification.PlatformID
			}
		case entity.ContentSourceAudio:
			item.AudioURL = canonicalURL
		}
		mediaInfo, rawTranscript, articleText = o.handleMedia(ctx, bus, classification, canonicalURL, rawHTML)
	}

	if cancelled(ctx) {
		return Outcome{Cancelled: true}, nil
	}

	var transcriptText string
	if rawTranscript != nil {
		transcriptText = transcript.FormatForPrompt(rawTranscript)
	}
	item.TranscriptText = transcriptText
	// The media duration bounds every timestamp the generator may
	// emit, so it must be on the item before the prompt is built.
	if mediaInfo != nil && mediaInfo.DurationSeconds != nil {
		item.DurationSec = mediaInfo.DurationSeconds
	}
	switch {
	case articleText != "":
		item.WordCount = len(strings.Fields(articleText))
	case transcriptText != "":
		item.WordCount = len(strings.Fields(transcriptText))
	}

	if mediaInfo != nil && mediaInfo.DownloadPath != "" && req.DemoVideo &&
		o.deps.FrameSampler != nil && item.ContentType == entity.ContentSourceVideo {
		o.sampleFrames(ctx, bus, mediaInfo.DownloadPath)
	}

	if cancelled(ctx) {
		return Outcome{Cancelled: true}, nil
	}

	bus.Emit("ai_start", map[string]any{})
	aiStart := time.Now()
	promptCtx := buildPromptCtx(item, articleText, transcriptText)
	result, err := o.deps.InsightGenerator.Generate(ctx, promptCtx)
	metrics.RecordPipelineStage("insights", time.Since(aiStart))
	if err != nil {
		if cancelled(ctx) {
			return Outcome{Cancelled: true}, nil
		}
		return o.fail(bus, entity.KindLLMParse, err)
	}
	applyInsights(item, result)
	bus.Emit("ai_complete", map[string]any{"topics": item.Topics})

	if cancelled(ctx) {
		return Outcome{Cancelled: true}, nil
	}

	// Upsert early (reprocess=false: idempotent no-op on conflict) so
	// any media persisted below has a real content_item_id for its
	// storage key, even though "persisting" is the last FSM state.
	id, _, err := o.deps.ContentItems.Upsert(ctx, item, false)
	if err != nil {
		return o.fail(bus, entity.KindPersistenceConflict, err)
	}

	if mediaInfo != nil && mediaInfo.DownloadPath != "" {
		if err := o.deps.MediaExtractor.Persist(ctx, mediaInfo, id, false); err == nil {
			item.MediaBucket = mediaInfo.Bucket
			item.MediaStoragePath = mediaInfo.StorageKey
			item.MediaMIMEType = mediaInfo.ContentType
			item.MediaSizeBytes = &mediaInfo.SizeBytes
			item.MediaDurationSec = mediaInfo.DurationSeconds
			item.MediaIsPermanent = mediaInfo.IsPermanent
		}
	}

	if cancelled(ctx) {
		return Outcome{Cancelled: true}, nil
	}

	bus.Emit("save_start", map[string]any{})
	saveStart := time.Now()
	var emb *postgres.Embedding
	if o.deps.Embedder != nil {
		if vector, provider, model, embErr := o.deps.Embedder.Embed(ctx, item); embErr == nil {
			emb = &postgres.Embedding{Type: repository.EmbeddingTypeInsight, Provider: provider, Model: model, Vector: vector}
		}
	}

	finalized, err := o.deps.Persister.FinalizeContentItem(ctx, id, item, req.UserID, req.OrganizationID, emb)
	metrics.RecordPipelineStage("persist", time.Since(saveStart))
	if err != nil {
		return o.fail(bus, entity.KindPersistenceConflict, err)
	}
	bus.Emit("save_complete", map[string]any{"content_item_id": finalized.ContentItemID})
	bus.Emit("completed", map[string]any{"content_item_id": finalized.ContentItemID})

	return Outcome{ContentItemID: finalized.ContentItemID}, nil
}

// checkExisting handles resubmission of a known URL: a globally
// known URL with an existing association for this user short-circuits
// with duplicate_detected; a known URL with no association for this
// user is silently attached and reported as already processed without
// rerunning the pipeline.
func (o *Orchestrator) checkExisting(ctx context.Context, bus *progressbus.Bus, canonicalURL string, req SubmitRequest) (Outcome, bool, error) {
	existing, err := o.deps.ContentItems.GetByCanonicalURL(ctx, canonicalURL)
	if errors.Is(err, entity.ErrNotFound) {
		return Outcome{}, false, nil
	}
	if err != nil {
		outcome, ferr := o.fail(bus, entity.KindStorageOutage, err)
		return outcome, true, ferr
	}

	if req.UserID == "" {
		bus.Emit("completed", map[string]any{"already_processed": true, "content_item_id": existing.ID})
		return Outcome{ContentItemID: existing.ID, AlreadyProcessed: true}, true, nil
	}

	hasAssociation, err := o.deps.Associations.Exists(ctx, existing.ID, req.UserID)
	if err != nil {
		outcome, ferr := o.fail(bus, entity.KindStorageOutage, err)
		return outcome, true, ferr
	}

	if hasAssociation {
		bus.Emit("duplicate_detected", map[string]any{"content_item_id": existing.ID})
		bus.Emit("completed", map[string]any{"already_processed": true})
		return Outcome{ContentItemID: existing.ID, AlreadyProcessed: true}, true, nil
	}

	assoc := &entity.Association{ContentItemID: existing.ID, UserID: req.UserID, OrganizationID: req.OrganizationID}
	if err := assoc.Validate(); err != nil {
		outcome, ferr := o.fail(bus, entity.KindPersistenceConflict, err)
		return outcome, true, ferr
	}
	if err := o.deps.Associations.Upsert(ctx, assoc); err != nil {
		outcome, ferr := o.fail(bus, entity.KindPersistenceConflict, err)
		return outcome, true, ferr
	}
	bus.Emit("completed", map[string]any{"already_processed": true, "content_item_id": existing.ID})
	return Outcome{ContentItemID: existing.ID, AlreadyProcessed: true}, true, nil
}

func (o *Orchestrator) extractContent(ctx context.Context, bus *progressbus.Bus, canonicalURL, rawHTML string) (string, error) {
	bus.Emit("content_extract_start", map[string]any{})
	text, err := fetcher.ExtractReadableText(canonicalURL, rawHTML)
	if err != nil {
		return "", err
	}
	bus.Emit("content_extracted", map[string]any{"word_count": len(strings.Fields(text))})
	return text, nil
}

// handleMedia runs the resolving_platform_media/downloading_media/
// acquiring_transcript branch of the FSM. On any failure it degrades
// gracefully to text-only processing rather than failing the whole
// pipeline: an unresolvable embed degrades to text-only processing,
// and a missing transcript leaves downstream steps text-only.
func (o *Orchestrator) handleMedia(ctx context.Context, bus *progressbus.Bus, classification entity.Classification, canonicalURL, rawHTML string) (*media.Info, *entity.Transcript, string) {
	mediaURL := canonicalURL
	if classification.IsMediaEmbed() && !classification.DirectMedia {
		bus.Emit("media_resolve_start", map[string]any{})
		located, err := o.deps.MediaExtractor.Locate(ctx, classification, rawHTML)
		if err != nil || located == nil || located.URL == "" {
			bus.Emit("media_resolve_complete", map[string]any{"found": false})
			text, terr := fetcher.ExtractReadableText(canonicalURL, rawHTML)
			if terr != nil {
				text = ""
			}
			return nil, nil, text
		}
		bus.Emit("media_resolve_complete", map[string]any{"found": true})
		mediaURL = located.URL
	}

	var mediaInfo *media.Info
	bus.Emit("media_download_start", map[string]any{})
	downloaded, err := o.deps.MediaExtractor.Download(ctx, mediaURL)
	if err != nil {
		bus.Emit("media_download_complete", map[string]any{"downloaded": false})
	} else {
		mediaInfo = downloaded
		bus.Emit("media_download_complete", map[string]any{"downloaded": true})
	}

	if cancelled(ctx) {
		return mediaInfo, nil, ""
	}

	bus.Emit("transcript_start", map[string]any{})
	in := transcript.Input{Classification: classification, VideoID: classification.PlatformID}
	if mediaInfo != nil {
		in.AudioPath = mediaInfo.DownloadPath
	}
	rawTranscript, terr := o.deps.TranscriptAcquirer.Acquire(ctx, in)
	if terr != nil || rawTranscript == nil {
		bus.Emit("transcript_complete", map[string]any{"acquired": false})
	} else {
		bus.Emit("transcript_complete", map[string]any{"acquired": true, "source": string(rawTranscript.Source)})
	}

	return mediaInfo, rawTranscript, ""
}

func (o *Orchestrator) sampleFrames(ctx context.Context, bus *progressbus.Bus, videoPath string) {
	bus.Emit("frames_start", map[string]any{})
	kept, err := o.deps.FrameSampler.Sample(ctx, videoPath, 0)
	if err != nil {
		bus.Emit("frames_complete", map[string]any{"sampled": 0})
		return
	}
	bus.Emit("frames_complete", map[string]any{"sampled": len(kept)})
}

func (o *Orchestrator) fail(bus *progressbus.Bus, kind entity.Kind, err error) (Outcome, error) {
	pe := &entity.PipelineError{Kind: kind, Original: err}
	bus.Emit("error", map[string]any{"message": pe.UserMessage()})
	return Outcome{}, pe
}

func mediaContentType(c entity.Classification) entity.ContentSourceKind {
	switch c.Kind {
	case entity.URLKindDirectAudio, entity.URLKindHostedPodcast:
		return entity.ContentSourceAudio
	default:
		return entity.ContentSourceVideo
	}
}

func networkKind(err error) entity.Kind {
	switch {
	case errors.Is(err, fetcher.ErrInvalidURL), errors.Is(err, fetcher.ErrPrivateIP):
		return entity.KindClassificationMiss
	default:
		return entity.KindNetwork
	}
}

func buildPromptCtx(item *entity.ContentItem, articleText, transcriptText string) insight.PromptContext {
	if classifier.IsPaywalledPlatform(item.Platform) {
		return insight.EarningsContext{
			CompanyName:     item.Title,
			Transcript:      transcriptText,
			Body:            articleText,
			DurationSeconds: item.DurationSec,
		}.Build()
	}
	switch item.ContentType {
	case entity.ContentSourceVideo:
		return insight.VideoContext{Title: item.Title, Transcript: transcriptText, DurationSeconds: item.DurationSec}.Build()
	case entity.ContentSourceAudio:
		return insight.AudioContext{Title: item.Title, Transcript: transcriptText, DurationSeconds: item.DurationSec}.Build()
	default:
		return insight.TextContext{Title: item.Title, Body: articleText}.Build()
	}
}

func applyInsights(item *entity.ContentItem, result *insight.Result) {
	// A measured media duration always wins over the model's estimate.
	if item.DurationSec == nil && result.DurationMinutes != nil {
		seconds := int(*result.DurationMinutes * 60)
		item.DurationSec = &seconds
	}
	// Generators already null against a duration known at prompt time;
	// this covers the case where the duration only arrived with the
	// response itself.
	insight.ValidateTimestamps(result, item.DurationSec)

	item.SummaryText = result.Summary
	item.KeyInsights = result.KeyInsights
	item.Quotes = result.Quotes
	item.Topics = result.Topics
	item.Earnings = result.Earnings
	if result.WordCount != nil {
		item.WordCount = *result.WordCount
	}
}

