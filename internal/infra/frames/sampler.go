// Package frames samples still images from a downloaded demo video,
// filtering out talking-head shots, and uploads the survivors to the
// shared image bucket.
package frames

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/infra/objectstore"
)

// Config tunes the sampler's thresholds; DefaultConfig matches the
// values named for this component.
type Config struct {
	SceneChangeThreshold float64       // ffmpeg "scene" filter score, 0..1
	FallbackInterval     time.Duration // used when no scene cuts are detected
	MinFrameSpacing      time.Duration
}

func DefaultConfig() Config {
	return Config{
		SceneChangeThreshold: 0.3,
		FallbackInterval:     30 * time.Second,
		MinFrameSpacing:      30 * time.Second,
	}
}

// Sampler extracts and classifies candidate frames from a local video
// file.
type Sampler struct {
	config Config
	store  *objectstore.Store
}

// New builds a Sampler. store is the bucket kept frames are uploaded
// to; it may be nil in tests that only exercise extraction logic.
func New(config Config, store *objectstore.Store) *Sampler {
	return &Sampler{config: config, store: store}
}

// Sample runs the full pipeline: scene-change detection (falling back
// to a fixed interval), minimum-spacing enforcement, content-vs-face
// classification, upload, and perceptual hashing. All temp files are
// removed before Sample returns, regardless of outcome.
func (s *Sampler) Sample(ctx context.Context, videoPath string, contentItemID int64) ([]entity.Frame, error) {
	workDir, err := os.MkdirTemp("", "insightfeed-frames-*")
	if err != nil {
		return nil, fmt.Errorf("create frame work dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	candidates, err := s.candidateTimestamps(videoPath)
	if err != nil {
		return nil, fmt.Errorf("detect candidate timestamps: %w", err)
	}
	candidates = enforceMinSpacing(candidates, s.config.MinFrameSpacing.Seconds())

	var kept []entity.Frame
	for i, ts := range candidates {
		framePath := filepath.Join(workDir, fmt.Sprintf("frame-%03d.jpg", i))
		if err := extractFrameAt(ctx, videoPath, ts, framePath); err != nil {
			slog.Warn("frame extraction failed, skipping candidate",
				slog.Float64("timestamp_seconds", ts), slog.String("error", err.Error()))
			continue
		}

		img, err := decodeJPEG(framePath)
		if err != nil {
			slog.Warn("frame decode failed, skipping candidate", slog.String("error", err.Error()))
			continue
		}
		if !classify(img) {
			continue
		}

		frame := entity.Frame{
			TimestampSeconds: int(ts),
			TimeFormatted:    formatTimestamp(ts),
		}

		if hash, err := perceptualHash(img); err == nil {
			frame.PerceptualHash = hash
		} else {
			slog.Warn("perceptual hash failed", slog.String("error", err.Error()))
		}

		if s.store != nil {
			key := fmt.Sprintf("content/%d/frames/frame-%03d.jpg", contentItemID, i)
			f, err := os.Open(framePath)
			if err != nil {
				return nil, fmt.Errorf("reopen frame file: %w", err)
			}
			info, statErr := f.Stat()
			var size int64
			if statErr == nil {
				size = info.Size()
			}
			storageKey, err := s.store.Put(ctx, key, f, "image/jpeg", size)
			_ = f.Close()
			if err != nil {
				return nil, fmt.Errorf("upload frame: %w", err)
			}
			frame.StoragePath = storageKey
			if url, err := s.store.SignedGET(ctx, storageKey, 0); err == nil {
				frame.URL = url
			}
		}

		kept = append(kept, frame)
	}

	return kept, nil
}

// candidateTimestamps returns scene-change timestamps detected by
// ffmpeg, or a fixed-interval schedule covering the video's duration
// if no scene cuts were detected.
func (s *Sampler) candidateTimestamps(videoPath string) ([]float64, error) {
	sceneTimes, err := detectSceneChanges(videoPath, s.config.SceneChangeThreshold)
	if err != nil {
		slog.Warn("scene-change detection failed, falling back to fixed interval",
			slog.String("error", err.Error()))
	}
	if len(sceneTimes) > 0 {
		return sceneTimes, nil
	}

	duration, err := probeDuration(videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe duration for fallback sampling: %w", err)
	}
	return fixedInterval(duration, s.config.FallbackInterval.Seconds()), nil
}

func fixedInterval(durationSeconds, interval float64) []float64 {
	var out []float64
	for t := interval; t < durationSeconds; t += interval {
		out = append(out, t)
	}
	return out
}

// enforceMinSpacing drops any candidate closer than minSpacing to the
// previously kept one.
func enforceMinSpacing(candidates []float64, minSpacing float64) []float64 {
	var out []float64
	last := -minSpacing - 1
	for _, t := range candidates {
		if t-last < minSpacing {
			continue
		}
		out = append(out, t)
		last = t
	}
	return out
}

var showinfoPTSPattern = regexp.MustCompile(`pts_time:([0-9.]+)`)

// detectSceneChanges shells out to ffmpeg with the scene-change select
// filter plus showinfo, which logs each matching frame's pts_time to
// stderr; the video itself is discarded (output to a null muxer) since
// only the timestamps matter here.
func detectSceneChanges(videoPath string, threshold float64) ([]float64, error) {
	var stderr bytes.Buffer
	selectExpr := fmt.Sprintf("gt(scene,%s)", strconv.FormatFloat(threshold, 'f', -1, 64))

	err := ffmpeg.Input(videoPath).
		Filter("select", ffmpeg.Args{selectExpr}).
		Filter("showinfo", nil).
		Output("-", ffmpeg.KwArgs{"f": "null", "vsync": "vfr"}).
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg scene detection: %w", err)
	}

	var times []float64
	scanner := bufio.NewScanner(&stderr)
	for scanner.Scan() {
		m := showinfoPTSPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			times = append(times, v)
		}
	}
	return times, nil
}

// extractFrameAt seeks to timestampSeconds and writes a single JPEG
// frame to outputPath.
func extractFrameAt(_ context.Context, videoPath string, timestampSeconds float64, outputPath string) error {
	err := ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": timestampSeconds}).
		Output(outputPath, ffmpeg.KwArgs{"vframes": 1, "q:v": 2}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg frame extraction: %w", err)
	}
	return nil
}

// probeDuration shells out to ffprobe (via ffmpeg-go's Probe helper)
// and pulls the container duration out of its JSON output.
func probeDuration(videoPath string) (float64, error) {
	raw, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	duration, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", parsed.Format.Duration, err)
	}
	return duration, nil
}

func decodeJPEG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return jpeg.Decode(f)
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
