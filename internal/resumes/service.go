package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumind-backend/internal/extract"
	"resumind-backend/internal/feedback"
	"resumind-backend/internal/llm"
	"resumind-backend/internal/rasterize"
	"resumind-backend/internal/shared/metrics"
	"resumind-backend/internal/shared/storage/object"
	"resumind-backend/internal/shared/telemetry"
)

// Rasterizer converts document bytes into a first-page raster. The default
// is the fitz-backed renderer; tests substitute fakes.
type Rasterizer func(data []byte) rasterize.Result

// Service runs the analysis pipeline: upload, rasterize, upload image,
// checkpoint, remote inference, normalize, persist. Stages run strictly
// in order; every failure is terminal for the run and no stage retries.
type Service struct {
	Repo      *Repo
	Blobs     object.ObjectStore
	LLM       llm.Client
	Rasterize Rasterizer
	// Ready gates the run on platform readiness. nil means always ready.
	Ready func(ctx context.Context) error
}

// RunInput is one analysis submission.
type RunInput struct {
	UserID         string
	FileName       string
	Document       []byte
	CompanyName    string
	JobTitle       string
	JobDescription string
}

// Run executes the full pipeline. Progress is reported through the
// callback; the returned error, when non-nil, is always a *StageError.
// Re-running the same submission mints a new id and new blob keys; prior
// records are never mutated.
func (s *Service) Run(ctx context.Context, input RunInput, progress ProgressFunc) (Record, error) {
	startedAt := time.Now().UTC()
	metrics.IncRunStarted()

	emit := func(stage string, preview []byte) {
		if progress != nil {
			progress(StatusUpdate{Stage: stage, Message: stageMessages[stage], PreviewPNG: preview})
		}
	}

	// Preconditions: nothing is attempted until the platform is ready and
	// the caller is signed in.
	if s.Ready != nil {
		if err := s.Ready(ctx); err != nil {
			return Record{}, s.fail(nil, startedAt, StagePreconditions, "the service is not ready yet, please try again", err)
		}
	}
	if strings.TrimSpace(input.UserID) == "" {
		return Record{}, s.fail(nil, startedAt, StagePreconditions, "please sign in first", nil)
	}
	if len(input.Document) == 0 {
		return Record{}, s.fail(nil, startedAt, StagePreconditions, "no document provided", nil)
	}

	emit(StageUploadDocument, nil)
	docKey, _, _, err := s.Blobs.Save(ctx, input.UserID, safeFileName(input.FileName), bytes.NewReader(input.Document))
	if err != nil || docKey == "" {
		return Record{}, s.fail(nil, startedAt, StageUploadDocument, "failed to upload file", err)
	}

	emit(StageConvert, nil)
	raster := s.rasterize(input.Document)
	if len(raster.ImagePNG) > 0 {
		// The preview is surfaced even if the run fails later.
		emit(StageConvert, raster.ImagePNG)
	}
	if raster.Failed() {
		reason := raster.Err
		if reason == "" {
			reason = "failed to convert document to image"
		}
		return Record{}, s.fail(nil, startedAt, StageConvert, reason, nil)
	}

	emit(StageUploadImage, nil)
	imageKey, _, _, err := s.Blobs.Save(ctx, input.UserID, imageName(input.FileName), bytes.NewReader(raster.ImagePNG))
	if err != nil || imageKey == "" {
		return Record{}, s.fail(nil, startedAt, StageUploadImage, "failed to upload image", err)
	}

	emit(StagePrepare, nil)
	rec := Record{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		DocumentKey:    docKey,
		ImageKey:       imageKey,
		CompanyName:    input.CompanyName,
		JobTitle:       input.JobTitle,
		JobDescription: input.JobDescription,
		Feedback:       nil,
		Status:         StatusRunning,
		CreatedAt:      startedAt,
	}
	// Checkpoint: the record exists with both blob references before the
	// remote call, so an abandoned run stays inspectable.
	if err := s.Repo.Save(ctx, rec); err != nil {
		return Record{}, s.fail(nil, startedAt, StagePrepare, "failed to prepare record", err)
	}

	emit(StageAnalyzing, nil)
	resumeText, err := extract.ResumeText(input.Document)
	if err != nil {
		// Text extraction is best effort; the page image still carries
		// the resume content.
		telemetry.Warn("run.extract_degraded", map[string]any{
			"record_id": rec.ID,
			"error":     err.Error(),
		})
		resumeText = ""
	}

	reply, err := s.LLM.Converse(ctx, llm.ConverseInput{
		ResumeText:   resumeText,
		ImagePNG:     raster.ImagePNG,
		Instructions: llm.Instructions(input.CompanyName, input.JobTitle, input.JobDescription),
	})
	if err != nil {
		return rec, s.fail(&rec, startedAt, StageAnalyzing, "analysis failed", err)
	}
	text, ok := reply.Text()
	if !ok {
		return rec, s.fail(&rec, startedAt, StageAnalyzing, "unexpected response format", nil)
	}

	// Normalization happens once, at write time; the canonical form is
	// what gets persisted.
	fb := feedback.Normalize(text)
	if fb == nil {
		return rec, s.fail(&rec, startedAt, StageAnalyzing, "empty model reply", nil)
	}
	payload, err := json.Marshal(fb)
	if err != nil {
		return rec, s.fail(&rec, startedAt, StageAnalyzing, "analysis failed", err)
	}

	emit(StagePersist, nil)
	rec.Feedback = payload
	rec.Status = StatusComplete
	if err := s.Repo.Save(ctx, rec); err != nil {
		return rec, s.fail(&rec, startedAt, StagePersist, "failed to save analysis", err)
	}

	completedAt := time.Now().UTC()
	metrics.IncRunCompleted()
	metrics.ObserveRunDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("run.status", map[string]any{
		"record_id":   rec.ID,
		"user_id":     rec.UserID,
		"status":      StatusComplete,
		"duration_ms": durationMs(startedAt, completedAt),
	})
	return rec, nil
}

// fail converts a stage failure into the terminal StageError, marks the
// checkpoint record when one exists, and reports telemetry. The record
// update uses a fresh context so a canceled run still lands its status.
func (s *Service) fail(rec *Record, startedAt time.Time, stage, reason string, cause error) error {
	if rec != nil && rec.ID != "" {
		rec.Status = StatusFailed
		rec.FailureStage = stage
		rec.Error = reason
		if err := s.Repo.Save(context.Background(), *rec); err != nil {
			telemetry.Error("run.fail_update", map[string]any{
				"record_id": rec.ID,
				"stage":     stage,
				"error":     err.Error(),
			})
		}
	}
	metrics.IncRunFailed(stage)
	fields := map[string]any{
		"stage":       stage,
		"reason":      reason,
		"duration_ms": durationMs(startedAt, time.Now().UTC()),
	}
	if rec != nil {
		fields["record_id"] = rec.ID
	}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	telemetry.Error("run.failed", fields)
	return stageFailure(stage, reason, cause)
}

func (s *Service) rasterize(data []byte) rasterize.Result {
	if s.Rasterize != nil {
		return s.Rasterize(data)
	}
	return rasterize.FirstPage(data)
}

// Get returns the stored record by id.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// GetFeedback loads a record and normalizes its stored payload. The stored
// form is already canonical for records written by this code; re-applying
// the normalizer is an idempotent no-op there and a repair path for older
// raw payloads. A nil result with nil error means no feedback yet.
func (s *Service) GetFeedback(ctx context.Context, id string) (*feedback.Feedback, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.HasFeedback() {
		return nil, nil
	}
	return feedback.Normalize(rec.Feedback), nil
}

// OpenDocument streams the stored resume for a record owned by userID.
func (s *Service) OpenDocument(ctx context.Context, userID, id string) (io.ReadCloser, error) {
	return s.openBlob(ctx, userID, id, func(rec Record) string { return rec.DocumentKey })
}

// OpenImage streams the stored page image for a record owned by userID.
func (s *Service) OpenImage(ctx context.Context, userID, id string) (io.ReadCloser, error) {
	return s.openBlob(ctx, userID, id, func(rec Record) string { return rec.ImageKey })
}

func (s *Service) openBlob(ctx context.Context, userID, id string, pick func(Record) string) (io.ReadCloser, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != "" && rec.UserID != userID {
		return nil, ErrNotFound
	}
	key := pick(rec)
	if key == "" {
		return nil, ErrNotFound
	}
	body, err := s.Blobs.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	return body, nil
}

func safeFileName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "resume.pdf"
	}
	return trimmed
}

func imageName(fileName string) string {
	base := safeFileName(fileName)
	if idx := strings.LastIndex(strings.ToLower(base), ".pdf"); idx > 0 {
		base = base[:idx]
	}
	return base + ".png"
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}
