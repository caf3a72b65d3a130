package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"resumind-backend/internal/feedback"
	"resumind-backend/internal/llm"
	"resumind-backend/internal/rasterize"
	"resumind-backend/internal/shared/storage/kv"
	localstore "resumind-backend/internal/shared/storage/object/local"
)

type staticLLM struct {
	reply llm.Reply
	err   error
}

func (s staticLLM) Converse(ctx context.Context, input llm.ConverseInput) (llm.Reply, error) {
	_ = ctx
	_ = input
	return s.reply, s.err
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, userId, fileName string, r io.Reader) (string, int64, string, error) {
	return "", 0, "", errors.New("blob store down")
}

func (failingStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	return nil, errors.New("blob store down")
}

type spyKV struct {
	*kv.MemoryStore
	keys []string
}

func newSpyKV() *spyKV {
	return &spyKV{MemoryStore: kv.NewMemoryStore()}
}

func (s *spyKV) Set(ctx context.Context, key, value string) error {
	s.keys = append(s.keys, key)
	return s.MemoryStore.Set(ctx, key, value)
}

func fakeRaster(data []byte) rasterize.Result {
	_ = data
	return rasterize.Result{ImagePNG: []byte("png-bytes"), Width: 2448, Height: 3168}
}

func newTestService(t *testing.T, client llm.Client) (*Service, *spyKV) {
	t.Helper()
	store := newSpyKV()
	return &Service{
		Repo:      NewRepo(store),
		Blobs:     localstore.New(t.TempDir()),
		LLM:       client,
		Rasterize: fakeRaster,
	}, store
}

func runInput() RunInput {
	return RunInput{
		UserID:         "user-1",
		FileName:       "resume.pdf",
		Document:       []byte("%PDF-fake"),
		CompanyName:    "Acme",
		JobTitle:       "Platform Engineer",
		JobDescription: "Build things.",
	}
}

func TestRunCompletesAndRoundTrips(t *testing.T) {
	svc, _ := newTestService(t, staticLLM{
		reply: llm.FlatReply(`{"overallRating":150,"content":{"score":90,"tips":["  ","Tighten bullets"]}}`),
	})

	var stages []string
	rec, err := svc.Run(context.Background(), runInput(), func(u StatusUpdate) {
		if len(u.PreviewPNG) == 0 {
			stages = append(stages, u.Stage)
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Status != StatusComplete {
		t.Fatalf("status = %q, want complete", rec.Status)
	}

	wantStages := []string{StageUploadDocument, StageConvert, StageUploadImage, StagePrepare, StageAnalyzing, StagePersist}
	if !reflect.DeepEqual(stages, wantStages) {
		t.Fatalf("stages = %v, want %v", stages, wantStages)
	}

	fb, err := svc.GetFeedback(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get feedback: %v", err)
	}
	if fb == nil {
		t.Fatal("expected feedback, got nil")
	}
	if fb.OverallRating != 100 {
		t.Fatalf("overall rating = %v, want clamped 100", fb.OverallRating)
	}
	if fb.Content.Score != 90 {
		t.Fatalf("content score = %v, want 90", fb.Content.Score)
	}
	if len(fb.Content.Tips) != 1 || fb.Content.Tips[0].Text != "Tighten bullets" {
		t.Fatalf("content tips = %+v", fb.Content.Tips)
	}

	// The persisted payload is already canonical: re-normalizing the
	// stored bytes changes nothing.
	stored, err := svc.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	again := feedback.Normalize(stored.Feedback)
	if !reflect.DeepEqual(fb, again) {
		t.Fatalf("stored payload is not canonical:\nfirst:  %+v\nsecond: %+v", fb, again)
	}
}

func TestRunUploadFailureLeavesNoCheckpoint(t *testing.T) {
	store := newSpyKV()
	svc := &Service{
		Repo:      NewRepo(store),
		Blobs:     failingStore{},
		LLM:       staticLLM{reply: llm.FlatReply("{}")},
		Rasterize: fakeRaster,
	}

	_, err := svc.Run(context.Background(), runInput(), nil)
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StageUploadDocument {
		t.Fatalf("stage = %q, want upload-document", stageErr.Stage)
	}
	if len(store.keys) != 0 {
		t.Fatalf("no checkpoint record should exist, got writes: %v", store.keys)
	}
}

func TestRunUnauthenticatedRunsNoStages(t *testing.T) {
	svc, store := newTestService(t, staticLLM{reply: llm.FlatReply("{}")})

	input := runInput()
	input.UserID = ""
	var updates int
	_, err := svc.Run(context.Background(), input, func(StatusUpdate) { updates++ })

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StagePreconditions {
		t.Fatalf("stage = %q, want preconditions", stageErr.Stage)
	}
	if updates != 0 {
		t.Fatalf("expected no stage updates, got %d", updates)
	}
	if len(store.keys) != 0 {
		t.Fatalf("expected no writes, got %v", store.keys)
	}
}

func TestRunNotReadyRunsNoStages(t *testing.T) {
	svc, _ := newTestService(t, staticLLM{reply: llm.FlatReply("{}")})
	svc.Ready = func(ctx context.Context) error { return errors.New("still booting") }

	_, err := svc.Run(context.Background(), runInput(), nil)
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StagePreconditions {
		t.Fatalf("stage = %q, want preconditions", stageErr.Stage)
	}
}

func TestRunBadReplyShapeMarksRecordFailed(t *testing.T) {
	svc, _ := newTestService(t, staticLLM{
		reply: llm.Reply{Message: llm.Message{Content: json.RawMessage(`{"unexpected":"object"}`)}},
	})

	rec, err := svc.Run(context.Background(), runInput(), nil)
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StageAnalyzing {
		t.Fatalf("stage = %q, want analyzing", stageErr.Stage)
	}
	if stageErr.Reason != "unexpected response format" {
		t.Fatalf("reason = %q", stageErr.Reason)
	}

	// The checkpoint record exists and carries the failure.
	stored, err := svc.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if stored.Status != StatusFailed || stored.FailureStage != StageAnalyzing {
		t.Fatalf("stored status = (%q, %q)", stored.Status, stored.FailureStage)
	}
	if stored.HasFeedback() {
		t.Fatal("failed run should keep feedback null")
	}
	if stored.DocumentKey == "" || stored.ImageKey == "" {
		t.Fatal("checkpoint should keep both blob references")
	}
}

func TestRunConvertFailureStillSurfacesPreview(t *testing.T) {
	svc, store := newTestService(t, staticLLM{reply: llm.FlatReply("{}")})
	svc.Rasterize = func(data []byte) rasterize.Result {
		return rasterize.Result{ImagePNG: []byte("partial-preview"), Err: "render page 1: broken stream"}
	}

	var preview []byte
	_, err := svc.Run(context.Background(), runInput(), func(u StatusUpdate) {
		if len(u.PreviewPNG) > 0 {
			preview = u.PreviewPNG
		}
	})

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StageConvert {
		t.Fatalf("stage = %q, want convert", stageErr.Stage)
	}
	if string(preview) != "partial-preview" {
		t.Fatalf("preview = %q, want the partial render", preview)
	}
	if len(store.keys) != 0 {
		t.Fatal("convert failure precedes the checkpoint; no record should exist")
	}
}

func TestRunMintsFreshIdentifiers(t *testing.T) {
	svc, _ := newTestService(t, staticLLM{reply: llm.FlatReply(`{"content":{"score":10}}`)})

	first, err := svc.Run(context.Background(), runInput(), nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.Run(context.Background(), runInput(), nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("re-running must mint a new identifier")
	}
	if first.DocumentKey == second.DocumentKey || first.ImageKey == second.ImageKey {
		t.Fatal("re-running must mint new blob references")
	}

	// The first record is untouched by the second run.
	stored, err := svc.Get(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("get first record: %v", err)
	}
	if stored.ID != first.ID || stored.Status != StatusComplete {
		t.Fatalf("first record mutated: %+v", stored)
	}
}

func TestGetFeedbackPendingRecord(t *testing.T) {
	svc, _ := newTestService(t, staticLLM{reply: llm.FlatReply("{}")})
	rec := Record{ID: "pending-1", UserID: "user-1", Status: StatusRunning}
	if err := svc.Repo.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	fb, err := svc.GetFeedback(context.Background(), "pending-1")
	if err != nil {
		t.Fatalf("get feedback: %v", err)
	}
	if fb != nil {
		t.Fatalf("expected nil feedback for pending record, got %+v", fb)
	}
}

func TestGetFeedbackMissingRecord(t *testing.T) {
	svc, _ := newTestService(t, staticLLM{reply: llm.FlatReply("{}")})
	if _, err := svc.GetFeedback(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenBlobEnforcesOwnership(t *testing.T) {
	svc, _ := newTestService(t, staticLLM{
		reply: llm.FlatReply(`{"content":{"score":10}}`),
	})
	rec, err := svc.Run(context.Background(), runInput(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	body, err := svc.OpenDocument(context.Background(), "user-1", rec.ID)
	if err != nil {
		t.Fatalf("owner open: %v", err)
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-fake") {
		t.Fatalf("unexpected document bytes: %q", data)
	}

	if _, err := svc.OpenDocument(context.Background(), "other-user", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign record, got %v", err)
	}
}
