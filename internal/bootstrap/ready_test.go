package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"resumind-backend/internal/shared/config"
)

func TestWaitReadyImmediateSuccess(t *testing.T) {
	err := WaitReady(context.Background(), time.Second, time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWaitReadyRecoversAfterFailures(t *testing.T) {
	attempts := 0
	err := WaitReady(context.Background(), time.Second, time.Millisecond, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if attempts < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", attempts)
	}
}

func TestWaitReadyTimesOutWithLastError(t *testing.T) {
	probeErr := errors.New("database down")
	err := WaitReady(context.Background(), 20*time.Millisecond, 5*time.Millisecond, func(ctx context.Context) error {
		return probeErr
	})
	if !errors.Is(err, probeErr) {
		t.Fatalf("expected wrapped probe error, got %v", err)
	}
}

func TestWaitReadyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitReady(ctx, time.Minute, time.Millisecond, func(ctx context.Context) error {
		return errors.New("never ready")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func configForTest(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		Port:            "0",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		RecordStoreType: "memory",
		LLMProvider:     "placeholder",
	}
}

func TestBuildWiresMemoryDefaults(t *testing.T) {
	app, err := Build(configForTest(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if app.Router == nil {
		t.Fatal("router not wired")
	}
	if app.DB != nil {
		t.Fatal("memory record store should not open a database")
	}
	if app.ResumesService == nil || app.ResumesHandler == nil {
		t.Fatal("resumes feature not wired")
	}
	if err := app.ready(context.Background()); err != nil {
		t.Fatalf("ready probe: %v", err)
	}
}
