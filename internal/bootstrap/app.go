package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"resumind-backend/internal/llm"
	openai "resumind-backend/internal/llm/openai"
	"resumind-backend/internal/rasterize"
	"resumind-backend/internal/resumes"
	"resumind-backend/internal/shared/config"
	"resumind-backend/internal/shared/server"
	"resumind-backend/internal/shared/storage/db"
	"resumind-backend/internal/shared/storage/kv"
	"resumind-backend/internal/shared/storage/object"
	localstore "resumind-backend/internal/shared/storage/object/local"
	s3store "resumind-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	KV     kv.Store
	Store  object.ObjectStore
	LLM    llm.Client

	ResumesService *resumes.Service
	ResumesHandler *resumes.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	records, err := buildKV(ctx, cfg, sqlDB)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if cfg.LLMProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		llmClient = openaiClient
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		KV:     records,
		Store:  store,
		LLM:    llmClient,
	}

	app.ResumesService = &resumes.Service{
		Repo:      resumes.NewRepo(records),
		Blobs:     store,
		LLM:       llmClient,
		Rasterize: rasterize.FirstPage,
		Ready:     app.ready,
	}
	app.ResumesHandler = resumes.NewHandler(app.ResumesService)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:  cfg,
		Resumes: app.ResumesHandler,
		Ready:   app.ready,
	})

	return app, nil
}

// ready probes the dependencies a run needs up front.
func (a *App) ready(ctx context.Context) error {
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.RecordStoreType != "postgres" {
		return nil, nil
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory record store")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory record store: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func buildKV(ctx context.Context, cfg config.Config, sqlDB *sql.DB) (kv.Store, error) {
	_ = ctx
	_ = cfg
	if sqlDB != nil {
		return &kv.PGStore{DB: sqlDB}, nil
	}
	return kv.NewMemoryStore(), nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
