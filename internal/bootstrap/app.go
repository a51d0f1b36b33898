package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/completion"
	"interview-relay/internal/conversation"
	"interview-relay/internal/credentials"
	"interview-relay/internal/extract"
	"interview-relay/internal/llm/openai"
	"interview-relay/internal/models"
	"interview-relay/internal/profile"
	"interview-relay/internal/realtime"
	"interview-relay/internal/sessions"
	"interview-relay/internal/shared/config"
	"interview-relay/internal/shared/server"
	"interview-relay/internal/shared/storage/db"
	"interview-relay/internal/shared/storage/object"
	localstore "interview-relay/internal/shared/storage/object/local"
	s3store "interview-relay/internal/shared/storage/object/s3"
	"interview-relay/internal/shared/telemetry"
	"interview-relay/internal/usage"
)

// App is the process-wide state: every store, service and handler, and the
// router that serves them.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Objects      object.ObjectStore
	Models       *models.Registry
	LLM          *openai.Client
	Profiles     *profile.Service
	History      *conversation.History
	SessionStore sessions.Store
	Sessions     *sessions.Manager
	Usage        *usage.Service
	Orchestrator *completion.Orchestrator
}

// Build wires the application from cfg.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	ctx := context.Background()

	registry, err := buildModels(cfg)
	if err != nil {
		return nil, err
	}

	objects, err := buildObjects(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Objects: objects,
		Models:  registry,
		LLM:     openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAITimeout),
		History: conversation.NewHistory(conversation.MaxHistoryEntries),
		Usage:   usage.NewService(registry),
	}
	if sqlDB != nil {
		app.SessionStore = &sessions.PGStore{DB: sqlDB}
	} else {
		app.SessionStore = sessions.NewFileStore(cfg.SessionsDir())
	}

	app.Profiles, err = profile.NewService(ctx, profile.NewFileStore(cfg.ProfilePath()), objects, extract.FromFile)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load profile: %w", err)
	}
	app.Sessions = sessions.NewManager(app.SessionStore, app.History, app.Profiles)
	app.Orchestrator = completion.NewOrchestrator(completion.Deps{
		LLM:         app.LLM,
		Models:      registry,
		Profiles:    app.Profiles,
		History:     app.History,
		Sessions:    app.Sessions,
		Usage:       app.Usage,
		FallbackKey: cfg.OpenAIAPIKey,
	})

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		Profile:     profile.NewHandler(app.Profiles),
		Sessions:    sessions.NewHandler(app.Sessions),
		Completion:  completion.NewHandler(app.Orchestrator),
		Usage:       usage.NewHandler(app.Usage),
		Models:      models.NewHandler(registry),
		Credentials: credentials.NewHandler(credentials.NewKeyValidator(app.LLM), credentials.NewLicenses(cfg.LicenseKeys)),
		Realtime: realtime.NewHandler(reloadingKeys{profiles: app.Profiles}, realtime.Config{
			URL:            cfg.OpenAIRealtimeURL,
			Model:          cfg.OpenAIRealtimeModel,
			FallbackKey:    cfg.OpenAIAPIKey,
			OriginPatterns: cfg.CORSAllowOrigin,
		}),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"data_dir":      cfg.DataDir,
		"session_store": storeKind(sqlDB),
		"object_store":  cfg.ObjectStoreType,
		"default_model": registry.DefaultText,
		"vision_model":  registry.VisionModel,
		"env_key":       cfg.OpenAIAPIKey != "",
	})
	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildModels(cfg config.Config) (*models.Registry, error) {
	if strings.TrimSpace(cfg.ModelsFile) == "" {
		return models.DefaultRegistry(), nil
	}
	registry, err := models.LoadFile(cfg.ModelsFile)
	if err != nil {
		return nil, fmt.Errorf("load models file: %w", err)
	}
	return registry, nil
}

// buildDB connects only for the Postgres session backend. In dev a failed
// connection falls back to the file store.
func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.SessionStore != "postgres" {
		return nil, nil
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_fallback", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("SESSION_STORE=postgres requires DATABASE_URL")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			err = fmt.Errorf("run migrations: %w", err)
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_fallback", map[string]any{"err": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildObjects(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.ObjectDir()), nil
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

func storeKind(sqlDB *sql.DB) string {
	if sqlDB != nil {
		return "postgres"
	}
	return "file"
}

// reloadingKeys reads the credential from disk at connect time, so a key
// written by another process is picked up without a restart.
type reloadingKeys struct {
	profiles *profile.Service
}

func (k reloadingKeys) APIKey(fallback string) string {
	if _, err := k.profiles.Reload(context.Background()); err != nil {
		telemetry.Warn("realtime.profile_reload_failed", map[string]any{"err": err.Error()})
	}
	return k.profiles.APIKey(fallback)
}
