package app

import (
	"context"
	"fmt"

	"pergaminos/internal/config"
	"pergaminos/internal/services"
	"pergaminos/internal/store"
	"pergaminos/internal/store/primary"
	"pergaminos/internal/uploads"

	log "github.com/sirupsen/logrus"
)

// App holds every initialized dependency. Commands pull it from the
// cobra context; handlers and workers receive the pieces they need.
type App struct {
	Config    *config.Config
	JobClient store.JobClient

	// Individual store interfaces, all backed by the primary store.
	Documents store.DocumentStore
	Projects  store.ProjectStore
	Tasks     store.TaskStore
	Agents    store.AgentStore

	Uploads *uploads.Store
	Invoker services.Invoker

	Registry     *services.TaskRegistry
	Processor    *services.DocumentProcessor
	Orchestrator *services.BatchOrchestrator
	Answerer     *services.Answerer

	primaryStore *primary.StoreImpl
	gemini       *services.GeminiProvider
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	if err := app.initPrimaryStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initJobClient(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initUploads(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initInvoker(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	app.initServices()

	log.Println("Application initialization complete.")
	return app, nil
}

func (a *App) initPrimaryStore(ctx context.Context) error {
	ps, err := primary.NewPrimaryStore(ctx, a.Config.Database.Primary.DSN)
	if err != nil {
		return fmt.Errorf("init primary store: %w", err)
	}
	if err := ps.EnsureSchema(ctx); err != nil {
		ps.Close()
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.primaryStore = ps
	a.Documents = ps
	a.Projects = ps
	a.Tasks = ps
	a.Agents = ps
	return nil
}

func (a *App) initJobClient() error {
	cfg := a.Config
	a.JobClient = store.NewAsynqJobClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	return nil
}

func (a *App) initUploads() error {
	us, err := uploads.NewStore(a.Config.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("init uploads store: %w", err)
	}
	a.Uploads = us
	return nil
}

// initInvoker builds both providers and the router over them. A missing
// API key leaves that provider disabled rather than failing startup;
// calls routed to a disabled provider surface ErrAIUnavailable at call
// time, which the pipelines record as a task failure.
func (a *App) initInvoker(ctx context.Context) error {
	cfg := a.Config

	openaiProvider := services.NewOpenAIProvider(cfg.AI.OpenaiApiKey)
	if !openaiProvider.Available() {
		log.Warn("OpenAI API key not configured, openai provider disabled")
	}

	geminiProvider, err := services.NewGeminiProvider(ctx, cfg.AI.GoogleApiKey)
	if err != nil {
		return fmt.Errorf("init gemini provider: %w", err)
	}
	if !geminiProvider.Available() {
		log.Warn("Gemini API key not configured, gemini provider disabled")
	}
	a.gemini = geminiProvider

	a.Invoker = services.NewRouter(openaiProvider, geminiProvider)
	return nil
}

func (a *App) initServices() {
	cfg := a.Config
	extraction := services.ModelSelector{Provider: cfg.AI.Extraction.Provider, Model: cfg.AI.Extraction.Model}
	batch := services.ModelSelector{Provider: cfg.AI.Batch.Provider, Model: cfg.AI.Batch.Model}
	answers := services.ModelSelector{Provider: cfg.AI.Answers.Provider, Model: cfg.AI.Answers.Model}

	a.Registry = services.NewTaskRegistry(a.Tasks)
	a.Processor = services.NewDocumentProcessor(a.Documents, a.Projects, a.Invoker, extraction)
	a.Orchestrator = services.NewBatchOrchestrator(a.Documents, a.Projects, a.Agents, a.Registry, a.Invoker, batch)
	a.Answerer = services.NewAnswerer(a.Documents, a.Invoker, answers)
}

func (a *App) cleanupPartialInit() {
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			log.Errorf("Failed to close job client during cleanup: %v", err)
		}
	}
	if a.primaryStore != nil {
		a.primaryStore.Close()
	}
}

// Ping verifies database connectivity. Used by the doctor command and
// the health endpoint.
func (a *App) Ping(ctx context.Context) error {
	return a.primaryStore.Ping(ctx)
}

// Close releases all held resources. Safe to call once at shutdown.
func (a *App) Close() {
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			log.Errorf("Failed to close job client: %v", err)
		}
	}
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			log.Errorf("Failed to close gemini client: %v", err)
		}
	}
	if a.primaryStore != nil {
		a.primaryStore.Close()
	}
}
