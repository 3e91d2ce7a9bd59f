package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/config"
	"github.com/RubachokBoss/homework-distributor/internal/delivery/httpd"
	"github.com/RubachokBoss/homework-distributor/internal/delivery/telegram"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/RubachokBoss/homework-distributor/internal/repository/memory"
	"github.com/RubachokBoss/homework-distributor/internal/service"
	"github.com/RubachokBoss/homework-distributor/internal/service/integration"
	"github.com/RubachokBoss/homework-distributor/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type App struct {
	server     *http.Server
	logger     zerolog.Logger
	config     *config.Config
	db         *sql.DB
	publisher  integration.EventPublisher
	pool       *worker.WorkerPool
	scheduler  *service.Scheduler
	telegram   *integration.TelegramClient
	dispatcher *telegram.Dispatcher

	dispatcherDone chan struct{}
}

type repositories struct {
	students    repository.StudentRepository
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	settings    repository.SettingRepository
	health      httpd.StorePinger
}

// New wires the application. db is nil when the memory driver is configured.
func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	repos := newRepositories(cfg, db, log)

	store, err := newArtifactStore(cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	publisher := newPublisher(cfg.RabbitMQ, log)

	tg, err := integration.NewTelegramClient(cfg.Telegram, store, log)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	location, err := cfg.Scheduler.Location()
	if err != nil {
		publisher.Close()
		return nil, err
	}

	pool := worker.NewWorkerPool(cfg.Distribution.Workers, cfg.Distribution.QueueSize, log)

	// Services
	accessService := service.NewAccessService(repos.settings, cfg.Telegram.TeacherChatID, log)
	studentService := service.NewStudentService(repos.students, log)
	taskService := service.NewTaskService(repos.tasks, store, log)
	statsService := service.NewStatsService(repos.tasks, repos.students, repos.submissions, log)
	resolver := service.NewSubmissionResolver(repos.tasks, log)
	submissionService := service.NewSubmissionService(
		repos.submissions,
		repos.students,
		repos.tasks,
		resolver,
		accessService,
		store,
		tg,
		publisher,
		log,
	)
	distributionService := service.NewDistributionService(
		repos.tasks,
		repos.students,
		statsService,
		tg,
		publisher,
		pool,
		cfg.Distribution.SendTimeout,
		log,
	)
	scheduler := service.NewScheduler(repos.tasks, distributionService, location, log)

	dispatcher := telegram.NewDispatcher(
		accessService,
		studentService,
		taskService,
		submissionService,
		distributionService,
		statsService,
		scheduler,
		tg,
		tg,
		log,
	)

	a := &App{
		logger:         log,
		config:         cfg,
		db:             db,
		publisher:      publisher,
		pool:           pool,
		scheduler:      scheduler,
		telegram:       tg,
		dispatcher:     dispatcher,
		dispatcherDone: make(chan struct{}),
	}

	if cfg.Server.Enabled {
		handler := httpd.NewHandler(
			accessService,
			studentService,
			taskService,
			submissionService,
			distributionService,
			statsService,
			scheduler,
			repos.health,
			pool,
			log,
		)
		a.server = newServer(cfg, handler, log)
	}

	return a, nil
}

func newRepositories(cfg *config.Config, db *sql.DB, log zerolog.Logger) repositories {
	if cfg.Database.Driver == "memory" || db == nil {
		mem := memory.Open()
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return repositories{
			students:    memory.NewStudentRepository(mem),
			tasks:       memory.NewTaskRepository(mem),
			submissions: memory.NewSubmissionRepository(mem),
			settings:    memory.NewSettingRepository(mem),
			health:      mem,
		}
	}

	return repositories{
		students:    repository.NewStudentRepository(db, log),
		tasks:       repository.NewTaskRepository(db, log),
		submissions: repository.NewSubmissionRepository(db, log),
		settings:    repository.NewSettingRepository(db, log),
		health:      repository.NewPostgresRepository(db, log),
	}
}

func newArtifactStore(cfg config.StorageConfig, log zerolog.Logger) (integration.ArtifactStore, error) {
	switch cfg.Driver {
	case "minio":
		return integration.NewMinIOArtifactStore(cfg.MinIO, log)
	default:
		return integration.NewLocalArtifactStore(cfg.LocalDir, log)
	}
}

func newPublisher(cfg config.RabbitMQConfig, log zerolog.Logger) integration.EventPublisher {
	if !cfg.Enabled {
		return integration.NewNoopPublisher()
	}

	publisher, err := integration.NewRabbitMQClient(cfg, log)
	if err != nil {
		// Events are optional; the bot keeps working without RabbitMQ.
		log.Error().Err(err).Msg("Failed to create RabbitMQ client")
		return integration.NewNoopPublisher()
	}
	return publisher
}

func newServer(cfg *config.Config, handler *httpd.Handler, log zerolog.Logger) *http.Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpd.RequestLogger(log))
	router.Use(httpd.Recovery(log))
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	return &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

// Run starts every component and blocks until ctx is done or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	a.pool.Start()

	if _, err := a.scheduler.Restore(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to restore schedules")
	}
	a.scheduler.Start()

	errCh := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.logger.Info().Msgf("Starting admin API on %s", a.config.Server.Address)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("admin API: %w", err)
			}
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.config.Telegram.PollTimeout
	updates := a.telegram.Bot().GetUpdatesChan(u)

	go func() {
		defer close(a.dispatcherDone)
		a.dispatcher.Run(ctx, updates)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down homework distributor...")

	a.telegram.Bot().StopReceivingUpdates()

	select {
	case <-a.dispatcherDone:
	case <-ctx.Done():
		a.logger.Warn().Msg("Timed out waiting for Telegram handlers")
	}

	a.scheduler.Stop(ctx)

	var serverErr error
	if a.server != nil {
		serverErr = a.server.Shutdown(ctx)
	}

	a.pool.Stop()

	if err := a.publisher.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return serverErr
}
