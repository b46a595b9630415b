package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizhub/internal/app"
	"quizhub/internal/config"
	"quizhub/internal/domain"
	"quizhub/internal/infra/memory"
	pgloader "quizhub/internal/infra/postgres"
	redisinfra "quizhub/internal/infra/redis"
	transport "quizhub/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 4*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var settingsRepo app.SettingsRepository = memory.NewStaticSettings(domain.DefaultSettings())
	if pool != nil {
		settingsRepo = pgloader.NewSettingsLoader(pool)
	}

	var registry app.SessionRegistry = memory.NewSessionRegistry()
	if redisClient != nil {
		registry = redisinfra.NewSessionRegistry(registry, redisClient, redisTTL)
	}

	idleTTL := config.TTLDuration(cfg.Session.IdleTTL, time.Hour)
	service := app.NewGameService(registry, quizRepo, settingsRepo, idleTTL, cfg.Session.CodeLength)

	janitorCtx, janitorCancel := context.WithCancel(ctx)
	defer janitorCancel()
	go service.RunJanitor(janitorCtx, config.TTLDuration(cfg.Session.SweepInterval, time.Minute))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizhub on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides demo content so the server is playable without
// Postgres; swap in the DB-backed loader for real deployments.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			ID:               "demo",
			Title:            "Warm-up Trivia",
			DefaultTimeLimit: 20,
			Questions: []domain.Question{
				{
					ID:   "q1",
					Text: "Which planet has the shortest day?",
					Options: []domain.Option{
						{ID: "o1", Text: "Mercury", Correct: false},
						{ID: "o2", Text: "Jupiter", Correct: true},
						{ID: "o3", Text: "Mars", Correct: false},
					},
					Points:      1000,
					Explanation: "Jupiter rotates once in just under ten hours.",
				},
				{
					ID:   "q2",
					Text: "What year did the first website go online?",
					Options: []domain.Option{
						{ID: "o1", Text: "1989", Correct: false},
						{ID: "o2", Text: "1991", Correct: true},
						{ID: "o3", Text: "1994", Correct: false},
					},
					TimeLimit: 15,
					Points:    1000,
				},
			},
		},
	}
}
