package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"quizdesk/internal/app"
	"quizdesk/internal/config"
	"quizdesk/internal/infra/llm"
	"quizdesk/internal/logger"
	"quizdesk/internal/monitoring"
	transport "quizdesk/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func initLogger(cfg config.Config) {
	logger.Init(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, File: cfg.Log.File})
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (or QUIZDESK_JWT_SECRET) is required")
	}
	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	generator, closeGenerator, err := buildGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGenerator()

	monitoring.Init()
	quizzes := app.NewQuizService(st.quizzes,
		app.WithFeedback(app.NewFeedbackService(generator)),
		app.WithPassThreshold(cfg.Grading.PassThreshold),
	)
	handler := transport.NewHandler(
		quizzes,
		app.NewDashboardService(st.quizzes, st.users, cfg.Grading.PassThreshold, nil),
		app.NewAdminService(st.quizzes, st.users),
		app.NewUserService(st.users, st.quizzes, nil),
	)
	router := transport.NewRouter(handler, transport.RouterOptions{
		Mode:         cfg.Server.Mode,
		JWTSecret:    cfg.Auth.JWTSecret,
		AllowOrigins: cfg.Server.AllowOrigins,
		RateLimit:    cfg.Server.RateLimit,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", finalPort).Bool("feedback", generator != nil).Msg("starting quizdesk")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildGenerator returns nil when feedback is switched off.
func buildGenerator(ctx context.Context, cfg config.Config) (app.TextGenerator, func(), error) {
	noop := func() {}
	if !cfg.FeedbackEnabled() {
		return nil, noop, nil
	}
	timeout := config.TTLDuration(cfg.Feedback.Timeout, 30*time.Second)
	switch cfg.Feedback.Provider {
	case "gemini":
		g, err := llm.NewGemini(ctx, cfg.Feedback.APIKey, cfg.Feedback.Model)
		if err != nil {
			return nil, noop, err
		}
		return g, func() { _ = g.Close() }, nil
	case "openai":
		return llm.NewOpenAI(cfg.Feedback.BaseURL, cfg.Feedback.APIKey, cfg.Feedback.Model, timeout), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown feedback provider %q", cfg.Feedback.Provider)
}
