package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"patientsim/internal/bot"
	"patientsim/internal/config"
	"patientsim/internal/core"
	"patientsim/internal/db"
	httpserver "patientsim/internal/http"
	"patientsim/internal/llm"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the bot HTTP server",
		RunE:  runServe,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	repo := db.NewRepository(database)
	notifier := db.NewNotifier(database, cfg.Database.NotifyChannel)
	sim := newSimulator(repo, notifier, newModelClient(cfg.Model), cfg)
	dispatcher := bot.NewDispatcher(sim, bot.NewConversationStore())

	router := httpserver.NewRouter(&httpserver.Server{
		Updates:   dispatcher,
		Sessions:  repo,
		Completed: notifier,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logrus.WithFields(logrus.Fields{
		"addr":     cfg.Server.Addr,
		"dialect":  database.Dialect,
		"provider": cfg.Model.Provider,
	}).Info("simbot listening")
	return runServer(ctx, srv)
}

func newModelClient(mc config.ModelConfig) llm.Client {
	if mc.Provider == config.ProviderOpenAI {
		return llm.NewOpenAIClient(mc.APIKey, mc.Model, mc.BaseURL)
	}
	return llm.NewHTTPClient(mc.BaseURL, mc.Timeout)
}

func newSimulator(repo *db.Repository, notifier db.Notifier, client llm.Client, c *config.Config) *core.Simulator {
	return core.NewSimulator(
		core.NewPersonaStore(repo),
		core.NewSessionManager(repo, notifier),
		core.NewTranscriptLog(repo),
		core.NewGateway(client, c.Model.Timeout),
		core.SimulatorConfig{
			DefaultPersona: c.Sim.DefaultPersona,
			HistoryLimit:   c.Sim.HistoryLimit,
			Generation: core.GenerationParams{
				Temperature: c.Model.Temperature,
				MaxTokens:   c.Model.MaxTokens,
			},
		},
	)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logrus.Info("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
