// Command novaguard serves the prescription safety API: patient
// records, chat sessions, and the streaming audit endpoint.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/novaguard/novaguard/fda"
	"github.com/novaguard/novaguard/pipeline"
	"github.com/novaguard/novaguard/provider"
	"github.com/novaguard/novaguard/provider/anthropic"
	"github.com/novaguard/novaguard/provider/openai"
	"github.com/novaguard/novaguard/store"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("opening store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	chat, err := buildProvider(cfg)
	if err != nil {
		log.Error("building provider", "error", err)
		os.Exit(1)
	}

	deps := pipeline.Deps{
		Chat:   chat,
		FDA:    fda.NewClient(cfg.OpenFDAKey),
		RxNorm: fda.NewRxNorm(),
		Log:    log,
	}

	srv := NewServer(db, deps, cfg.AuthToken, log)

	log.Info("listening", "addr", cfg.Addr, "provider", cfg.Provider)
	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Routes(),
		// No WriteTimeout: the audit endpoint holds the response open
		// for the duration of a run.
	}
	if err := httpSrv.ListenAndServe(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func buildProvider(cfg Config) (provider.Chat, error) {
	switch cfg.Provider {
	case "openai":
		var opts []openai.ClientOption
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		return openai.New(cfg.OpenAIKey, opts...), nil
	default:
		var opts []anthropic.ClientOption
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		return anthropic.New(cfg.AnthropicKey, opts...), nil
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
