package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/audio"
	"github.com/Lothnic/hack-the-throne/internal/config"
	"github.com/Lothnic/hack-the-throne/internal/event"
	"github.com/Lothnic/hack-the-throne/internal/face"
	"github.com/Lothnic/hack-the-throne/internal/identity"
	"github.com/Lothnic/hack-the-throne/internal/metrics"
	"github.com/Lothnic/hack-the-throne/internal/server"
	"github.com/Lothnic/hack-the-throne/internal/session"
	"github.com/Lothnic/hack-the-throne/internal/transcribe"
	"github.com/Lothnic/hack-the-throne/internal/vad"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("session-fusion %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting session fusion service",
		slog.String("version", version),
		slog.String("config", *configPath))

	if err := run(cfg, logger); err != nil {
		logger.Error("Service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics()
	bus := event.NewBus(cfg.Fusion.EventQueueSize, logger)

	directory, closeDirectory, err := openDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDirectory()

	gate, err := vad.NewGate(cfg.VAD.Aggressiveness, cfg.VAD.MinSpeechRMS, logger)
	if err != nil {
		return fmt.Errorf("failed to create VAD gate: %w", err)
	}

	matcher, err := face.NewMatcher(cfg.Fusion.FaceMatchThreshold)
	if err != nil {
		return fmt.Errorf("failed to create face matcher: %w", err)
	}

	chain, err := buildChain(cfg, directory, logger)
	if err != nil {
		return err
	}
	logger.Info("Transcription chain assembled",
		slog.String("policy", cfg.Transcription.Policy),
		slog.Any("backends", chain.Backends()))

	extractor, err := buildExtractor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	resolver := identity.NewResolver(directory, logger)

	persister := identity.NewPersister(bus, directory, extractor, resolver,
		cfg.Identity.GetTimeout(), m, logger)
	go persister.Run(ctx)

	var faceExtractor *face.Extractor
	if cfg.Fusion.FaceExtractorEndpoint != "" {
		faceExtractor = face.NewExtractor(face.ExtractorConfig{
			Endpoint: cfg.Fusion.FaceExtractorEndpoint,
			Timeout:  cfg.Identity.GetTimeout(),
		}, logger)
	} else {
		logger.Warn("No face extractor endpoint configured, video frames will be ignored")
	}

	manager := session.NewManager(cfg, session.Deps{
		Transcriber:   chain,
		Gate:          gate,
		Denoiser:      audio.PassthroughDenoiser{},
		Extractor:     extractor,
		Resolver:      resolver,
		FaceExtractor: faceExtractor,
		Matcher:       matcher,
		Directory:     directory,
		Bus:           bus,
		Metrics:       m,
		Logger:        logger,
	})
	manager.Start()

	srv := server.NewServer(cfg, manager, bus, directory, chain, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", slog.String("error", err.Error()))
	}

	// Sessions flush and publish their conversation ends here; the
	// persister is still running so they land in the directory.
	manager.Stop()
	time.Sleep(100 * time.Millisecond)
	cancel()

	logger.Info("Shutdown complete")
	return nil
}

func initLogger(cfg *config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out *os.File
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), nil
}

func openDirectory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (face.Directory, func(), error) {
	switch cfg.Directory.Driver {
	case "postgres":
		pg, err := face.NewPostgresDirectory(ctx, cfg.Credentials.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres directory: %w", err)
		}
		logger.Info("Using postgres person directory")
		return pg, pg.Close, nil
	default:
		logger.Info("Using in-memory person directory")
		return face.NewMemoryDirectory(), func() {}, nil
	}
}

func buildChain(cfg *config.Config, directory face.Directory, logger *slog.Logger) (*transcribe.Chain, error) {
	// Recently seen names prime cloud recognizers toward correct spellings
	promptFn := func() string {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		people, err := directory.RecentPeople(ctx, 5)
		if err != nil {
			return transcribe.BuildPrompt(nil)
		}
		names := make([]string, 0, len(people))
		for _, p := range people {
			if p.Name != identity.UnknownPersonName {
				names = append(names, p.Name)
			}
		}
		return transcribe.BuildPrompt(names)
	}

	timeout := cfg.Transcription.GetTimeout()
	backends := []transcribe.Transcriber{
		transcribe.NewGroq(transcribe.GroqConfig{
			APIKey:  cfg.Credentials.GroqAPIKey,
			BaseURL: cfg.Transcription.Groq.BaseURL,
			Model:   cfg.Transcription.Groq.Model,
		}, promptFn, logger),
		transcribe.NewElevenLabs(transcribe.ElevenLabsConfig{
			APIKey:   cfg.Credentials.ElevenLabsAPIKey,
			Endpoint: cfg.Transcription.ElevenLabs.Endpoint,
			Model:    cfg.Transcription.ElevenLabs.Model,
			Timeout:  timeout,
		}, logger),
		transcribe.NewSarvam(transcribe.SarvamConfig{
			APIKey:      cfg.Credentials.SarvamAPIKey,
			Endpoint:    cfg.Transcription.Sarvam.Endpoint,
			Model:       cfg.Transcription.Sarvam.Model,
			MaxChunkSec: cfg.Transcription.Sarvam.MaxChunkDuration,
			OverlapSec:  cfg.Transcription.Sarvam.OverlapDuration,
			Timeout:     timeout,
		}, logger),
	}

	var loader transcribe.EngineLoader
	if cfg.Transcription.Local.Enabled {
		loader = transcribe.WhisperCppLoader(cfg.Transcription.Local.ModelPath, logger)
	}
	backends = append(backends, transcribe.NewLocal(loader, logger))

	chain, err := transcribe.NewChain(transcribe.ChainConfig{
		Policy: cfg.Transcription.Policy,
		Fixed:  cfg.Transcription.Preferred,
	}, backends, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transcription chain: %w", err)
	}
	return chain, nil
}

func buildExtractor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (identity.Extractor, error) {
	switch strings.ToLower(cfg.Identity.Provider) {
	case "groq":
		return identity.NewGroqExtractor(identity.GroqConfig{
			APIKey:  cfg.Credentials.GroqAPIKey,
			BaseURL: cfg.Transcription.Groq.BaseURL,
			Model:   cfg.Identity.Model,
		}, logger), nil
	case "gemini":
		extractor, err := identity.NewGeminiExtractor(ctx, identity.GeminiConfig{
			APIKey: cfg.Credentials.GeminiAPIKey,
			Model:  cfg.Identity.Model,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini extractor: %w", err)
		}
		return extractor, nil
	default:
		logger.Info("Identity extraction disabled")
		return nil, nil
	}
}
