// voxrelay: real-time voice and text conversational relay.
// Bridges a frontend WebSocket to Gemini generation and Cartesia
// speech synthesis, persisting transcripts in Redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxrelay/voxrelay/internal/config"
	"github.com/voxrelay/voxrelay/internal/log"
	"github.com/voxrelay/voxrelay/pkg/llm"
	"github.com/voxrelay/voxrelay/pkg/server"
	"github.com/voxrelay/voxrelay/pkg/store"
	"github.com/voxrelay/voxrelay/pkg/tts"
)

var version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var (
		port      = flag.Int("port", config.Port(), "HTTP server port")
		mediaDir  = flag.String("media-dir", config.MediaDir(), "Directory for saved audio clips")
		threshold = flag.Int("chunk-threshold", config.ChunkThreshold(), "TTS frames merged per outbound chunk")
		logLevel  = flag.String("log-level", config.LogLevel(), "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	log.Init(*logLevel)
	logger := log.Component("main")
	logger.Info("voxrelay starting", "version", version, "port", *port)

	if err := run(*port, *mediaDir, *threshold); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(port int, mediaDir string, threshold int) error {
	ctx := context.Background()
	logger := log.Component("main")

	st, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	generator, err := openGenerator(ctx, st)
	if err != nil {
		return err
	}
	defer generator.Close()

	// Each chat connection gets its own Cartesia handle; construct one
	// eagerly so a bad configuration fails at startup, not on the first
	// call.
	check, err := newSpeechProvider()
	if err != nil {
		return err
	}
	check.Close()

	srv := server.New(server.Options{
		Store:          st,
		Generator:      generator,
		Speech:         newSpeechProvider,
		MediaDir:       mediaDir,
		ChunkThreshold: threshold,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore connects to Redis when REDIS_ADDR is set and falls back to
// the in-memory store otherwise. The in-memory store loses everything
// on restart; it exists for local development.
func openStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	addr := config.RedisAddr()
	if addr == "" {
		logger.Warn("REDIS_ADDR not set, using in-memory store")
		return store.NewMemoryStore(), nil
	}

	st, err := store.NewRedisStore(ctx, store.RedisOptions{
		Addr:     addr,
		Username: config.RedisUsername(),
		Password: config.RedisPassword(),
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	logger.Info("connected to redis", "addr", addr)
	return st, nil
}

// openGenerator builds the Gemini generator, optionally replacing the
// built-in prompt with a stored call script named by PROMPT_SCRIPT.
func openGenerator(ctx context.Context, st store.Store) (llm.Generator, error) {
	key := config.GeminiAPIKey()
	if key == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}

	var opts []llm.GeminiOption
	if name := config.PromptScript(); name != "" {
		script, err := st.FetchScript(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load prompt script %q: %w", name, err)
		}
		opts = append(opts, llm.WithPromptPrefix(script))
	}

	return llm.NewGemini(ctx, key, opts...)
}

// newSpeechProvider builds a Cartesia handle for one chat connection.
// The WebSocket is dialed lazily, so constructing one only validates
// configuration.
func newSpeechProvider() (tts.Provider, error) {
	return tts.NewCartesia(
		tts.WithAPIKey(config.CartesiaAPIKey()),
		tts.WithVoice(config.CartesiaVoiceID()),
	)
}
