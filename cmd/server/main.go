// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/19deck/internal/api/connect"
	"github.com/osa030/19deck/internal/api/deckv1"
	"github.com/osa030/19deck/internal/api/deckv1/deckv1connect"
	"github.com/osa030/19deck/internal/app/library"
	"github.com/osa030/19deck/internal/app/notification"
	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/domain/playlist"
	"github.com/osa030/19deck/internal/domain/track"
	"github.com/osa030/19deck/internal/infra/audio"
	"github.com/osa030/19deck/internal/infra/config"
	"github.com/osa030/19deck/internal/infra/logger"
	"github.com/osa030/19deck/internal/infra/resolver"
	"github.com/osa030/19deck/internal/infra/spotify"
)

var (
	app        = kingpin.New("19deck-server", "19deck playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logFormat  = app.Flag("log-format", "Log format: console or json (default: by output)").Enum("console", "json")

	// list-tracks command
	listTracksCmd = app.Command("list-tracks", "Load the configured playlist, print it and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		Format: *logFormat,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == listTracksCmd.FullCommand() {
		if err := listTracks(cfg); err != nil {
			zlog.Error().Msgf("Failed to list tracks: %v", err)
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !audio.Available {
		zlog.Warn().Msg("Audio output is not available in this build, every load will fail")
	}

	spotifyClient, err := newSpotifyClient(ctx, cfg)
	if err != nil {
		return err
	}

	chain, err := newChain(cfg, spotifyClient)
	if err != nil {
		return err
	}

	queue := playlist.NewQueue()
	if err := chain.Sync(ctx, queue); err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	notifManager := notification.NewManager(notification.WithMessages(cfg.GetMessage))

	engine, err := newEngine(cfg, queue, newRouter(spotifyClient), notifManager)
	if err != nil {
		return err
	}

	go notifManager.Pump(ctx, engine.Events())
	go chain.Watch(ctx, queue, func(tracks []track.Track) {
		notifManager.Broadcast(&deckv1.Notification{
			Type:      deckv1.NotificationTypePlaylistUpdated,
			Message:   fmt.Sprintf("%d tracks", len(tracks)),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	})

	// Streams end when done is closed
	done := make(chan struct{})

	playerService := apiconnect.NewPlayerService(engine, notifManager, done)
	controlService := apiconnect.NewControlService(engine, cfg)

	mux := http.NewServeMux()
	playerPath, playerHandler := deckv1connect.NewPlayerServiceHandler(playerService)

	adminAuthInterceptor := apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)
	controlPath, controlHandler := deckv1connect.NewControlServiceHandler(
		controlService,
		connect.WithInterceptors(adminAuthInterceptor),
	)

	mux.Handle(playerPath, playerHandler)
	mux.Handle(controlPath, controlHandler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s tracks=%d", cfg.Server.Addr, queue.Len())
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// End notification streams first so Shutdown does not wait on them
	close(done)
	notifManager.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	cancel()
	if err := engine.Close(); err != nil {
		zlog.Error().Msgf("Failed to close playback engine: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// newSpotifyClient returns nil when no provider needs Spotify.
func newSpotifyClient(ctx context.Context, cfg *config.Config) (*spotify.Client, error) {
	if !cfg.UsesSpotify() {
		return nil, nil
	}
	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Market:       cfg.Spotify.Market,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify client: %w", err)
	}
	return client, nil
}

// newChain builds the provider chain. A nil client must reach the library
// as a nil interface, not a typed nil.
func newChain(cfg *config.Config, client *spotify.Client) (*library.Chain, error) {
	var sp library.SpotifyClient
	if client != nil {
		sp = client
	}
	chain, err := library.NewChainFromConfig(cfg, sp)
	if err != nil {
		return nil, fmt.Errorf("failed to create library: %w", err)
	}
	return chain, nil
}

// newRouter routes indirect sources to the services that can resolve them.
func newRouter(client *spotify.Client) *resolver.Router {
	router := resolver.NewRouter()
	if client != nil {
		router.HandleFunc(spotify.SourcePrefix, client.ResolveSource)
	}
	return router
}

func newEngine(cfg *config.Config, queue *playlist.Queue, router *resolver.Router, notifier playback.Notifier) (*playback.Engine, error) {
	repeat, err := playback.ParseRepeatMode(cfg.Playback.Repeat)
	if err != nil {
		return nil, fmt.Errorf("invalid playback config: %w", err)
	}

	factory := audio.NewFactory(audio.Config{
		SampleRate:     cfg.Audio.SampleRate,
		Buffer:         time.Duration(cfg.Audio.BufferMs) * time.Millisecond,
		StatusInterval: time.Duration(cfg.Audio.StatusIntervalMs) * time.Millisecond,
		HTTPTimeout:    time.Duration(cfg.Audio.HTTPTimeoutMs) * time.Millisecond,
	})

	engineConfig := playback.Config{
		IdleUnload:               cfg.Playback.IdleUnload(),
		ResolveTimeout:           cfg.Playback.ResolveTimeout(),
		SettleDelay:              cfg.Playback.SettleDelay(),
		RestartThreshold:         cfg.Playback.RestartThreshold(),
		DriftTolerance:           cfg.Playback.DriftTolerance(),
		InitialVolume:            cfg.Playback.InitialVolume,
		ShuffleExcludesAncillary: !cfg.Playback.ShuffleIncludesAncillary,
	}

	return playback.NewEngine(engineConfig, queue, factory,
		playback.WithResolver(router),
		playback.WithNotifier(notifier),
		playback.WithModes(cfg.Playback.Shuffle, repeat),
	), nil
}

// listTracks prints the playlist the configured providers produce.
func listTracks(cfg *config.Config) error {
	ctx := context.Background()

	spotifyClient, err := newSpotifyClient(ctx, cfg)
	if err != nil {
		return err
	}
	chain, err := newChain(cfg, spotifyClient)
	if err != nil {
		return err
	}
	tracks, err := chain.Load(ctx)
	if err != nil {
		return err
	}

	pl := playlist.Playlist{Name: chain.Name(), Tracks: tracks}
	fmt.Printf("Playlist: %d tracks, %s\n", len(tracks), pl.TotalDuration().Round(time.Second))
	for i, t := range tracks {
		marker := " "
		if t.Ancillary {
			marker = "*"
		}
		fmt.Printf("%s %3d. %-40s %8s  %s\n", marker, i+1, t.DisplayName(), t.Duration.Round(time.Second), t.Source)
	}
	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", strings.TrimSpace(hook))
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
