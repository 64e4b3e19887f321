package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lecturegen/internal/avatar"
	"lecturegen/internal/config"
	"lecturegen/internal/courseassets"
	"lecturegen/internal/httpapi"
	"lecturegen/internal/job"
	"lecturegen/internal/layout"
	"lecturegen/internal/llm"
	"lecturegen/internal/observability"
	"lecturegen/internal/pipeline"
	"lecturegen/internal/postproc"
	"lecturegen/internal/retrieval"
	"lecturegen/internal/slideworker"
	"lecturegen/internal/status"
	"lecturegen/internal/taskpool"
	"lecturegen/internal/tts"
)

// poolWorkers bounds how many prompt pipelines run concurrently across the
// whole process; each one fans out further internally (bounded by
// MaterializeConcurrency) for its own per-slide work.
const poolWorkers = 8

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)
	if len(cfg.LogRedactKeys) > 0 {
		observability.ConfigureRedaction(cfg.LogRedactKeys...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("serve: tracing init failed, continuing without it")
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	collabClient := newCollaboratorClient()

	var (
		llmClient    llm.Completer
		retriever    retrieval.Retriever
		ttsClient    tts.Synthesizer
		avatarClient avatar.Renderer
		postProc     postproc.Processor
		assets       pipeline.AssetProvider
	)
	if cfg.Debug {
		log.Warn().Msg("serve: ORPHEUS_DEBUG is set, every collaborator call is mocked")
		llmClient = llm.MockCompleter{}
		retriever = retrieval.Mock{}
		ttsClient = tts.Mock{}
		avatarClient = avatar.Mock{}
		postProc = postproc.NewMock()
		assets = courseassets.MockProvider{}
	} else {
		llmClient = llm.New(cfg.LlamaAPIURL, cfg.LlamaAPIKey, collabClient)
		retriever = retrieval.New(cfg.DocIntAPIURL, collabClient)
		ttsClient = tts.New(cfg.SlidesAPIURL, collabClient)
		avatarClient = avatar.New(cfg.AvatarAPIURL, collabClient)
		postProc = postproc.New(cfg.PostprocessingAPIURL, collabClient)
		assets = courseassets.NewProvider(cfg.CourseAssetsRoot)
	}

	var sinks status.MultiBroadcaster
	redisBroadcaster, err := status.NewRedisBroadcaster(cfg.RedisAddr)
	if err != nil {
		log.Warn().Err(err).Msg("serve: redis broadcaster unavailable, skipping redis status fan-out")
	} else if redisBroadcaster != nil {
		sinks = append(sinks, redisBroadcaster)
	}
	if remote := status.NewHTTPBroadcaster(cfg.StatusServiceHost, collabClient); remote != nil {
		sinks = append(sinks, remote)
	}
	var broadcaster status.Broadcaster
	if len(sinks) > 0 {
		broadcaster = sinks
	}

	statusStore := status.NewStore(cfg.StatusTTL, broadcaster)
	jobs := job.NewManager(cfg.JobTTL)
	layouts := layout.Load()

	slideQueue := slideworker.New(statusStore, ttsClient, avatarClient, cfg.VideoRoot)
	go slideQueue.Run(ctx)

	pl := &pipeline.Pipeline{
		SplittingModel:         cfg.SplittingModel,
		SlidesGenModel:         cfg.SlidesGenModel,
		LLM:                    llmClient,
		Retriever:              retriever,
		PostProc:               postProc,
		Layouts:                layouts,
		Status:                 statusStore,
		Jobs:                   jobs,
		SlideQueue:             slideQueue,
		Assets:                 assets,
		MaterializeConcurrency: 4,
	}

	pool := taskpool.New(256)
	pool.Start(ctx, poolWorkers)

	maintenance := cron.New()
	if _, err := maintenance.AddFunc("@every 10m", func() {
		now := time.Now()
		purged := statusStore.PurgeStale(now)
		evicted := jobs.Evict(now)
		if purged > 0 || evicted > 0 {
			log.Info().Int("statusPurged", purged).Int("jobsEvicted", evicted).Msg("serve: TTL maintenance sweep")
		}
	}); err != nil {
		return fmt.Errorf("schedule TTL maintenance: %w", err)
	}
	maintenance.Start()
	defer func() { <-maintenance.Stop().Done() }()

	apiServer := httpapi.NewServer(statusStore, jobs, postProc, pl, pool)

	// Rendered wav/mp4 files are served directly from the per-prompt
	// workspace, so <PUBLIC_VIDEOS_BASE>/<promptId>/<i>.mp4 resolves to
	// <VIDEO_ROOT>/<promptId>/<i>.mp4.
	root := http.NewServeMux()
	videoBase := "/" + strings.Trim(cfg.PublicVideoBase, "/")
	root.Handle("GET "+videoBase+"/", http.StripPrefix(videoBase+"/", http.FileServer(http.Dir(cfg.VideoRoot))))
	root.Handle("/", apiServer)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("serve: listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("serve: shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("serve: graceful shutdown failed")
	}

	stop()
	pool.Wait()
	return nil
}

// newCollaboratorClient builds the shared HTTP client every collaborator
// wrapper uses: a short connect timeout at the transport level and a long
// overall timeout bounding slow reads (TTS and talking-head rendering can
// each take several minutes), wrapped with otelhttp instrumentation.
func newCollaboratorClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
	}
	base := &http.Client{Transport: transport, Timeout: 10 * time.Minute}
	return observability.NewHTTPClient(base)
}
