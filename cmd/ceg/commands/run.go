package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shugein/ceg/internal/cmnln"
	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/extraction"
	"github.com/shugein/ceg/internal/graphwriter"
	"github.com/shugein/ceg/internal/importance"
	"github.com/shugein/ceg/internal/lifecycle"
	"github.com/shugein/ceg/internal/linker"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/marketdata"
	"github.com/shugein/ceg/internal/marketimpact"
	"github.com/shugein/ceg/internal/metrics"
	"github.com/shugein/ceg/internal/models"
	"github.com/shugein/ceg/internal/orchestrator"
	"github.com/shugein/ceg/internal/reconciler"
	"github.com/shugein/ceg/internal/source"
	"github.com/shugein/ceg/internal/tracing"
	"github.com/shugein/ceg/internal/watchers"
	"github.com/spf13/cobra"
)

var (
	configPath        string
	instrumentsPath   string
	aliasesPath       string
	cursorDir         string
	watcherRulesPath  string
	watcherWebhookURL string
	watchSweepInterval time.Duration

	graphHost     string
	graphPort     int
	graphPassword string
	graphName     string

	extractionMode string
	extractionKey  string
	extractionModel string
	ollamaURL      string
	ollamaModel    string

	marketDataEndpoint string

	sourceFilter    []string
	sourceEndpoints map[string]string
	lookbackDays    int
	realtime        bool
	batchSize       int

	tracingEnabled  bool
	tracingEndpoint string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the causal event graph pipeline",
	Run:   runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to pipeline config YAML (optional, defaults to built-in defaults)")
	runCmd.Flags().StringVar(&instrumentsPath, "instruments", "", "Path to the instrument universe YAML/JSON file (required)")
	runCmd.Flags().StringVar(&aliasesPath, "aliases", "aliases.json", "Path to the alias-table persistence file")
	runCmd.Flags().StringVar(&cursorDir, "cursor-dir", "./cursors", "Directory holding per-source cursor files")
	runCmd.Flags().StringVar(&watcherRulesPath, "watcher-rules", "", "Path to a watcher-rule YAML file (defaults to the built-in rule set)")
	runCmd.Flags().StringVar(&watcherWebhookURL, "watcher-webhook", "", "Webhook URL triggered watches are also delivered to (optional)")
	runCmd.Flags().DurationVar(&watchSweepInterval, "watch-sweep-interval", 5*time.Minute, "How often to sweep expired watches")

	runCmd.Flags().StringVar(&graphHost, "graph-host", "localhost", "FalkorDB host")
	runCmd.Flags().IntVar(&graphPort, "graph-port", 6379, "FalkorDB port")
	runCmd.Flags().StringVar(&graphPassword, "graph-password", "", "FalkorDB password (optional)")
	runCmd.Flags().StringVar(&graphName, "graph-name", "ceg", "FalkorDB graph name")

	runCmd.Flags().StringVar(&extractionMode, "extraction", "remote", "Extraction provider: remote (Anthropic) or local (Ollama)")
	runCmd.Flags().StringVar(&extractionKey, "extraction-api-key", "", "Anthropic API key (defaults to ANTHROPIC_API_KEY env var, remote mode only)")
	runCmd.Flags().StringVar(&extractionModel, "extraction-model", "", "Model name override for the remote provider")
	runCmd.Flags().StringVar(&ollamaURL, "ollama-url", "http://localhost:11434", "Ollama server base URL (local mode only)")
	runCmd.Flags().StringVar(&ollamaModel, "ollama-model", "llama3.1", "Ollama model name (local mode only)")

	runCmd.Flags().StringVar(&marketDataEndpoint, "market-data-endpoint", "", "Base URL of the OHLCV/index JSON endpoint (optional; Market-Impact Study is disabled when empty)")

	runCmd.Flags().StringArrayVar(&sourceFilter, "source", nil, "Restrict processing to this source code (repeatable; default: all enabled sources)")
	runCmd.Flags().StringToStringVar(&sourceEndpoints, "source-endpoint", nil, "code=url mapping for web-kind sources (repeatable)")
	runCmd.Flags().IntVar(&lookbackDays, "days", 0, "Historical lookback in days for a source's first run, overriding its configured default (0 = use config)")
	runCmd.Flags().BoolVar(&realtime, "realtime", true, "Keep polling sources on their configured interval after the initial fill")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Override the orchestrator's batch size (0 = use config)")

	runCmd.Flags().BoolVar(&tracingEnabled, "tracing-enabled", false, "Enable OpenTelemetry tracing")
	runCmd.Flags().StringVar(&tracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint for traces")
}

func runPipeline(cmd *cobra.Command, args []string) {
	if err := setupLog(logLevelFlags); err != nil {
		HandleError(err, "failed to set up logging", exitConfigError)
	}
	logger := logging.GetLogger("cmd.ceg")
	logger.Info("starting ceg v%s", Version)

	cfg, err := loadPipelineConfig()
	if err != nil {
		HandleError(err, "configuration error", exitConfigError)
	}
	applyCLIOverrides(cfg)

	if instrumentsPath == "" {
		HandleError(fmt.Errorf("--instruments is required"), "configuration error", exitConfigError)
	}
	instruments, err := orchestrator.LoadInstrumentUniverse(instrumentsPath)
	if err != nil {
		HandleError(err, "failed to load instrument universe", exitConfigError)
	}

	manager := lifecycle.NewManager()

	tracingProvider, err := tracing.NewTracingProvider(tracing.Config{Enabled: tracingEnabled, Endpoint: tracingEndpoint})
	if err != nil {
		logger.Warn("failed to initialize tracing (continuing without tracing): %v", err)
	} else if err := manager.Register(tracingProvider); err != nil {
		HandleError(err, "failed to register tracing provider", exitConfigError)
	}

	metricsPipeline := metrics.New(prometheus.DefaultRegisterer)
	logger.Info("metrics registered")

	graphClient := graphwriter.NewClient(graphwriter.Config{
		Host:         graphHost,
		Port:         graphPort,
		Password:     graphPassword,
		GraphName:    graphName,
		MaxRetries:   graphwriter.DefaultConfig().MaxRetries,
		DialTimeout:  graphwriter.DefaultConfig().DialTimeout,
		ReadTimeout:  graphwriter.DefaultConfig().ReadTimeout,
		WriteTimeout: graphwriter.DefaultConfig().WriteTimeout,
		PoolSize:     graphwriter.DefaultConfig().PoolSize,
	})
	graph := &graphComponent{client: graphClient}
	if err := manager.Register(graph); err != nil {
		HandleError(err, "failed to register graph client", exitConfigError)
	}

	aliases, err := linker.NewAliasTable(nil, aliasesPath)
	if err != nil {
		HandleError(err, "failed to load alias table", exitConfigError)
	}
	fuzzy := linker.NewFuzzyIndex(instruments.Instruments())
	l, err := linker.New(cfg.Linker, instruments, aliases, nil, fuzzy, 256)
	if err != nil {
		HandleError(err, "failed to build instrument linker", exitConfigError)
	}

	provider, err := buildExtractionProvider()
	if err != nil {
		HandleError(err, "failed to build extraction provider", exitConfigError)
	}
	extractor, err := extraction.NewExtractor(provider, 1024)
	if err != nil {
		HandleError(err, "failed to build extraction client", exitConfigError)
	}

	var study *marketimpact.Study
	if marketDataEndpoint != "" {
		mdProvider, err := marketdata.NewHTTPProvider(marketdata.HTTPProviderConfig{BaseURL: marketDataEndpoint})
		if err != nil {
			HandleError(err, "failed to build market-data provider", exitConfigError)
		}
		study = marketimpact.New(mdProvider, cfg.EventStudy)
	} else {
		logger.Warn("--market-data-endpoint not set, Market-Impact Study disabled")
	}

	scorer := importance.NewScorer(cfg.Importance)
	stats := graphwriter.NewStatsReader(graphClient)
	writer := graphwriter.New(graphClient, cfg.Orchestrator.RetryAttempts, cfg.Orchestrator.RetryBaseDelay)
	eventReader := graphwriter.NewEventReader(graphClient)
	chainReader := graphwriter.NewChainReader(graphClient)
	predictionStore := graphwriter.NewPredictionStore(graphClient, writer)

	cmnlnEngine := cmnln.NewEngine(cfg.CMNLN)
	accuracy := watchers.NewAccuracyAggregate()
	recon := reconciler.New(cfg.Reconciler, cmnlnEngine, eventReader, chainReader, writer, predictionStore, accuracy)

	rules, err := loadWatcherRules()
	if err != nil {
		HandleError(err, "failed to load watcher rules", exitConfigError)
	}
	followOn := graphwriter.NewFollowOnAnalyzer(graphClient)
	watchEngine := watchers.New(rules, followOn)

	if watcherRulesPath != "" {
		reloader, err := watchers.NewRuleReloader(watcherRulesPath, watchEngine)
		if err != nil {
			HandleError(err, "failed to start watcher-rule hot reload", exitConfigError)
		}
		if err := manager.Register(reloader); err != nil {
			HandleError(err, "failed to register watcher-rule hot reload", exitConfigError)
		}
	}

	if configPath != "" {
		configReloader, err := config.NewHotReloader(configPath, 500*time.Millisecond, reloadCallback(cfg, logger))
		if err != nil {
			HandleError(err, "failed to start config hot reload", exitConfigError)
		}
		if err := manager.Register(&configComponent{reloader: configReloader}); err != nil {
			HandleError(err, "failed to register config hot reload", exitConfigError)
		}
	}

	notifier := watchers.NewNotifier()
	notifier.Register(watchers.NewLogHandler())
	if watcherWebhookURL != "" {
		notifier.Register(watchers.NewWebhookHandler(watcherWebhookURL, 10*time.Second))
	}

	sweeper := watchers.NewExpirySweeper(predictionStore.PredictionReader, writer, watchSweepInterval)
	if err := manager.Register(sweeper, graph); err != nil {
		HandleError(err, "failed to register watch-expiry sweeper", exitConfigError)
	}

	pipeline := orchestrator.NewPipeline(cfg.Orchestrator, l, instruments, scorer, stats, study, writer, watchEngine, notifier, recon).
		WithMetrics(metricsPipeline)

	cursorStore, err := buildCursorStore(cfg.Sources)
	if err != nil {
		HandleError(err, "failed to initialize cursor store", exitConfigError)
	}

	orch, err := orchestrator.New(cfg, adapterFor, cursorStore, extractor, pipeline)
	if err != nil {
		HandleError(err, "failed to build orchestrator", exitConfigError)
	}
	orch.WithMetrics(metricsPipeline)
	if err := manager.Register(orch, graph); err != nil {
		HandleError(err, "failed to register orchestrator", exitConfigError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := manager.Start(ctx); err != nil {
		cancel()
		HandleError(err, "startup error", exitTransportFail)
	}
	logger.Info("pipeline started, realtime=%v", realtime)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received, gracefully shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("error during shutdown: %v", err)
	}
	metricsPipeline.Unregister()

	logger.Info("shutdown complete")
	os.Exit(exitCancelled)
}

func loadPipelineConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func applyCLIOverrides(cfg *config.Config) {
	if batchSize > 0 {
		cfg.Orchestrator.BatchSize = batchSize
	}
	if len(sourceFilter) > 0 {
		allow := make(map[string]bool, len(sourceFilter))
		for _, code := range sourceFilter {
			allow[code] = true
		}
		for i := range cfg.Sources {
			if !allow[cfg.Sources[i].Code] {
				cfg.Sources[i].Enabled = false
			}
		}
	}
	if lookbackDays > 0 {
		for i := range cfg.Sources {
			cfg.Sources[i].LookbackDays = lookbackDays
		}
	}
	if !realtime {
		for i := range cfg.Sources {
			cfg.Sources[i].PollInterval = 0 // SourceWorker has no single-pass mode; it treats a zero interval as its one-minute default, so the workers keep polling every minute
		}
	}
}

func buildExtractionProvider() (extraction.Provider, error) {
	switch extractionMode {
	case "local":
		return extraction.NewLocalProvider(extraction.LocalProviderConfig{BaseURL: ollamaURL, Model: ollamaModel})
	case "remote", "":
		cfg := extraction.DefaultConfig()
		if extractionModel != "" {
			cfg.Model = extractionModel
		}
		if extractionKey != "" {
			return extraction.NewAnthropicProviderWithKey(extractionKey, cfg)
		}
		return extraction.NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown --extraction mode %q (want remote or local)", extractionMode)
	}
}

func loadWatcherRules() (*watchers.RuleSet, error) {
	if watcherRulesPath == "" {
		return watchers.DefaultRuleSet(), nil
	}
	return watchers.LoadRules(watcherRulesPath)
}

// buildCursorStore seeds a source's initial cursor at now-LookbackDays when
// no prior cursor is on disk, so the first run backfills the configured
// historical window instead of starting empty.
func buildCursorStore(sources []models.Source) (source.CursorStore, error) {
	inner, err := source.NewFileCursorStore(cursorDir)
	if err != nil {
		return nil, err
	}
	lookback := make(map[string]int, len(sources))
	for _, s := range sources {
		lookback[s.Code] = s.LookbackDays
	}
	return &seededCursorStore{inner: inner, lookbackDays: lookback}, nil
}

type seededCursorStore struct {
	inner        source.CursorStore
	lookbackDays map[string]int
}

func (s *seededCursorStore) Load(ctx context.Context, sourceCode string) (models.Cursor, bool, error) {
	cursor, found, err := s.inner.Load(ctx, sourceCode)
	if err != nil || found {
		return cursor, found, err
	}
	days := s.lookbackDays[sourceCode]
	if days <= 0 {
		return source.NewEmptyCursor(sourceCode), false, nil
	}
	seeded := source.NewEmptyCursor(sourceCode)
	seeded.LastTimestamp = time.Now().AddDate(0, 0, -days)
	return seeded, false, nil
}

func (s *seededCursorStore) Save(ctx context.Context, cursor models.Cursor) error {
	return s.inner.Save(ctx, cursor)
}

// adapterFor resolves a configured Source to its concrete Adapter. Only
// the web kind has a concrete implementation in this module (spec.md §1);
// a stream-kind source is an external collaborator this command cannot
// construct on its own.
func adapterFor(src models.Source) (source.Adapter, error) {
	switch src.Kind {
	case models.SourceKindWeb:
		endpoint, ok := sourceEndpoints[src.Code]
		if !ok || endpoint == "" {
			return nil, fmt.Errorf("no --source-endpoint configured for web source %q", src.Code)
		}
		return source.NewWebAdapter(source.WebAdapterConfig{Endpoint: endpoint})
	default:
		return nil, fmt.Errorf("no concrete adapter available for source %q (kind %q is an external collaborator)", src.Code, src.Kind)
	}
}

// reloadCallback builds a config.ReloadCallback that copies the reloaded
// file's sections onto live in place and re-applies the CLI overrides on top
// so a reload never silently discards them. Only the anchor set is read off
// live at call time (SourceWorker.cfgFull, cfg.IsAnchor), so it takes effect
// immediately; the scorer, linker, study, CMNLN engine, reconciler, pipeline
// and source workers hold copies of their sections taken at startup, and
// reloaded values for those sections have no effect until a restart.
func reloadCallback(live *config.Config, logger *logging.Logger) config.ReloadCallback {
	return func(reloaded *config.Config) error {
		if err := reloaded.Validate(); err != nil {
			return err
		}
		live.Sources = reloaded.Sources
		live.AnchorTypes = reloaded.AnchorTypes
		live.CMNLN = reloaded.CMNLN
		live.Importance = reloaded.Importance
		live.Linker = reloaded.Linker
		live.EventStudy = reloaded.EventStudy
		live.Reconciler = reloaded.Reconciler
		live.Orchestrator = reloaded.Orchestrator
		applyCLIOverrides(live)
		logger.Info("pipeline config reloaded")
		return nil
	}
}

// configComponent adapts config.HotReloader (whose Stop takes no arguments)
// to lifecycle.Component.
type configComponent struct {
	reloader *config.HotReloader
}

func (c *configComponent) Name() string { return "config.hot_reloader" }

func (c *configComponent) Start(ctx context.Context) error {
	return c.reloader.Start(ctx)
}

func (c *configComponent) Stop(ctx context.Context) error {
	c.reloader.Stop()
	return nil
}

// graphComponent adapts graphwriter.Client's Connect/Close/InitializeSchema
// to lifecycle.Component so the composition root can start/stop it through
// the same Manager as everything else.
type graphComponent struct {
	client graphwriter.Client
}

func (g *graphComponent) Name() string { return "graphwriter.client" }

func (g *graphComponent) Start(ctx context.Context) error {
	if err := g.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect to graph store: %w", err)
	}
	return g.client.InitializeSchema(ctx)
}

func (g *graphComponent) Stop(ctx context.Context) error {
	return g.client.Close()
}
