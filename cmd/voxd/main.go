// Command voxd is the voice dictation daemon: it turns an Opus packet feed
// from the capture daemon into corrected text, driven by SIGUSR1 (toggle)
// and SIGUSR2 (recover) triggers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voxd/voxd/internal/bridge/memory"
	"github.com/voxd/voxd/internal/config"
	"github.com/voxd/voxd/internal/correction"
	"github.com/voxd/voxd/internal/dictation"
	"github.com/voxd/voxd/internal/health"
	"github.com/voxd/voxd/internal/history"
	"github.com/voxd/voxd/internal/history/postgres"
	"github.com/voxd/voxd/internal/ingest"
	"github.com/voxd/voxd/internal/observe"
	"github.com/voxd/voxd/internal/resilience"
	"github.com/voxd/voxd/pkg/audio/opus"
	"github.com/voxd/voxd/pkg/provider/asr"
	asrdeepgram "github.com/voxd/voxd/pkg/provider/asr/deepgram"
	asroai "github.com/voxd/voxd/pkg/provider/asr/openai"
	"github.com/voxd/voxd/pkg/provider/asr/whisper"
	"github.com/voxd/voxd/pkg/provider/correct"
	"github.com/voxd/voxd/pkg/provider/correct/anyllm"
	correctoai "github.com/voxd/voxd/pkg/provider/correct/openai"
	"github.com/voxd/voxd/pkg/provider/embeddings"
	embedoai "github.com/voxd/voxd/pkg/provider/embeddings/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxd: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so config hot-reload can adjust it.
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("voxd starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxd"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	if providers.ASR == nil {
		slog.Error("no usable asr provider configured", "name", cfg.Providers.ASR.Name)
		return 1
	}

	// ── History store ─────────────────────────────────────────────────────────
	store, err := buildHistoryStore(ctx, cfg, providers.Embeddings)
	if err != nil {
		slog.Error("failed to open history store", "err", err)
		return 1
	}
	defer store.Close()

	userTerms := mergeUserTerms(ctx, store, cfg.History.UserTerms)

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// ── Dictation pipeline ────────────────────────────────────────────────────
	capture := ingest.NewHandler(0)
	source := opus.New(capture.Packets())
	br := memory.New()

	orchOpts := []dictation.Option{
		dictation.WithHistory(store),
		dictation.WithMetrics(metrics),
	}
	if providers.Correction != nil {
		pipeline := correction.New(providers.Correction,
			correction.WithMetrics(metrics),
			correction.WithContextBudget(cfg.Dictation.ContextCharBudget),
		)
		orchOpts = append(orchOpts, dictation.WithCorrection(pipeline))
	}

	orch := dictation.New(dictationConfig(cfg), providers.ASR, source, br, orchOpts...)
	seedContext(ctx, orch, store, cfg.History.MaxRecent, userTerms)

	// ── HTTP server ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	healthHandler := health.New(br.Snapshot,
		health.Checker{Name: "asr", Check: func(ctx context.Context) error {
			if !providers.ASR.IsAvailable(ctx) {
				return errors.New("provider unavailable")
			}
			return nil
		}},
		health.Checker{Name: "history", Check: func(ctx context.Context) error {
			_, err := store.Recent(ctx, 1)
			return err
		}},
	)
	healthHandler.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /ingest", capture)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Config hot-reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyConfigChange(old, new, logLevel, orch)
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("daemon ready — SIGUSR1 toggles dictation, SIGUSR2 recovers")

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return orch.Run(gctx)
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	g.Go(func() error {
		return triggerLoop(gctx, orch)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// triggerLoop dispatches SIGUSR1 to Toggle and SIGUSR2 to Recover until the
// context is cancelled.
func triggerLoop(ctx context.Context, orch *dictation.Orchestrator) error {
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigs:
			switch sig {
			case syscall.SIGUSR1:
				if err := orch.Toggle(ctx); err != nil {
					slog.Debug("toggle rejected", "err", err)
				}
			case syscall.SIGUSR2:
				if err := orch.Recover(ctx); err != nil {
					slog.Warn("recover failed", "err", err)
				}
			}
		}
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with voxd. Used for startup logging.
var builtinProviders = map[string][]string{
	"asr":        {"whisper", "whisper-native", "deepgram", "openai"},
	"correction": {"openai", "ollama", "anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp"},
	"embeddings": {"openai"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── ASR ───────────────────────────────────────────────────────────────────

	reg.RegisterASR("whisper", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterASR("whisper-native", func(entry config.ProviderEntry) (asr.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterASR("deepgram", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []asrdeepgram.Option
		if entry.Model != "" {
			opts = append(opts, asrdeepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, asrdeepgram.WithLanguage(lang))
		}
		return asrdeepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterASR("openai", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []asroai.Option
		if entry.BaseURL != "" {
			opts = append(opts, asroai.WithBaseURL(entry.BaseURL))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, asroai.WithLanguage(lang))
		}
		return asroai.New(entry.APIKey, entry.Model, opts...)
	})

	// ── Correction ────────────────────────────────────────────────────────────
	// openai goes through the native client; the rest share the any-llm
	// pattern of optional APIKey + optional BaseURL.

	reg.RegisterCorrection("openai", func(entry config.ProviderEntry) (correct.Provider, error) {
		var opts []correctoai.Option
		if entry.BaseURL != "" {
			opts = append(opts, correctoai.WithBaseURL(entry.BaseURL))
		}
		return correctoai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp",
	} {
		reg.RegisterCorrection(providerName, func(entry config.ProviderEntry) (correct.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterCorrection("ollama", func(entry config.ProviderEntry) (correct.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []embedoai.Option
		if entry.BaseURL != "" {
			opts = append(opts, embedoai.WithBaseURL(entry.BaseURL))
		}
		return embedoai.New(entry.APIKey, entry.Model, opts...)
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// providerSet holds the instantiated providers for the daemon to consume.
// ASR is wrapped in a fallback group when fallbacks are configured.
type providerSet struct {
	ASR        asr.Provider
	Correction correct.Provider
	Embeddings embeddings.Provider
}

// buildProviders instantiates all providers named in cfg using the registry
// and wraps primaries in resilience fallback groups when fallback entries are
// configured.
func buildProviders(cfg *config.Config, reg *config.Registry) (*providerSet, error) {
	ps := &providerSet{}

	if name := cfg.Providers.ASR.Name; name != "" {
		p, err := reg.CreateASR(cfg.Providers.ASR)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "asr", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create asr provider %q: %w", name, err)
		} else {
			ps.ASR = p
			slog.Info("provider created", "kind", "asr", "name", name)
		}
	}

	if ps.ASR != nil && len(cfg.Providers.ASRFallbacks) > 0 {
		group := resilience.NewASRFallback(ps.ASR, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.ASRFallbacks {
			p, err := reg.CreateASR(entry)
			if err != nil {
				return nil, fmt.Errorf("create asr fallback %q: %w", entry.Name, err)
			}
			group.AddFallback(p)
			slog.Info("provider created", "kind", "asr-fallback", "name", entry.Name)
		}
		ps.ASR = group
	}

	if name := cfg.Providers.Correction.Name; name != "" {
		p, err := reg.CreateCorrection(cfg.Providers.Correction)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "correction", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create correction provider %q: %w", name, err)
		} else {
			ps.Correction = p
			slog.Info("provider created", "kind", "correction", "name", name)
		}
	}

	if ps.Correction != nil && len(cfg.Providers.CorrectionFallbacks) > 0 {
		group := resilience.NewCorrectFallback(ps.Correction, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.CorrectionFallbacks {
			p, err := reg.CreateCorrection(entry)
			if err != nil {
				return nil, fmt.Errorf("create correction fallback %q: %w", entry.Name, err)
			}
			group.AddFallback(p)
			slog.Info("provider created", "kind", "correction-fallback", "name", entry.Name)
		}
		ps.Correction = group
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "embeddings", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		} else {
			ps.Embeddings = p
			slog.Info("provider created", "kind", "embeddings", "name", name)
		}
	}

	return ps, nil
}

// ── History wiring ────────────────────────────────────────────────────────────

// buildHistoryStore opens the postgres store when a DSN is configured, else
// the in-memory store.
func buildHistoryStore(ctx context.Context, cfg *config.Config, embProvider embeddings.Provider) (history.Store, error) {
	if cfg.History.PostgresDSN == "" {
		capacity := cfg.History.MaxRecent
		if capacity <= 0 {
			capacity = 100
		}
		slog.Info("history store", "backend", "memory", "capacity", capacity)
		return history.NewMemStore(capacity), nil
	}

	dims := cfg.History.EmbeddingDimensions
	if dims <= 0 {
		dims = 1536
	}
	var opts []postgres.Option
	if embProvider != nil {
		opts = append(opts, postgres.WithEmbeddings(embProvider))
	}
	store, err := postgres.NewStore(ctx, cfg.History.PostgresDSN, dims, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("history store", "backend", "postgres", "embedding_dimensions", dims)
	return store, nil
}

// mergeUserTerms unions the configured dictionary terms with those already in
// the store, persisting the result when anything new was added.
func mergeUserTerms(ctx context.Context, store history.Store, configured []string) []string {
	stored, err := store.UserTerms(ctx)
	if err != nil {
		slog.Warn("could not load stored user terms", "err", err)
		stored = nil
	}

	merged := slices.Clone(stored)
	added := false
	for _, term := range configured {
		if term != "" && !slices.Contains(merged, term) {
			merged = append(merged, term)
			added = true
		}
	}
	if added {
		if err := store.SaveUserTerms(ctx, merged); err != nil {
			slog.Warn("could not persist user terms", "err", err)
		}
	}
	return merged
}

// seedContext primes the orchestrator's prompt context with recent history
// and the merged user dictionary.
func seedContext(ctx context.Context, orch *dictation.Orchestrator, store history.Store, maxRecent int, terms []string) {
	if maxRecent <= 0 {
		maxRecent = 10
	}
	recent, err := store.Recent(ctx, maxRecent)
	if err != nil {
		slog.Warn("could not load recent utterances", "err", err)
	}
	texts := make([]string, 0, len(recent))
	for _, u := range recent {
		texts = append(texts, u.Text)
	}
	orch.SeedContext(texts, terms)
}

// ── Dictation wiring ──────────────────────────────────────────────────────────

// dictationConfig converts the YAML millisecond fields into the
// orchestrator's duration config. Zero values stay zero so the
// orchestrator's own defaults apply.
func dictationConfig(cfg *config.Config) dictation.Config {
	d := cfg.Dictation
	return dictation.Config{
		PreferStreaming:   d.PreferStreaming,
		Language:          d.Language,
		Correction:        d.Correction.ToOptions(),
		Debounce:          msDuration(d.DebounceMs),
		IdleTimeout:       msDuration(d.IdleTimeoutMs),
		ErrorRevert:       msDuration(d.ErrorRevertMs),
		Heartbeat:         msDuration(d.HeartbeatMs),
		ContextCharBudget: d.ContextCharBudget,
		MaxRecent:         d.MaxRecent,
	}
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// applyConfigChange applies the hot-reloadable subset of a config change.
// Everything else (providers, listen address, history backend) needs a
// restart.
func applyConfigChange(old, new *config.Config, logLevel *slog.LevelVar, orch *dictation.Orchestrator) {
	d := config.Diff(old, new)
	if !d.Changed() {
		return
	}

	if d.LogLevelChanged {
		logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level updated", "level", d.NewLogLevel)
	}
	if d.CorrectionChanged {
		orch.SetCorrection(d.NewCorrection.ToOptions())
		slog.Info("correction options updated", "enabled", d.NewCorrection.Enabled)
	}
	if d.LanguageChanged {
		orch.SetLanguage(d.NewLanguage)
		slog.Info("recognition language updated", "language", d.NewLanguage)
	}
	if d.UserTermsChanged {
		orch.SetUserTerms(d.NewUserTerms)
		slog.Info("user dictionary updated", "terms", len(d.NewUserTerms))
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║           voxd — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("ASR", cfg.Providers.ASR.Name, cfg.Providers.ASR.Model)
	printProvider("Correction", cfg.Providers.Correction.Name, cfg.Providers.Correction.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	fmt.Printf("║  ASR fallbacks   : %-19d ║\n", len(cfg.Providers.ASRFallbacks))
	if cfg.History.PostgresDSN != "" {
		fmt.Printf("║  History         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  History         : %-19s ║\n", "in-memory")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
