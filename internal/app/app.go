// Package app wires all vocalstock subsystems into a running service.
//
// The App struct owns the full lifecycle: New opens the catalog, builds the
// command pipeline and the HTTP handler, Run serves HTTP and watches the
// config file, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore, WithGuard,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/vocalstock/internal/api"
	"github.com/MrWong99/vocalstock/internal/assistant"
	"github.com/MrWong99/vocalstock/internal/catalog"
	"github.com/MrWong99/vocalstock/internal/config"
	"github.com/MrWong99/vocalstock/internal/executor"
	"github.com/MrWong99/vocalstock/internal/health"
	"github.com/MrWong99/vocalstock/internal/idempotency"
	"github.com/MrWong99/vocalstock/internal/observe"
	"github.com/MrWong99/vocalstock/internal/resilience"
	"github.com/MrWong99/vocalstock/internal/structure"
	"github.com/MrWong99/vocalstock/internal/structure/llmadapter"
	"github.com/MrWong99/vocalstock/pkg/catalog/postgres"
	"github.com/MrWong99/vocalstock/pkg/catalog/sqlite"
	"github.com/MrWong99/vocalstock/pkg/provider/llm"
	"github.com/MrWong99/vocalstock/pkg/provider/stt"
	"github.com/MrWong99/vocalstock/pkg/provider/tts"
)

// Providers holds the instantiated backends. Nil means the slot is not
// configured. LLMFallbacks line up with config.LLMFallbacks. Populated by
// main.go via the config registry.
type Providers struct {
	LLM          llm.Provider
	LLMFallbacks []llm.Provider
	STT          stt.Provider
	TTS          tts.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg        *config.Config
	providers  *Providers
	configPath string

	store     catalog.Store
	aliases   *catalog.Aliases
	resolver  *catalog.Resolver
	exec      *executor.Executor
	assistant *assistant.Assistant
	guard     idempotency.Guard
	metrics   *observe.Metrics
	level     *slog.LevelVar
	checkers  []health.Checker
	handler   http.Handler

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a catalog store instead of opening the configured backend.
func WithStore(s catalog.Store) Option {
	return func(a *App) { a.store = s }
}

// WithGuard injects an idempotency guard instead of building one from config.
func WithGuard(g idempotency.Guard) Option {
	return func(a *App) { a.guard = g }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevel hands the app the level variable behind the default logger so
// config reloads can change it.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithConfigPath enables hot reload of the config file at path in [App.Run].
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
	}
	a.level.Set(slogLevel(cfg.Server.LogLevel))

	// ── 1. Catalog ───────────────────────────────────────────────────────
	if err := a.initCatalog(ctx); err != nil {
		a.runClosers()
		return nil, fmt.Errorf("app: init catalog: %w", err)
	}

	// ── 2. Aliases + resolver ────────────────────────────────────────────
	if err := a.initAliases(); err != nil {
		a.runClosers()
		return nil, fmt.Errorf("app: init aliases: %w", err)
	}
	a.resolver = catalog.NewResolver(a.store, catalog.WithThreshold(cfg.Structuring.ResolverThreshold))

	// ── 3. Pipeline ──────────────────────────────────────────────────────
	a.initPipeline()

	// ── 4. Idempotency ───────────────────────────────────────────────────
	a.initGuard()

	// ── 5. HTTP ──────────────────────────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initCatalog opens the configured store and imports the seed file.
func (a *App) initCatalog(ctx context.Context) error {
	if a.store == nil {
		switch c := a.cfg.Catalog; c.Backend {
		case config.CatalogSQLite:
			s, err := sqlite.Open(ctx, c.Path)
			if err != nil {
				return err
			}
			a.store = s
			a.closers = append(a.closers, s.Close)
			a.checkers = append(a.checkers, health.Ping("catalog", s))
		case config.CatalogPostgres:
			s, err := postgres.NewStore(ctx, c.DSN)
			if err != nil {
				return err
			}
			a.store = s
			a.closers = append(a.closers, func() error {
				s.Close()
				return nil
			})
			a.checkers = append(a.checkers, health.Ping("catalog", s))
		default:
			a.store = catalog.NewMemStore()
		}
	}
	if len(a.checkers) == 0 {
		a.checkers = append(a.checkers, storeChecker(a.store))
	}

	if path := a.cfg.Catalog.SeedFile; path != "" {
		items, err := catalog.LoadSeedFile(path)
		if err != nil {
			return err
		}
		n, err := catalog.ImportSeed(ctx, a.store, items)
		if err != nil {
			return err
		}
		slog.Info("imported seed catalog", "path", path, "count", n)
	}
	return nil
}

// storeChecker probes a store that has no Ping by listing its items.
func storeChecker(s catalog.Store) health.Checker {
	if p, ok := s.(health.Pinger); ok {
		return health.Ping("catalog", p)
	}
	return health.Checker{Name: "catalog", Check: func(ctx context.Context) error {
		_, err := s.ListItems(ctx)
		return err
	}}
}

func (a *App) initAliases() error {
	groups := catalog.DefaultAliasGroups
	if path := a.cfg.Catalog.AliasFile; path != "" {
		g, err := catalog.LoadAliasFile(path)
		if err != nil {
			return err
		}
		groups = g
	}
	a.aliases = catalog.NewAliases(groups)
	return nil
}

// initPipeline builds structurer → executor → assistant around the providers.
func (a *App) initPipeline() {
	cfg := a.cfg
	s := cfg.Structuring

	sopts := []structure.Option{structure.WithItemNormalizer(a.aliases)}
	useLLM := s.UseLLM && a.providers.LLM != nil
	if useLLM {
		adapter := llmadapter.New(a.buildLLM(),
			llmadapter.WithTemperature(s.Temperature),
			llmadapter.WithMaxTokens(s.MaxTokens),
		)
		sopts = append(sopts, structure.WithGenerative(adapter))
	}
	structurer := structure.New(sopts...)

	eopts := []executor.Option{executor.WithActor(s.Actor)}
	if s.SuggestionsEnabled() {
		eopts = append(eopts, executor.WithSuggester(catalog.NewSuggester()))
	}
	a.exec = executor.New(a.store, &assistant.TimedResolver{Resolver: a.resolver, Metrics: a.metrics}, eopts...)

	aopts := []assistant.Option{
		assistant.WithMetrics(a.metrics),
		assistant.WithKeywords(a.store),
		assistant.WithGenerative(useLLM),
	}
	fbCfg := resilience.FallbackConfig{}
	if p := a.providers.STT; p != nil {
		name := cfg.Providers.STT.Name
		aopts = append(aopts, assistant.WithSTT(
			resilience.NewSTTFallback(&meteredSTT{Provider: p, name: name, metrics: a.metrics}, name, fbCfg)))
	}
	if p := a.providers.TTS; p != nil {
		name := cfg.Providers.TTS.Name
		aopts = append(aopts, assistant.WithTTS(
			resilience.NewTTSFallback(&meteredTTS{Provider: p, name: name, metrics: a.metrics}, name, fbCfg),
			cfg.Providers.TTS.Voice))
	}
	a.assistant = assistant.New(structurer, a.exec, aopts...)
}

// buildLLM puts the primary model and its fallbacks behind one provider.
func (a *App) buildLLM() llm.Provider {
	name := a.cfg.Providers.LLM.Name
	group := resilience.NewLLMFallback(
		&meteredLLM{Provider: a.providers.LLM, name: name, metrics: a.metrics}, name, resilience.FallbackConfig{})
	for i, p := range a.providers.LLMFallbacks {
		if p == nil || i >= len(a.cfg.LLMFallbacks) {
			continue
		}
		fbName := a.cfg.LLMFallbacks[i].Name
		group.AddFallback(fbName, &meteredLLM{Provider: p, name: fbName, metrics: a.metrics})
	}
	slog.Info("llm providers", "order", group.Names())
	return group
}

func (a *App) initGuard() {
	if a.guard != nil {
		return
	}
	ic := a.cfg.Idempotency
	switch ic.Backend {
	case config.IdempotencyRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     ic.RedisAddr,
			Password: ic.RedisPassword,
			DB:       ic.RedisDB,
		})
		g := idempotency.NewRedis(client, ic.TTL, idempotency.WithKeyPrefix(ic.KeyPrefix))
		a.guard = g
		a.closers = append(a.closers, g.Close)
		a.checkers = append(a.checkers, health.Checker{Name: "redis", Check: g.Ping, Optional: true})
	case config.IdempotencyNone:
		a.guard = idempotency.Nop{}
	default:
		a.guard = idempotency.NewMemory(ic.TTL)
	}
}

func (a *App) initHTTP() {
	mux := http.NewServeMux()
	api.New(a.store, a.assistant, a.exec,
		api.WithGuard(a.guard),
		api.WithMetrics(a.metrics),
	).Register(mux)
	health.New(a.checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = observe.Middleware(a.metrics)(mux)
	if t := a.cfg.Server.RequestTimeout; t > 0 {
		h = http.TimeoutHandler(h, t, `{"error":"`+api.ErrorMessage+`"}`)
	}
	a.handler = h
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Assistant returns the command pipeline.
func (a *App) Assistant() *assistant.Assistant { return a.assistant }

// Store returns the catalog store.
func (a *App) Store() catalog.Store { return a.store }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on the configured address and, when a config path was
// given, applies hot-reloadable config changes. It blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", ln.Addr().String())
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.applyConfig)
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			if path := a.cfg.Catalog.AliasFile; path != "" {
				if err := w.WatchFile("aliases", path, a.reloadAliases); err != nil {
					slog.Warn("alias hot reload disabled", "err", err)
				}
			}
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	return g.Wait()
}

// applyConfig is the watcher callback. Only hot-safe changes are applied.
func (a *App) applyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged {
		a.level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.ThresholdChanged {
		a.resolver.SetThreshold(d.NewThreshold)
		slog.Info("resolver threshold changed", "threshold", d.NewThreshold)
	}
	if d.AliasFileChanged {
		if d.NewAliasFile == "" {
			a.aliases.Replace(catalog.DefaultAliasGroups)
			slog.Info("alias table reset to built-in defaults")
		} else {
			a.reloadAliases(d.NewAliasFile)
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "sections", d.RestartRequired)
	}
}

// reloadAliases swaps in the alias table at path, keeping the current table
// when the file is invalid.
func (a *App) reloadAliases(path string) {
	groups, err := catalog.LoadAliasFile(path)
	if err != nil {
		slog.Warn("keeping previous alias table", "path", path, "err", err)
		return
	}
	a.aliases.Replace(groups)
	slog.Info("alias table reloaded", "path", path, "groups", len(groups))
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown releases the catalog and guard connections. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// runClosers releases whatever New had opened before failing.
func (a *App) runClosers() {
	for _, c := range a.closers {
		_ = c()
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
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
