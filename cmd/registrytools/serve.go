package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/auth"
	"github.com/maric-labs/registrytools/internal/config"
	"github.com/maric-labs/registrytools/internal/dispatch"
	"github.com/maric-labs/registrytools/internal/handlers"
	"github.com/maric-labs/registrytools/internal/logging"
	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registry"
	"github.com/maric-labs/registrytools/internal/search"
	"github.com/maric-labs/registrytools/internal/seed"
	"github.com/maric-labs/registrytools/internal/shutdown"
	"github.com/maric-labs/registrytools/internal/storage"
	"github.com/maric-labs/registrytools/internal/storage/jsonstore"
	"github.com/maric-labs/registrytools/internal/storage/sqlstore"
	"github.com/maric-labs/registrytools/internal/transport"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the registry server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if cfg.Transport == "stdio" && cfg.EnableAuth {
		sugar.Warnw("auth is enabled but stdio transport has no credential channel; requests will be denied")
	}

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return fmt.Errorf("create data path %s: %w", cfg.DataPath, err)
	}

	store, err := buildStore(cfg, sugar)
	if err != nil {
		return err
	}
	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	reg := registry.New(cfg.Thresholds(), sugar)

	defaultMethod, _ := model.ParseSearchMethod(cfg.SearchMethod)

	regex := search.NewRegex(false)
	if err := reg.RegisterSearcher(model.SearchMethodRegex, regex); err != nil {
		return err
	}

	bm25, err := search.NewBM25(search.DefaultBM25Params(), sugar)
	if err != nil {
		return fmt.Errorf("build bm25 searcher: %w", err)
	}
	if err := reg.RegisterSearcher(model.SearchMethodBM25, bm25); err != nil {
		return err
	}

	if err := seedIfEmpty(ctx, store, reg, sugar); err != nil {
		return err
	}

	if err := reg.RebuildIndexes(); err != nil {
		return fmt.Errorf("build initial indexes: %w", err)
	}

	// Registered after the initial rebuild so the semantic searcher is
	// constructed and indexed on its first search, not at startup.
	lazySemantic := search.NewLazySemantic(func() *search.SemanticAlgorithm {
		return search.NewSemantic(cfg.Device, sugar)
	})
	if err := reg.RegisterSearcher(model.SearchMethodSemantic, lazySemantic); err != nil {
		return err
	}

	var checker auth.Checker
	var authStore *auth.Store
	var credentialParser transport.CredentialParser
	if cfg.EnableAuth {
		authStore, err = auth.Open(cfg.AuthStorePath())
		if err != nil {
			return err
		}
		checker = &auth.StoreChecker{Store: authStore}
		credentialParser = func(ctx context.Context, r *http.Request) context.Context {
			if cred, ok := auth.ParseHTTPCredential(r); ok {
				return auth.WithCredential(ctx, cred)
			}
			return ctx
		}
	}

	h := &handlers.Handlers{Registry: reg, Checker: checker, DefaultMethod: defaultMethod}
	disp := &dispatch.Dispatcher{Handlers: h, Store: store}

	coordinator := shutdown.New(sugar)
	if closer, ok := store.(interface{ Close() error }); ok {
		coordinator.Register("storage", func(context.Context) error { return closer.Close() })
	}
	if authStore != nil {
		coordinator.Register("auth-store", func(context.Context) error { return authStore.Close() })
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- runTransport(runCtx, cfg, sugar, disp.Dispatch, credentialParser)
	}()

	select {
	case <-runCtx.Done():
		sugar.Infow("shutting down")
	case err := <-serveErr:
		if err != nil {
			sugar.Errorw("transport exited with error", "error", err)
		}
	}

	return coordinator.Shutdown(context.Background(), 10*time.Second)
}

func runTransport(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger, handler transport.Handler, credentialParser transport.CredentialParser) error {
	switch cfg.Transport {
	case "http":
		httpCfg := transport.DefaultHTTPConfig()
		httpCfg.Host = cfg.Host
		httpCfg.Port = cfg.Port
		httpCfg.Path = cfg.Path
		httpCfg.CredentialParser = credentialParser
		t := transport.NewHTTPTransport(httpCfg, logger)
		return t.Serve(ctx, handler)
	default:
		t := transport.NewStdioTransport(os.Stdin, os.Stdout, logger)
		return t.Serve(ctx, handler)
	}
}

func buildStore(cfg config.Config, logger *zap.SugaredLogger) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "sql":
		return sqlstore.New(cfg.ToolStorePath(), cfg.Thresholds())
	default:
		return jsonstore.New(cfg.ToolStorePath(), cfg.Thresholds(), logger)
	}
}

// seedIfEmpty implements spec §6's default seeding: if the store has zero
// tools at startup, install the built-in seed list and persist it.
func seedIfEmpty(ctx context.Context, store storage.Store, reg *registry.Registry, logger *zap.SugaredLogger) error {
	empty, err := store.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check store emptiness: %w", err)
	}

	if empty {
		tools := seed.Tools()
		logger.Infow("seeding default tools", "count", len(tools))
		if err := store.SaveMany(ctx, tools); err != nil {
			return fmt.Errorf("persist seed tools: %w", err)
		}
		reg.RegisterMany(tools)
		return nil
	}

	all, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load persisted tools: %w", err)
	}
	reg.RegisterMany(all)
	return nil
}
