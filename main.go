// arcbot: chat bot command layer with runtime diagnostics.
// Author: vesaa | License: MIT | https://github.com/vesaa/arcbot
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/vesaa/arcbot/internal/commands"
	"github.com/vesaa/arcbot/internal/config"
	"github.com/vesaa/arcbot/internal/diagnostics"
	"github.com/vesaa/arcbot/internal/gateway"
	"github.com/vesaa/arcbot/internal/latency"
	"github.com/vesaa/arcbot/internal/prefix"
	"github.com/vesaa/arcbot/internal/resources"
	"github.com/vesaa/arcbot/internal/rest"
	"github.com/vesaa/arcbot/internal/server"
	"github.com/vesaa/arcbot/internal/sourcemetrics"
	"github.com/vesaa/arcbot/internal/store"
)

const asciiLogo = `
  █████╗ ██████╗  ██████╗██████╗  ██████╗ ████████╗
 ██╔══██╗██╔══██╗██╔════╝██╔══██╗██╔═══██╗╚══██╔══╝
 ███████║██████╔╝██║     ██████╔╝██║   ██║   ██║
 ██╔══██║██╔══██╗██║     ██╔══██╗██║   ██║   ██║
 ██║  ██║██║  ██║╚██████╗██████╔╝╚██████╔╝   ██║
 ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═════╝  ╚═════╝    ╚═╝
`

var (
	verbose    bool
	configPath string
	logger     *zap.Logger
)

func printBanner(mode string, cfg *config.Config) {
	v := "unknown"
	if mv, err := diagnostics.ReadVersion(cfg.ManifestPath); err == nil {
		v = "v" + mv
	}
	fmt.Print(asciiLogo, "\n")
	fmt.Printf("  ► arcbot %s  |  Author: vesaa  |  Mode: %s\n\n", v, mode)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "arcbot",
		Short: "arcbot: chat bot command layer with runtime diagnostics",
		Long: `arcbot answers chat commands relayed by its gateway transport: latency
probes, a full runtime diagnostics report and per-guild prefix lookups.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./config.yaml or ~/.arcbot/config.yaml)")

	// ── serve subcommand ──────────────────────────────────────────────────────
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start arcbot (dual-port: 6677 control + 1616 data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			printBanner("SERVE", cfg)
			return runServe(cmd.Context(), cfg)
		},
	}

	// ── diag subcommand ───────────────────────────────────────────────────────
	diagCmd := &cobra.Command{
		Use:   "diag",
		Short: "Render the diagnostics report for this process to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runDiag(cmd.Context(), cfg)
		},
	}

	// ── mem subcommand (memory helper) ────────────────────────────────────────
	memCmd := &cobra.Command{
		Use:       "mem total|base <pid>",
		Short:     "Print a process's memory in KB (used as the diagnostics helper)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(resources.HelperTotal), string(resources.HelperBaseline)},
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid pid %q: %w", args[1], err)
			}
			kb, err := resources.ReadKB(cmd.Context(), resources.HelperKind(args[0]), int32(pid))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), kb)
			return err
		},
	}

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print arcbot version from the project manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			v, err := diagnostics.ReadVersion(cfg.ManifestPath)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "arcbot v%s  |  Author: vesaa\n", v)
			return err
		},
	}

	root.AddCommand(serveCmd, diagCmd, memCmd, versionCmd)
	return root
}

func newComposer(cfg *config.Config, shards latency.ShardSource, cache diagnostics.StatsSource, messenger gateway.Messenger) (*diagnostics.Composer, error) {
	return diagnostics.NewComposer(diagnostics.Options{
		Shards:    shards,
		Cache:     cache,
		Messenger: messenger,
		Sampler: resources.NewSampler(
			resources.CommandFromArgv(cfg.HelperTotalCmd),
			resources.CommandFromArgv(cfg.HelperBaselineCmd),
			cfg.HelperTimeout(), logger),
		Scanner:      sourcemetrics.NewScanner(cfg.CommandMarker, cfg.ScanWorkers, logger),
		Source:       os.DirFS(cfg.SourceRoot),
		ManifestPath: cfg.ManifestPath,
		StartedAt:    time.Now(),
		Presentation: diagnostics.Presentation{URL: cfg.ProjectURL, Description: cfg.ProjectDescription},
		Logger:       logger,
	})
}

func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := store.Open(store.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBPath,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	shards := gateway.NewShardManager()
	cache := gateway.NewCache()
	messenger := rest.NewClient(cfg.RESTBaseURL, cfg.RESTToken, cfg.RESTTimeout())
	resolver := prefix.NewResolver(db, cfg.DefaultPrefix)

	composer, err := newComposer(cfg, shards, cache, messenger)
	if err != nil {
		return err
	}
	handler := commands.NewHandler(commands.Deps{
		Shards:    shards,
		Messenger: messenger,
		Reporter:  composer,
		Prefixes:  resolver,
		Owners:    cfg.OwnerIDs,
		Logger:    logger,
	})

	srv, err := server.New(server.Options{
		JWTSecret:    cfg.JWTSecret,
		AgentToken:   cfg.AgentToken,
		AdminUser:    cfg.AdminUser,
		AdminPass:    cfg.AdminPass,
		Shards:       shards,
		Cache:        cache,
		Commands:     handler,
		Prefixes:     resolver,
		CommandRate:  cfg.CommandRateLimit,
		CommandBurst: cfg.CommandRateBurst,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)

	// ── Control-plane engine (6677) ────────────────────────────────────────
	ctrlEngine := gin.New()
	ctrlEngine.Use(gin.Recovery())
	srv.RegisterControlRoutes(ctrlEngine)

	// ── Data-plane engine (1616) ───────────────────────────────────────────
	dataEngine := gin.New()
	dataEngine.Use(gin.Recovery())
	srv.RegisterDataRoutes(dataEngine)

	ctrlAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ControlPort)
	dataAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.DataPort)

	fmt.Printf("  ✓ Control plane (JWT API)          → http://%s\n", ctrlAddr)
	fmt.Printf("  ✓ Data    plane (gateway reports)  → http://%s\n", dataAddr)
	fmt.Printf("  ✓ Commands: %v, default prefix %q\n\n", handler.Names(), cfg.DefaultPrefix)

	// Run both servers concurrently; shut down gracefully on SIGINT/SIGTERM.
	ctrlSrv := &http.Server{Addr: ctrlAddr, Handler: ctrlEngine}
	dataSrv := &http.Server{Addr: dataAddr, Handler: dataEngine}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range []*http.Server{ctrlSrv, dataSrv} {
		s := s
		g.Go(func() error {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(ctrlSrv.Shutdown(shutdownCtx), dataSrv.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

// runDiag renders a report for this process without a transport: shard 0 is
// registered but has no heartbeat, and messages go to an in-memory recorder.
func runDiag(ctx context.Context, cfg *config.Config) error {
	shards := gateway.NewShardManager()
	shards.Register(0)

	host, _ := os.Hostname()
	cache := gateway.NewCache()
	cache.Replace(gateway.CacheState{
		ShardCount:  1,
		CurrentUser: gateway.User{Name: "arcbot"},
		Owner:       gateway.User{Name: host},
	})

	rec := gateway.NewRecorder()
	composer, err := newComposer(cfg, shards, cache, rec)
	if err != nil {
		return err
	}
	if _, err := composer.Report(ctx, diagnostics.Request{}); err != nil {
		return err
	}

	for _, m := range rec.Messages(0) {
		if m.Embed == nil {
			continue
		}
		fmt.Println(m.Embed.Title)
		fmt.Println(m.Embed.Description)
		for _, f := range m.Embed.Fields {
			fmt.Printf("\n%s\n%s\n", f.Name, f.Value)
		}
	}
	return nil
}
