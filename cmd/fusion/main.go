package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/convei-labs/fusion/internal/analytics"
	"github.com/convei-labs/fusion/internal/collector"
	"github.com/convei-labs/fusion/internal/config"
	"github.com/convei-labs/fusion/internal/db"
	"github.com/convei-labs/fusion/internal/fanout"
	"github.com/convei-labs/fusion/internal/logging"
	"github.com/convei-labs/fusion/internal/server"
	"github.com/convei-labs/fusion/internal/snapshot"
	"github.com/convei-labs/fusion/internal/state"
	"github.com/convei-labs/fusion/internal/store"
	"github.com/convei-labs/fusion/internal/watcher"
)

var (
	version    = "dev"
	commit     = "none"
	buildDate  = "unknown"
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fusion",
		Short: "Behavioral metrics fusion pipeline",
		Long: `Fusion collects behavioral metrics from an external sensing
process, stores them in a local metrics database, and serves windowed
analytics and realtime state to conversational-agent consumers.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			} else {
				fmt.Printf("fusion %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize fusion config and database",
		Run: func(cmd *cobra.Command, args []string) {
			type Result struct {
				OK        bool   `json:"ok"`
				Message   string `json:"message,omitempty"`
				ConfigDir string `json:"config_dir,omitempty"`
				DataDir   string `json:"data_dir,omitempty"`
				DBPath    string `json:"db_path,omitempty"`
			}

			result := Result{OK: true}

			configDir, err := config.GetConfigDir()
			if err != nil {
				fail("Failed to get config directory: %v", err)
			}
			result.ConfigDir = configDir

			dataDir, err := config.GetDataDir()
			if err != nil {
				fail("Failed to get data directory: %v", err)
			}
			result.DataDir = dataDir

			if err := os.MkdirAll(configDir, 0755); err != nil {
				fail("Failed to create config directory: %v", err)
			}
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				fail("Failed to create data directory: %v", err)
			}

			// Write the default config if none exists yet.
			cfg, err := config.Load()
			if err != nil {
				fail("Failed to load config: %v", err)
			}
			if err := cfg.Save(); err != nil {
				fail("Failed to save config: %v", err)
			}

			if err := db.Init(); err != nil {
				fail("Failed to initialize database: %v", err)
			}

			dbPath, err := db.GetPath()
			if err != nil {
				fail("Failed to get database path: %v", err)
			}
			result.DBPath = dbPath
			result.Message = "Fusion initialized successfully"

			if jsonOutput {
				printJSON(result)
			} else {
				fmt.Printf("✓ Config directory: %s\n", result.ConfigDir)
				fmt.Printf("✓ Data directory: %s\n", result.DataDir)
				fmt.Printf("✓ Database: %s\n", result.DBPath)
				fmt.Println("\nFusion initialized successfully!")
			}
		},
	}
}

func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run the metrics collector only",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, stop := signalContext()
			defer stop()

			col := collector.New(app.cfg.Sensing, app.store, app.cache, app.log)
			err = col.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the query API and realtime fan-out only",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, stop := signalContext()
			defer stop()
			return runGroup(ctx, app, false)
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run collector, query API, and realtime fan-out",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, stop := signalContext()
			defer stop()
			return runGroup(ctx, app, true)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show collector status",
		Run: func(cmd *cobra.Command, args []string) {
			type Result struct {
				OK        bool              `json:"ok"`
				Message   string            `json:"message,omitempty"`
				Collector map[string]string `json:"collector,omitempty"`
			}

			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			collectorState := map[string]string{}
			for _, key := range []string{"status", "mode", "last_heartbeat", "restart_count", "drop_count"} {
				v, ok, err := state.Get(database, "collector", key)
				if err != nil {
					fail("Failed to read state: %v", err)
				}
				if ok {
					collectorState[key] = v
				}
			}

			result := Result{OK: true, Collector: collectorState}
			if len(collectorState) == 0 {
				result.Message = "Collector has never run"
			}

			if jsonOutput {
				printJSON(result)
			} else {
				if len(collectorState) == 0 {
					fmt.Println("Collector has never run")
					return
				}
				for _, key := range []string{"status", "mode", "last_heartbeat", "restart_count", "drop_count"} {
					if v, ok := collectorState[key]; ok {
						fmt.Printf("%-15s %s\n", key+":", v)
					}
				}
			}
		},
	}
}

// app holds the shared wiring for the long-running commands.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
	cache *snapshot.Cache
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	if err := db.Init(); err != nil {
		// A store that cannot be opened is fatal: the pipeline must not
		// run half-initialized.
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	database, err := db.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: store.New(database, log),
		cache: snapshot.NewCache(),
	}, nil
}

func (a *app) close() {
	_ = a.store.DB().Close()
	_ = a.log.Sync()
}

func runGroup(ctx context.Context, a *app, withCollector bool) error {
	states := fanout.NewBroadcaster(a.log)
	frames := fanout.NewBroadcaster(a.log)
	engine := analytics.NewEngine(a.store, a.log)
	srv := server.New(a.store, engine, states, frames, a.log)
	loop := fanout.NewLoop(a.cache, states, frames, a.cfg.Fanout.StateHz, a.cfg.Fanout.FrameHz, a.log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx, a.cfg.Server.Addr) })
	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error { return watcher.WatchDB(ctx, a.log) })
	if withCollector {
		col := collector.New(a.cfg.Sensing, a.store, a.cache, a.log)
		g.Go(func() error { return col.Run(ctx) })
	}

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// fail prints a failure in the requested format and exits.
func fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		printJSON(map[string]any{"ok": false, "message": msg})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
