package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/assetmanager/core/internal/adapters/repository"
	"github.com/assetmanager/core/internal/application/services"
	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/infrastructure/config"
	"github.com/assetmanager/core/internal/infrastructure/database"
	"github.com/assetmanager/core/internal/infrastructure/logger"
	"github.com/assetmanager/core/internal/infrastructure/metrics"
	"github.com/assetmanager/core/internal/infrastructure/server"
	"github.com/assetmanager/core/internal/infrastructure/watcher"
	"github.com/assetmanager/core/internal/ports"
)

// Build information, set with -ldflags "-X ..."
var (
	Version   = "dev"
	GitCommit = "development"
	BuildDate = "unknown"
)

// NewRootCommand creates the assetserver root command with all subcommands
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "assetserver",
		Short:         "Asset Manager persistence server",
		Long:          `assetserver serves the asset manager front-end and persists its state as a single JSON document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewDataCommand())

	return rootCmd
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the persistence server",
		Long:  "Serve static files from the static root and the /api/data document endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd)
		},
	}

	cmd.Flags().Int("port", 8000, "Port to listen on")
	cmd.Flags().String("host", "0.0.0.0", "Interface to bind")
	cmd.Flags().String("static-root", ".", "Directory served as static files")
	addStorageFlags(cmd.Flags())

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print assetserver version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "assetserver %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

func addStorageFlags(flags *pflag.FlagSet) {
	flags.String("data-file", "SAVE/data.json", "Document file for the file storage driver")
	flags.String("storage-driver", config.DriverFile, "Storage driver (file, bolt, postgres, s3)")
}

func runServer(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	if info, err := os.Stat(cfg.Storage.StaticRoot); err != nil || !info.IsDir() {
		appLogger.Warnw("Static root is not a readable directory; static requests will 404",
			"static_root", cfg.Storage.StaticRoot,
		)
	}

	repo, err := repository.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer repo.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	documentService := services.NewDocumentService(repo, cfg.Storage.IndentString(), appLogger, m)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Storage.Watch && cfg.Storage.Driver == config.DriverFile {
		w, err := watcher.New(appLogger)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer w.Stop()

		if err := w.Watch(cfg.Storage.DataFile, documentChanged(ctx, documentService, appLogger)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", cfg.Storage.DataFile, err)
		}
	}

	srv, err := server.New(cfg, documentService, appLogger, m)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	appLogger.Infow("Starting asset manager server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"data_file", cfg.Storage.DataFile,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Address())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// documentChanged logs an external modification of the document file and
// warns right away when the new content would be served as {}.
func documentChanged(ctx context.Context, documentService ports.DocumentService, appLogger *logger.Logger) func(string) {
	return func(path string) {
		doc, err := documentService.Check(ctx)
		switch {
		case err == nil && documentService.SavedByServer(doc):
			appLogger.Debugw("Document file rewritten by the server", "path", path, "size_bytes", doc.Size())
		case err == nil:
			appLogger.Infow("Document file changed on disk", "path", path, "size_bytes", doc.Size())
		case errors.Is(err, entities.ErrDocumentNotFound):
			appLogger.Warnw("Document file removed", "path", path)
		case errors.Is(err, entities.ErrCorruptDocument):
			appLogger.Warnw("Document file changed on disk and is not valid JSON; clients will receive {}",
				"path", path,
				"size_bytes", doc.Size(),
			)
		default:
			appLogger.Errorw("Document file changed on disk but could not be read", "path", path, "error", err)
		}
	}
}

// NewDataCommand creates the document maintenance command with subcommands
func NewDataCommand() *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Inspect and maintain the stored document",
	}
	addStorageFlags(dataCmd.PersistentFlags())

	dataCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the document as GET /api/data would serve it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocumentService(cmd, func(ctx context.Context, svc ports.DocumentService) error {
				doc := svc.Load(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), string(doc.Bytes()))
				return nil
			})
		},
	})

	dataCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the stored document exists and is valid JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocumentService(cmd, func(ctx context.Context, svc ports.DocumentService) error {
				doc, err := svc.Check(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Document OK (%s, %d bytes)\n", svc.Driver(), doc.Size())
				return nil
			})
		},
	})

	dataCmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Validate a JSON file and store it as the document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("import file %s does not exist", args[0])
				}
				return fmt.Errorf("failed to read import file: %w", err)
			}
			return withDocumentService(cmd, func(ctx context.Context, svc ports.DocumentService) error {
				if err := svc.Save(ctx, raw); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", args[0])
				return nil
			})
		},
	})

	dataCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the stored document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocumentService(cmd, func(ctx context.Context, svc ports.DocumentService) error {
				if err := svc.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Document reset")
				return nil
			})
		},
	})

	dataCmd.AddCommand(NewMigrateCommand())

	return dataCmd
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the postgres document schema (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, database.MigrateUp)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, database.MigrateDown)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			version, dirty, err := database.MigrationVersion(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to get migration version: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", dirty)
			return nil
		},
	})

	return migrateCmd
}

func runMigration(cmd *cobra.Command, direction string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	changed, err := database.Migrate(cfg.Database, direction)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if changed {
		fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
	}
	return nil
}

// withDocumentService opens the configured storage for a one-shot CLI
// operation. Logs go to stderr so stdout carries only command output.
func withDocumentService(cmd *cobra.Command, fn func(ctx context.Context, svc ports.DocumentService) error) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Logger.Output == "stdout" {
		cfg.Logger.Output = "stderr"
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	repo, err := repository.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer repo.Close()

	svc := services.NewDocumentService(repo, cfg.Storage.IndentString(), appLogger, nil)
	return fn(cmd.Context(), svc)
}
