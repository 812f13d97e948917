package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prms/portal/internal/config"
	"github.com/prms/portal/internal/platform/credential"
	"github.com/prms/portal/internal/platform/db"
	"github.com/prms/portal/migrations"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "prms-portal",
		Short:        "PRMS patient record portal",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg, newLogger(cfg))
		},
	}
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

// credentialBackend is the configured Store plus what the server needs to
// report on and release it.
type credentialBackend struct {
	store  credential.Store
	checks map[string]db.Checker
	pool   *pgxpool.Pool
	close  func()
}

func openCredentialStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*credentialBackend, error) {
	switch cfg.CredentialStore {
	case config.StorePostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		n, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("applied", n).Msg("connected to database")
		return &credentialBackend{
			store:  credential.NewPostgresStore(pool),
			checks: map[string]db.Checker{"database": db.CheckerFunc(pool.Ping)},
			pool:   pool,
			close:  pool.Close,
		}, nil

	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		store := credential.NewRedisStore(client, cfg.CredentialTTL)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("connected to redis")
		return &credentialBackend{
			store:  store,
			checks: map[string]db.Checker{"redis": db.CheckerFunc(store.Ping)},
			close:  func() { _ = client.Close() },
		}, nil

	default:
		logger.Warn().Msg("credentials are kept in memory; a restart signs every user out")
		return &credentialBackend{
			store:  credential.NewMemoryStore(),
			checks: map[string]db.Checker{},
			close:  func() {},
		}, nil
	}
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openCredentialStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("store", cfg.CredentialStore).Msg("failed to open credential store")
		return err
	}
	defer backend.close()

	srv, err := newServer(cfg, logger, backend)
	if err != nil {
		return err
	}
	go srv.sessions.Run(ctx, sweepInterval)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("api", cfg.APIBaseURL).Bool("tls", cfg.TLSEnabled).Msg("starting portal")
		var err error
		if cfg.TLSEnabled {
			err = srv.echo.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.echo.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error().Err(err).Msg("server error")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down portal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
		return err
	}
	logger.Info().Msg("portal stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the credential store schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd, statuses)
			return nil
		},
	})
	return cmd
}

func printStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain persisted portal sessions",
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete credentials not refreshed within --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.CredentialStore != config.StorePostgres {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to prune for the %s credential store.\n", cfg.CredentialStore)
				return nil
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := pruneCredentials(ctx, credential.NewPostgresStore(pool), olderThan, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d credential(s).\n", n)
			return nil
		},
	}
	prune.Flags().Duration("older-than", 30*24*time.Hour, "Age after which an untouched credential is deleted")
	cmd.AddCommand(prune)
	return cmd
}

func pruneCredentials(ctx context.Context, p credential.Pruner, olderThan time.Duration, now time.Time) (int64, error) {
	n, err := p.Prune(ctx, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune credentials: %w", err)
	}
	return n, nil
}
