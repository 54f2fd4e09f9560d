package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/tasktrail/internal/archiver"
	"github.com/mtlprog/tasktrail/internal/auth"
	"github.com/mtlprog/tasktrail/internal/config"
	"github.com/mtlprog/tasktrail/internal/database"
	"github.com/mtlprog/tasktrail/internal/domain"
	"github.com/mtlprog/tasktrail/internal/events"
	"github.com/mtlprog/tasktrail/internal/handler"
	"github.com/mtlprog/tasktrail/internal/idgen"
	"github.com/mtlprog/tasktrail/internal/logger"
	"github.com/mtlprog/tasktrail/internal/notify"
	"github.com/mtlprog/tasktrail/internal/repository"
	"github.com/mtlprog/tasktrail/internal/repository/memory"
	"github.com/mtlprog/tasktrail/internal/service"
)

func main() {
	// Flags read their EnvVars while parsing, so .env has to be loaded first.
	_ = godotenv.Load(".env")

	app := &cli.App{
		Name:  "tasktrail",
		Usage: "Personal task tracker with an asynchronous archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   config.DefaultLogFormat,
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL URL of the active store; empty keeps active tasks in memory",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "archive-dsn",
				Value:   config.DefaultArchiveDSN,
				Usage:   "SQLite DSN of the archive store",
				EnvVars: []string{"ARCHIVE_DSN"},
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Usage:   "HMAC secret for bearer tokens",
				EnvVars: []string{"JWT_SECRET"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")), c.String("log-format"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server and the archival worker",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
					&cli.StringFlag{
						Name:    "redis-url",
						Usage:   "Redis URL for sharing notifications between instances",
						EnvVars: []string{"REDIS_URL"},
					},
					&cli.BoolFlag{
						Name:    "redrive-on-start",
						Value:   true,
						Usage:   "Re-queue closed tasks left in the active store",
						EnvVars: []string{"REDRIVE_ON_START"},
					},
				},
				Action: runServe,
			},
			{
				Name:   "redrive",
				Usage:  "Archive every closed task left in the active store and exit",
				Action: runRedrive,
			},
			{
				Name:  "token",
				Usage: "Print a signed bearer token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user-id",
						Aliases:  []string{"u"},
						Usage:    "Owner id carried by the token",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Value: config.DefaultTokenTTL,
						Usage: "Token lifetime",
					},
				},
				Action: runToken,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// stores holds the opened active and archive stores.
type stores struct {
	active  domain.ActiveStore
	archive domain.ArchiveStore
	health  map[string]handler.Pinger
	close   func()
}

func openStores(ctx context.Context, c *cli.Context) (*stores, error) {
	archiveDB, err := database.OpenArchive(c.String("archive-dsn"), &repository.ArchivedTask{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	s := &stores{
		archive: repository.NewArchiveTaskRepository(archiveDB.DB()),
		health:  map[string]handler.Pinger{"archive": archiveDB},
		close:   archiveDB.Close,
	}

	databaseURL := c.String("database-url")
	if databaseURL == "" {
		slog.Warn("no database url configured, active tasks are kept in memory")
		s.active = memory.NewActiveStore()
		return s, nil
	}

	db, err := database.New(ctx, databaseURL)
	if err != nil {
		archiveDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		db.Close()
		archiveDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s.active = repository.NewActiveTaskRepository(db.Pool())
	s.health["active"] = db
	s.close = func() {
		db.Close()
		archiveDB.Close()
	}
	return s, nil
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	tokens, err := auth.NewManager(c.String("jwt-secret"))
	if err != nil {
		return err
	}

	ids, err := idgen.NewNanoID()
	if err != nil {
		return fmt.Errorf("failed to create id generator: %w", err)
	}

	st, err := openStores(ctx, c)
	if err != nil {
		return err
	}
	defer st.close()

	clock := domain.SystemClock{}
	channel := events.NewChannel()
	hub := notify.NewHub()

	g, gctx := errgroup.WithContext(ctx)

	// With Redis every instance publishes there and the relay feeds the local hub.
	var sink domain.NotificationSink = hub
	if redisURL := c.String("redis-url"); redisURL != "" {
		client, err := notify.NewRedisClient(ctx, redisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		relay := notify.NewRedisRelay(client, config.NotificationChannel)
		sink = relay
		g.Go(func() error { return relay.Run(gctx, hub) })
	}

	worker := archiver.NewWorker(channel, st.active, st.archive, sink,
		archiver.WithLogger(logger.Component("archiver")),
	)

	if c.Bool("redrive-on-start") {
		if _, err := archiver.Redrive(ctx, st.active, channel, clock); err != nil {
			return fmt.Errorf("failed to re-drive pending archivals: %w", err)
		}
	}

	h := handler.New(handler.Deps{
		Tasks:    service.NewTaskService(st.active, channel, sink, ids, clock),
		Archive:  service.NewArchiveService(st.active, st.archive, sink, clock),
		Verifier: tokens,
		Sockets:  hub,
		Health:   st.health,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.DefaultShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		channel.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if pending := channel.Len(); pending > 0 {
		slog.Warn("lifecycle events left unprocessed, run redrive to archive them", "count", pending)
	}

	slog.Info("server stopped")
	return nil
}

func runRedrive(c *cli.Context) error {
	ctx := c.Context

	if c.String("database-url") == "" {
		slog.Warn("in-memory active store has nothing to re-drive")
		return nil
	}

	st, err := openStores(ctx, c)
	if err != nil {
		return err
	}
	defer st.close()

	// No event source: MigrateAll works the store directly.
	worker := archiver.NewWorker(nil, st.active, st.archive, noopSink{},
		archiver.WithLogger(logger.Component("archiver")),
	)

	count, err := worker.MigrateAll(ctx)
	if err != nil {
		return err
	}

	slog.Info("re-drive complete", "archived", count)
	return nil
}

func runToken(c *cli.Context) error {
	tokens, err := auth.NewManager(c.String("jwt-secret"))
	if err != nil {
		return err
	}

	token, err := tokens.Issue(c.String("user-id"), c.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// noopSink drops notifications; the redrive command has no connected observers.
type noopSink struct{}

func (noopSink) NotifyTaskClosed(context.Context, string, string)   {}
func (noopSink) NotifyTaskRestored(context.Context, string, string) {}
func (noopSink) NotifyTaskUpdated(context.Context, string, string)  {}
