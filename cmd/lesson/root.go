package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/platform/cache"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/session"
	"github.com/p-n-ai/pai-learn/internal/storage"
)

// clientIDKey holds the per-install id sent as X-Client-ID.
const clientIDKey = "lp.clientId"

// app holds the dependencies shared by subcommands. It is built once per
// invocation from flags, which default to LEARN_ environment values.
type app struct {
	logger  *slog.Logger
	catalog *lesson.Catalog
	kv      storage.KV
	local   *session.LocalCache
	client  *progress.Client // nil when no API URL is configured
	closers []func()
}

func newRootCmd() *cobra.Command {
	cfg, _ := config.Load()
	a := &app{}

	root := &cobra.Command{
		Use:          "lesson",
		Short:        "Play interactive lessons in the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("api", cfg.Client.APIURL, "Progress Service base URL; empty disables remote sync (LEARN_CLIENT_API_URL)")
	flags.String("token", cfg.Client.Token, "Bearer token for the Progress Service (LEARN_CLIENT_TOKEN)")
	flags.Duration("timeout", cfg.Client.Timeout(), "Per-request timeout for the Progress Service")
	flags.String("lessons", cfg.LessonsPath, "Directory of lesson YAML files (LEARN_LESSONS_PATH)")
	flags.String("store", cfg.Local.Store, "Local state store: memory, file or redis (LEARN_LOCAL_STORE)")
	flags.String("state", cfg.Local.Path, "Local state file for the file store (LEARN_LOCAL_STORE_PATH)")
	flags.String("cache-url", cfg.Cache.URL, "Redis URL for the redis store (LEARN_CACHE_URL)")
	flags.BoolP("verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newPlayCmd(a),
		newSummaryCmd(a),
		newExportCmd(a),
		newReportCmd(a),
		newLessonsCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	logCfg := config.LogConfig{Level: "warn", Format: "text"}
	if verbose {
		logCfg.Level = "debug"
	}
	a.logger = logCfg.NewLogger(cmd.ErrOrStderr())

	lessonsPath, _ := flags.GetString("lessons")
	catalog, err := lesson.NewCatalog(lessonsPath, a.logger)
	if err != nil {
		return fmt.Errorf("load lessons: %w", err)
	}
	a.catalog = catalog

	kv, err := a.openKV(cmd)
	switch {
	case errors.Is(err, errUnknownStore):
		return err
	case err != nil:
		a.logger.Warn("local state unavailable, keeping answers in memory only", "error", err)
		kv = storage.NewMemoryKV()
	}
	a.kv = kv
	a.local = session.NewLocalCache(kv, a.logger)

	apiURL, _ := flags.GetString("api")
	if strings.TrimSpace(apiURL) != "" {
		token, _ := flags.GetString("token")
		timeout, _ := flags.GetDuration("timeout")
		a.client = progress.NewClient(apiURL,
			progress.WithToken(token),
			progress.WithClientID(a.clientID(cmd.Context())),
			progress.WithTimeout(timeout),
		)
	}
	return nil
}

var errUnknownStore = errors.New("unknown local store")

func (a *app) openKV(cmd *cobra.Command) (storage.KV, error) {
	kind, _ := cmd.Flags().GetString("store")
	switch kind {
	case config.LocalMemory:
		return storage.NewMemoryKV(), nil
	case config.LocalFile:
		path, _ := cmd.Flags().GetString("state")
		kv, err := storage.OpenFileKV(path)
		if err != nil {
			return nil, fmt.Errorf("open local state: %w", err)
		}
		return kv, nil
	case config.LocalRedis:
		url, _ := cmd.Flags().GetString("cache-url")
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		c, err := cache.New(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("open local state: %w", err)
		}
		a.closers = append(a.closers, func() { c.Close() })
		return c.KV(cache.DefaultKeyPrefix), nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownStore, kind)
	}
}

// clientID returns the persisted install id, creating one on first use.
func (a *app) clientID(ctx context.Context) string {
	if id, err := a.kv.Get(ctx, clientIDKey); err == nil && id != "" {
		return id
	}
	id := "c-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if err := a.kv.Set(ctx, clientIDKey, id); err != nil {
		a.logger.Warn("persist client id failed", "error", err)
	}
	return id
}

// progressService returns the remote service or nil when sync is disabled.
func (a *app) progressService() session.ProgressService {
	if a.client == nil {
		return nil
	}
	return a.client
}

// lesson resolves id from the local catalog, then from the service.
func (a *app) lesson(ctx context.Context, id string) (*lesson.Lesson, error) {
	l, err := a.catalog.Lookup(id)
	if err == nil {
		return l, nil
	}
	if a.client == nil {
		return nil, err
	}
	remote, rerr := a.client.Lesson(ctx, id)
	if rerr != nil {
		if errors.Is(rerr, progress.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch lesson %s: %w", id, rerr)
	}
	return remote, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}
