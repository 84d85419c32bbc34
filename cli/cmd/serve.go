package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/seam-io/seam/adapter"
	redisadapter "github.com/seam-io/seam/adapter/redis"
	"github.com/seam-io/seam/adapter/webhook"
	"github.com/seam-io/seam/archive"
	"github.com/seam-io/seam/capture"
	"github.com/seam-io/seam/cli/config"
	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/metrics"
	"github.com/seam-io/seam/server"
	"github.com/seam-io/seam/session"
	"github.com/seam-io/seam/trove"
)

// ServeCommand returns the serve command: the MCP capture server on stdio.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the MCP capture server on stdio",
		Flags:  serveFlags(),
		Action: serveAction,
	}
}

func serveFlags() []cli.Flag {
	flags := ConnectionFlags()
	return append(flags,
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout for the storage API",
		},
		&cli.IntFlag{
			Name:  "max-chunk-chars",
			Usage: "Maximum segment size for direct saves",
		},
		&cli.IntFlag{
			Name:  "max-record-chars",
			Usage: "Maximum record size when re-bucketing session parts",
		},
		&cli.IntFlag{
			Name:  "min-content-chars",
			Usage: "Reject saves below this length",
		},
		&cli.DurationFlag{
			Name:  "session-ttl",
			Usage: "Evict active sessions idle for longer than this (0 disables)",
		},
		&cli.DurationFlag{
			Name:  "sweep-interval",
			Usage: "How often to sweep for idle sessions",
		},
		&cli.StringFlag{
			Name:  "writer-strategy",
			Usage: "Segment write strategy: sequential or parallel",
		},
		&cli.IntFlag{
			Name:  "parallelism",
			Usage: "Worker count for the parallel write strategy",
		},
		&cli.StringFlag{
			Name:  "adapter-type",
			Usage: "Completion event adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Webhook URL for the webhook adapter",
		},
		&cli.StringFlag{
			Name:  "adapter-addr",
			Usage: "Redis address for the redis adapter",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis channel for the redis adapter",
		},
		&cli.StringFlag{
			Name:  "archive-dir",
			Usage: "Directory for local capture archives (empty disables)",
		},
		&cli.StringFlag{
			Name:  "s3-bucket",
			Usage: "S3 bucket for archive upload (requires --archive-dir)",
		},
		&cli.StringFlag{
			Name:  "s3-prefix",
			Usage: "Key prefix for archive upload",
		},
		&cli.StringSliceFlag{
			Name:  "disable-tool",
			Usage: "Tool name to leave unregistered (repeatable)",
		},
	)
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := log.NewLogger()
	wf, cleanup, err := buildWorkflow(c, cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cleanup()

	disabled := append(c.StringSlice("disable-tool"), cfg.Server.DisabledTools...)
	if unknown := server.ValidateDisabledTools(disabled); len(unknown) > 0 {
		return cli.Exit(fmt.Sprintf("unknown tool names in disable list: %v (valid: %v)", unknown, server.AllToolNames()), 1)
	}

	logger.Info("mcp server starting", map[string]any{
		"tools_disabled": len(disabled),
	})
	if err := server.Run(wf, logger, disabled); err != nil {
		return cli.Exit(fmt.Sprintf("mcp server: %v", err), 1)
	}
	return nil
}

// loadConfig reads the config file named by --config, or returns an empty
// config when the flag is unset.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// buildWorkflow assembles the capture workflow from config and flags.
// Flags override config values. The returned cleanup closes every
// resource the workflow owns.
func buildWorkflow(c *cli.Context, cfg *config.Config, logger *log.Logger) (*capture.Workflow, func(), error) {
	troveCfg := trove.Config{
		BaseURL: strOr(c.String("trove-url"), cfg.Trove.BaseURL),
		APIKey:  strOr(c.String("api-key"), cfg.Trove.APIKey),
		Timeout: durOr(c.Duration("timeout"), cfg.Trove.Timeout.Duration),
		Headers: cfg.Trove.Headers,
	}
	client, err := trove.NewHTTPClient(troveCfg)
	if err != nil {
		return nil, nil, err
	}

	closers := []func(){func() { _ = client.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	sessions := buildSessions(c, cfg)
	if mr, ok := sessions.(*session.MemoryRepository); ok {
		closers = append(closers, mr.Close)
	}

	strategy := strOr(c.String("writer-strategy"), cfg.Writer.Strategy)
	if strategy == "" {
		strategy = "sequential"
	}
	collector := metrics.NewCollector(strategy, "trove")

	opts := []capture.Option{capture.WithMetrics(collector)}
	if strategy == "parallel" {
		parallelism := intOr(c.Int("parallelism"), cfg.Writer.Parallelism)
		if parallelism <= 0 {
			parallelism = capture.DefaultParallelism
		}
		opts = append(opts, capture.WithParallelism(parallelism))
	}

	archiver, err := buildArchiver(c, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if archiver != nil {
		opts = append(opts, capture.WithArchiver(archiver))
	}

	notifier, err := buildNotifier(c, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if notifier != nil {
		closers = append(closers, func() { _ = notifier.Close() })
		opts = append(opts, capture.WithNotifier(notifier))
	}

	wfCfg := capture.Config{
		MaxChunkChars:   intOr(c.Int("max-chunk-chars"), cfg.Chunking.MaxChunkChars),
		MaxRecordChars:  intOr(c.Int("max-record-chars"), cfg.Trove.MaxRecordChars),
		MinContentChars: intOr(c.Int("min-content-chars"), cfg.Chunking.MinContentChars),
	}
	wf := capture.New(client, sessions, logger, wfCfg, opts...)
	return wf, cleanup, nil
}

func buildSessions(c *cli.Context, cfg *config.Config) session.Repository {
	ttl := durOr(c.Duration("session-ttl"), cfg.Session.TTL.Duration)
	if ttl <= 0 {
		return session.NewMemoryRepository()
	}
	interval := durOr(c.Duration("sweep-interval"), cfg.Session.SweepInterval.Duration)
	if interval <= 0 {
		interval = time.Minute
	}
	return session.NewMemoryRepositoryTTL(ttl, interval)
}

func buildArchiver(c *cli.Context, cfg *config.Config, logger *log.Logger) (capture.Archiver, error) {
	dir := strOr(c.String("archive-dir"), cfg.Archive.Dir)
	if dir == "" {
		return nil, nil
	}
	fa, err := archive.NewFileArchiver(dir, logger)
	if err != nil {
		return nil, err
	}

	bucket := strOr(c.String("s3-bucket"), cfg.Archive.S3Bucket)
	if bucket != "" {
		prefix := strOr(c.String("s3-prefix"), cfg.Archive.S3Prefix)
		uploader, err := archive.NewS3Uploader(c.Context, bucket, prefix)
		if err != nil {
			return nil, err
		}
		fa = fa.WithUploader(uploader)
	}
	return fa, nil
}

func buildNotifier(c *cli.Context, cfg *config.Config, logger *log.Logger) (adapter.Adapter, error) {
	adapterType := strOr(c.String("adapter-type"), cfg.Adapter.Type)
	switch adapterType {
	case "":
		return nil, nil
	case "webhook":
		url := strOr(c.String("adapter-url"), cfg.Adapter.URL)
		if url == "" {
			return nil, fmt.Errorf("adapter type webhook requires --adapter-url")
		}
		retries := webhook.DefaultMaxRetries
		if cfg.Adapter.Retries != nil {
			retries = *cfg.Adapter.Retries
		}
		return webhook.New(webhook.Config{
			URL:        url,
			Headers:    cfg.Adapter.Headers,
			Timeout:    cfg.Adapter.Timeout.Duration,
			MaxRetries: retries,
		}, logger), nil
	case "redis":
		addr := strOr(c.String("adapter-addr"), cfg.Adapter.Addr)
		if addr == "" {
			return nil, fmt.Errorf("adapter type redis requires --adapter-addr")
		}
		return redisadapter.New(redisadapter.Config{
			Addr:     addr,
			Password: cfg.Adapter.Password,
			DB:       cfg.Adapter.DB,
			Channel:  strOr(c.String("adapter-channel"), cfg.Adapter.Channel),
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q", adapterType)
	}
}

func strOr(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func intOr(flag, fallback int) int {
	if flag != 0 {
		return flag
	}
	return fallback
}

func durOr(flag, fallback time.Duration) time.Duration {
	if flag != 0 {
		return flag
	}
	return fallback
}
