package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/restkit/component"
	"github.com/kbukum/restkit/config"
	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/storage"
	"github.com/kbukum/restkit/transfer"
	"github.com/kbukum/restkit/version"

	_ "github.com/kbukum/restkit/storage/local"
	_ "github.com/kbukum/restkit/storage/s3"
	_ "github.com/kbukum/restkit/storage/supabase"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type flags struct {
	configFile       string
	envFile          string
	output           string
	provider         string
	basePath         string
	bucket           string
	headers          []string
	maxTime          time.Duration
	chunkSize        int
	progressInterval time.Duration
	logLevel         string
	token            string
	showVersion      bool
}

func newFlagSet(f *flags, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("restfetch", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: restfetch [flags] URL\n\n%s", fs.FlagUsages())
	}
	fs.StringVarP(&f.configFile, "config", "c", "", "config file (default: search ./restfetch.yml, ./config.yml, ./config/)")
	fs.StringVar(&f.envFile, "env-file", "", ".env file to load before reading the environment")
	fs.StringVarP(&f.output, "output", "o", "", "object path in the storage backend (default: last URL segment)")
	fs.StringVar(&f.provider, "storage", "", "storage provider: local, s3 or supabase")
	fs.StringVar(&f.basePath, "base-path", "", "root directory for local storage")
	fs.StringVar(&f.bucket, "bucket", "", "bucket for s3 and supabase storage")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, `extra request header "Name: value" (repeatable)`)
	fs.DurationVar(&f.maxTime, "max-time", 0, "abort the whole download after this long (0 disables)")
	fs.IntVar(&f.chunkSize, "chunk-size", 0, "copy chunk size in bytes")
	fs.DurationVar(&f.progressInterval, "progress-interval", time.Second, "minimum time between progress log lines")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	fs.StringVar(&f.token, "token", "", "bearer token")
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	return fs
}

// run is main without the process exit, returning the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var f flags
	fs := newFlagSet(&f, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if f.showVersion {
		_, _ = fmt.Fprintln(stdout, "restfetch", version.GetFullVersion())
		return exitOK
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	target := fs.Arg(0)

	cfg, err := loadConfig(fs, &f)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "restfetch: %v\n", err)
		return exitUsage
	}

	log := logger.NewWithWriter(stderr, &cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)

	out, err := outputPath(target, f.output, cfg.HTTP.BaseURL != "")
	if err != nil {
		log.Error("invalid target", logger.ErrorFields("parse_url", err))
		return exitUsage
	}
	headers, err := parseHeaders(f.headers)
	if err != nil {
		log.Error("invalid header", logger.ErrorFields("parse_header", err))
		return exitUsage
	}

	if f.maxTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.maxTime)
		defer cancel()
	}
	if err := fetch(ctx, cfg, log, target, out, headers, f.progressInterval); err != nil {
		log.Error("download failed", logger.ErrorFields("download", err))
		return exitError
	}
	_, _ = fmt.Fprintln(stdout, out)
	return exitOK
}

func loadConfig(fs *pflag.FlagSet, f *flags) (*Config, error) {
	opts := []config.LoaderOption{config.WithEnvPrefix("restfetch")}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}

	var cfg Config
	if err := config.LoadConfig("restfetch", &cfg, opts...); err != nil {
		return nil, err
	}

	if fs.Changed("storage") {
		cfg.Storage.Provider = f.provider
	}
	if fs.Changed("base-path") {
		cfg.Storage.BasePath = f.basePath
	}
	if fs.Changed("bucket") {
		cfg.Storage.Bucket = f.bucket
	}
	if fs.Changed("chunk-size") {
		cfg.HTTP.ChunkSize = f.chunkSize
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fs.Changed("token") {
		cfg.Token = f.token
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func fetch(ctx context.Context, cfg *Config, log *logger.Logger, target, out string, headers map[string]string, every time.Duration) error {
	store, err := storage.New(cfg.Storage, log.WithComponent("storage"))
	if err != nil {
		return err
	}

	opts := []httpclient.Option{httpclient.WithLogger(log.WithComponent("httpclient"))}
	if cfg.Telemetry.Enabled {
		metrics, shutdown, err := startTelemetry(ctx, cfg)
		if err != nil {
			return err
		}
		defer shutdown()
		opts = append(opts, httpclient.WithMetrics(metrics))
	}

	client := httpclient.NewComponent(cfg.HTTP, opts...)
	reg := component.NewRegistry(log.WithComponent("component"))
	if err := reg.Register(client); err != nil {
		return err
	}
	if err := reg.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		if err := reg.StopAll(context.WithoutCancel(ctx)); err != nil {
			log.Warn("shutdown", logger.ErrorFields("stop", err))
		}
	}()

	pl := &progressLogger{log: log.WithFields(logger.Fields("path", out)), every: every}
	p, err := client.Adapter().DownloadTo(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    target,
		Headers: headers,
	}, store, out, httpclient.DownloadOptions{OnProgress: pl.observe})
	if err != nil {
		if ae, ok := apperrors.AsAppError(err); ok && ae.Retryable {
			log.Info("download can be retried", logger.TransferFields(p.TransferredBytes, p.TotalBytes))
		}
		return err
	}
	return nil
}

func startTelemetry(ctx context.Context, cfg *Config) (*observability.Metrics, func(), error) {
	mc := observability.DefaultMeterConfig(cfg.Name)
	mc.ServiceVersion = version.Version
	mc.Environment = cfg.Environment
	mc.Insecure = cfg.Telemetry.Insecure
	if cfg.Telemetry.Endpoint != "" {
		mc.Endpoint = cfg.Telemetry.Endpoint
	}
	mp, err := observability.InitMeter(ctx, &mc)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = mp.Shutdown(sctx)
	}
	metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
	if err != nil {
		shutdown()
		return nil, nil, err
	}
	return metrics, shutdown, nil
}

// progressLogger rate-limits progress lines. The completion event is
// always logged.
type progressLogger struct {
	log   *logger.Logger
	every time.Duration
	last  time.Time
}

func (p *progressLogger) observe(pr transfer.Progress) {
	now := time.Now()
	if !pr.IsCompleted && now.Sub(p.last) < p.every {
		return
	}
	p.last = now

	fields := logger.TransferFields(pr.TransferredBytes, pr.TotalBytes)
	if pct := pr.Percent(); pct >= 0 {
		fields["percent"] = fmt.Sprintf("%.1f", pct)
	}
	if pr.IsCompleted {
		p.log.Info("download complete", fields)
		return
	}
	p.log.Info("downloading", fields)
}

// outputPath validates target and picks the object path. Relative targets
// are only accepted when the client has a base URL.
func outputPath(target, explicit string, hasBase bool) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
	case u.Scheme == "" && hasBase:
	default:
		return "", fmt.Errorf("unsupported URL %q", target)
	}
	if explicit != "" {
		return explicit, nil
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "index"
	}
	return name, nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("header %q is not in Name: value form", h)
		}
		out[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}
	return out, nil
}
