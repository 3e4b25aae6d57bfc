// Command orderctl queries the order API from the command line and can run a
// small health and metrics server for long-lived deployments.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/Sternrassler/orderbridge/internal/config"
	"github.com/Sternrassler/orderbridge/pkg/client"
	"github.com/Sternrassler/orderbridge/pkg/logging"
)

var exampleUsage = strings.TrimSpace(`
  orderctl changed --from 2024-02-01T00:00:00Z --to 2024-02-02T00:00:00Z
  orderctl order 123456
  orderctl stores --refresh
  orderctl serve --listen :8080 --redis-addr localhost:6379
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries state shared by all subcommands.
type app struct {
	cfg     config.Config
	cfgPath string
	out     io.Writer
	log     zerolog.Logger
}

func main() {
	if err := run(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "orderctl:", err)
		os.Exit(1)
	}
}

// run executes orderctl with a context cancelled on SIGINT or SIGTERM, so an
// interrupted command aborts its in-flight call and pending waits.
func run(ctx context.Context, out io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{cfg: config.DefaultConfig(), out: out}

	root := &cobra.Command{
		Use:           "orderctl",
		Short:         "Query and sync orders through the order API",
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.orderbridge/config.toml)")
	flags.StringVar(&a.cfg.BaseURL, "base-url", a.cfg.BaseURL, "API base URL")
	flags.StringVar(&a.cfg.APIKey, "api-key", a.cfg.APIKey, "API key")
	flags.StringVar(&a.cfg.APISecret, "api-secret", a.cfg.APISecret, "API secret")
	flags.StringVar(&a.cfg.UserAgent, "user-agent", a.cfg.UserAgent, "User-Agent header")
	flags.StringVar(&a.cfg.RedisAddr, "redis-addr", a.cfg.RedisAddr, "Redis address for shared throttling and caching (optional)")
	flags.IntVar(&a.cfg.PageSize, "page-size", a.cfg.PageSize, "records per page")
	flags.IntVar(&a.cfg.MaxConcurrency, "max-concurrency", a.cfg.MaxConcurrency, "maximum concurrent post-processing or submission tasks")
	flags.IntVar(&a.cfg.RequestsPerMinute, "requests-per-minute", a.cfg.RequestsPerMinute, "client-side request pacing (0 disables)")
	flags.DurationVar(&a.cfg.ListTimeout, "list-timeout", a.cfg.ListTimeout, "per-request timeout for listings")
	flags.DurationVar(&a.cfg.GetTimeout, "get-timeout", a.cfg.GetTimeout, "per-request timeout for single reads")
	flags.DurationVar(&a.cfg.SubmitTimeout, "submit-timeout", a.cfg.SubmitTimeout, "per-request timeout for submissions")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&a.cfg.LogPretty, "log-pretty", a.cfg.LogPretty, "human-readable console logs")

	root.AddCommand(
		newChangedCmd(a),
		newOrderCmd(a),
		newStoresCmd(a),
		newServeCmd(a),
	)

	return root
}

// load resolves configuration from file, environment and flags, then sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	} else if !config.FileExists(cfgFile) {
		return fmt.Errorf("config file %s not found", cfgFile)
	}

	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := config.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{
		Level:   level,
		Pretty:  a.cfg.LogPretty,
		Output:  os.Stderr,
		Service: "orderctl",
	})
	a.log = logging.NewLogger("orderctl")
	a.log.Debug().Interface("config", a.cfg.Redacted()).Msg("configuration")

	return nil
}

// newClient builds an API client and, when configured, its Redis connection.
// The returned cleanup closes both.
func (a *app) newClient(ctx context.Context) (*client.Client, *redis.Client, func(), error) {
	var rdb *redis.Client
	if a.cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.RedisAddr, err)
		}
		a.log.Info().Str("redis_addr", a.cfg.RedisAddr).Msg("Connected to Redis")
	}

	c, err := client.New(a.cfg.ClientConfig(rdb))
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, nil, fmt.Errorf("create client: %w", err)
	}

	cleanup := func() {
		_ = c.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return c, rdb, cleanup, nil
}
