package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/git-pkgs/affected"
	"github.com/git-pkgs/affected/cache"
	"github.com/git-pkgs/affected/debiancache"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *zap.Logger
	closers []func() error
}

func newApp() *app {
	return &app{v: viper.New(), logger: zap.NewNop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "affected",
		Short: "Resolve vulnerable version ranges to concrete package versions",
		Long: `affected turns a vulnerable range (introduced, fixed, limits) into the
list of released versions it covers, querying the package registries of
PyPI, Maven, RubyGems, NuGet and Debian.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./affected.yaml)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Bool("deps-dev", false, "List Maven and PyPI versions through deps.dev")
	flags.Uint64("retries", 0, "Retry transient registry failures this many times")
	flags.String("redis", "", "Redis address for the shared cache (default in-memory)")

	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("deps_dev.enabled", flags.Lookup("deps-dev"))
	_ = a.v.BindPFlag("http.retries", flags.Lookup("retries"))
	_ = a.v.BindPFlag("redis.addr", flags.Lookup("redis"))

	root.AddCommand(
		newVersionsCmd(a),
		newNextCmd(a),
		newSortCmd(a),
		newEcosystemsCmd(a),
	)
	return root
}

// initConfig reads the config file and AFFECTED_* environment variables.
func (a *app) initConfig() error {
	v := a.v
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("affected")
	}

	v.SetEnvPrefix("AFFECTED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("user_agent", "affected")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.retries", 0)
	v.SetDefault("cache.ttl", 6*time.Hour)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("deps_dev.enabled", false)
	v.SetDefault("deps_dev.api_key", "")
	v.SetDefault("ecosystems.fallback", false)
	v.SetDefault("debian.first_versions_url", debiancache.DefaultURL)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	a.logger = initLogger(v.GetBool("verbose"))
	return nil
}

func initLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// registry builds the ecosystem registry from configuration.
func (a *app) registry() (*affected.Registry, error) {
	v := a.v
	httpClient := &http.Client{Timeout: v.GetDuration("http.timeout")}

	var shared cache.Cache
	if addr := v.GetString("redis.addr"); addr != "" {
		r := cache.DialRedis(addr, v.GetInt("redis.db"))
		a.closers = append(a.closers, r.Close)
		shared = r
		a.logger.Debug("using redis cache", zap.String("addr", addr))
	} else {
		shared = cache.NewMemory()
	}

	opts := []affected.Option{
		affected.WithUserAgent(v.GetString("user_agent")),
		affected.WithHTTPClient(httpClient),
		affected.WithLogger(a.logger),
		affected.WithCache(shared),
		affected.WithCacheTTL(v.GetDuration("cache.ttl")),
		affected.WithRetries(v.GetUint64("http.retries")),
		affected.WithEndpoints(affected.Endpoints{
			PyPI:     v.GetString("endpoints.pypi"),
			Maven:    v.GetString("endpoints.maven"),
			RubyGems: v.GetString("endpoints.rubygems"),
			NuGet:    v.GetString("endpoints.nuget"),
			Debian:   v.GetString("endpoints.debian"),
			DepsDev:  v.GetString("endpoints.deps_dev"),

			DebianFirstVersions: v.GetString("debian.first_versions_url"),
		}),
	}
	if v.GetBool("deps_dev.enabled") {
		opts = append(opts, affected.WithDepsDev(v.GetString("deps_dev.api_key")))
	}
	if v.GetBool("ecosystems.fallback") {
		opts = append(opts, affected.WithEcosystemsFallback())
	}

	return affected.New(opts...)
}

// ecosystem resolves name or returns an error naming the supported ones.
func (a *app) ecosystem(name string) (*affected.Registry, affected.Ecosystem, error) {
	r, err := a.registry()
	if err != nil {
		return nil, nil, err
	}
	e := r.Get(name)
	if e == nil {
		return nil, nil, fmt.Errorf("unsupported ecosystem %q (supported: %s, Debian:<release>)",
			name, strings.Join(r.Names(), ", "))
	}
	return r, e, nil
}

// close releases what registry opened and flushes the logger.
func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
