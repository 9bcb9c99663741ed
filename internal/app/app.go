// Package app wires together PARSEHUB's configuration, logging, provider
// router, and parse job service into a single composition root used by
// cmd/parsehub-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parsehub/parsehub/internal/common"
	"github.com/parsehub/parsehub/internal/interfaces"
	"github.com/parsehub/parsehub/internal/models"
	"github.com/parsehub/parsehub/internal/providers/geminiengine"
	"github.com/parsehub/parsehub/internal/providers/router"
	"github.com/parsehub/parsehub/internal/providers/stub"
	"github.com/parsehub/parsehub/internal/services/parsejobs"
)

// App holds every initialized component. It is the shared core used by
// cmd/parsehub-server.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Router       *router.Router
	Store        interfaces.JobStore
	ParseService *parsejobs.Service
	StartupTime  time.Time
}

func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, logging, the provider router (with
// every known provider registered), the job store, and the parse service.
// configPath may be empty, in which case default resolution is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()
	common.LoadVersionFromFile()

	binDir := getBinaryDir()
	if configPath == "" {
		configPath = os.Getenv("PARSEHUB_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "parsehub.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/parsehub.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	rt := router.New()
	registerProviders(context.Background(), rt, config, logger)

	store := parsejobs.NewStore()
	parseService := parsejobs.New(rt, store, logger)

	logger.Info().
		Str("startup_duration", time.Since(startupStart).String()).
		Msg("PARSEHUB application initialized")

	return &App{
		Config:       config,
		Logger:       logger,
		Router:       rt,
		Store:        store,
		ParseService: parseService,
		StartupTime:  startupStart,
	}, nil
}

// registerProviders registers every known provider against rt, using a real
// Gemini-backed client when an API key is configured and the deterministic
// stub client otherwise.
func registerProviders(ctx context.Context, rt *router.Router, config *common.Config, logger *common.Logger) {
	providerConfigs := map[models.Provider]common.ProviderConfig{
		models.ProviderOpenAI:     config.Providers.OpenAI,
		models.ProviderOpenRouter: config.Providers.OpenRouter,
		models.ProviderQwenLocal:  config.Providers.QwenLocal,
	}

	var client interfaces.ProviderClient
	if config.Providers.Gemini.APIKey != "" {
		geminiClient, err := geminiengine.NewClient(ctx, config.Providers.Gemini.APIKey,
			geminiengine.WithModel(config.Providers.Gemini.Model),
			geminiengine.WithLogger(logger),
			geminiengine.WithRateLimit(config.Providers.Gemini.RateLimit),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini provider engine, falling back to stub clients")
		} else {
			client = geminiClient
		}
	}

	for provider, cfg := range providerConfigs {
		// The window is wired even when the global quota is unlimited, so
		// per-org quotas still reset on window expiry.
		opts := []router.Option{
			router.WithEnabled(cfg.Enabled),
			router.WithQuota(cfg.QuotaPerWindow, cfg.WindowDuration()),
			router.WithConcurrencyLimit(cfg.ConcurrencyLimit),
			router.WithCircuitBreaker(cfg.FailureThreshold, cfg.CooldownDuration()),
			router.WithRollout(router.Rollout{
				AllowByDefault: cfg.RolloutAllowByDef,
				Allowlist:      toSet(cfg.RolloutAllowlist),
				Blocklist:      toSet(cfg.RolloutBlocklist),
			}),
		}
		for orgID, quota := range cfg.OrgQuotas {
			opts = append(opts, router.WithOrgQuota(orgID, quota))
		}

		providerClient := client
		if providerClient == nil {
			providerClient = stub.New(string(provider))
		}
		rt.Register(provider, providerClient, opts...)
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Shutdown waits for in-flight background parse jobs to finish, or until
// ctx is done, whichever comes first.
func (a *App) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.ParseService.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
