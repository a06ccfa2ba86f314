package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete avdroll configuration
type Config struct {
	Azure      AzureConfig      `mapstructure:"azure"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Naming     NamingConfig     `mapstructure:"naming"`
	Rollout    RolloutConfig    `mapstructure:"rollout"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// DataDir holds the local run journal
	DataDir string `mapstructure:"data_dir"`
	// MetricsAddr, when set, serves /metrics during a run (e.g. ":9090")
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// AzureConfig carries identity and scope. All five values are opaque
// inputs from the execution environment; they are validated for presence
// only and never logged.
type AzureConfig struct {
	TenantID       string `mapstructure:"tenant_id"`
	SubscriptionID string `mapstructure:"subscription_id"`
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	ResourceGroup  string `mapstructure:"resource_group"`
}

// RepositoryConfig locates the shared image repository and the deployment
// documents inside it.
type RepositoryConfig struct {
	// ImagesPath is the "latest images" location scanned by the watcher
	ImagesPath string `mapstructure:"images_path"`
	// TemplatePath is the deployment template document
	TemplatePath string `mapstructure:"template_path"`
	// ParametersPath is the sibling parameter document
	ParametersPath string `mapstructure:"parameters_path"`
	// StagingPath, when set, receives the rendered parameters for inspection
	StagingPath string `mapstructure:"staging_path"`
}

// NamingConfig carries the environment naming conventions
type NamingConfig struct {
	// Env is the short environment tag, e.g. "we"
	Env string `mapstructure:"env"`
	// DesktopNameBase prefixes the published desktop friendly name
	DesktopNameBase string `mapstructure:"desktop_name_base"`
	// ImageResourceIDTemplate holds a {folder} placeholder for the build folder
	ImageResourceIDTemplate string `mapstructure:"image_resource_id_template"`
	// AppGroupSuffix addresses the pool's desktop application group
	AppGroupSuffix string `mapstructure:"app_group_suffix"`
}

// RolloutConfig carries the pipeline timing tunables
type RolloutConfig struct {
	// PropagationDelay between the configurator and the first restart wave
	PropagationDelay time.Duration `mapstructure:"propagation_delay"`
	// Warmup between the two restart waves
	Warmup time.Duration `mapstructure:"warmup"`
	// Parallelism bounds concurrent restarts inside one wave
	Parallelism int `mapstructure:"parallelism"`
	// PollReadiness switches the inter-wave wait to status polling
	PollReadiness     bool          `mapstructure:"poll_readiness"`
	ReadinessInterval time.Duration `mapstructure:"readiness_interval"`
	ReadinessTimeout  time.Duration `mapstructure:"readiness_timeout"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Naming: NamingConfig{
			Env:             "we",
			DesktopNameBase: "Schuecal",
			AppGroupSuffix:  "-DAG",
		},
		Rollout: RolloutConfig{
			PropagationDelay:  time.Hour,
			Warmup:            5 * time.Minute,
			Parallelism:       1,
			ReadinessInterval: 15 * time.Second,
			ReadinessTimeout:  10 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		DataDir: "./avdroll-data",
	}
}

// Load reads configuration from the given file (optional), the standard
// search paths, and AVDROLL_-prefixed environment variables, layered over
// the defaults. Environment variables win over the file, e.g.
// AVDROLL_AZURE_CLIENT_SECRET overrides azure.client_secret.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AVDROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("avdroll")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.avdroll")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Empty defaults register the keys so AutomaticEnv can bind them even
	// when no config file mentions them.
	v.SetDefault("azure.tenant_id", "")
	v.SetDefault("azure.subscription_id", "")
	v.SetDefault("azure.client_id", "")
	v.SetDefault("azure.client_secret", "")
	v.SetDefault("azure.resource_group", "")
	v.SetDefault("repository.images_path", "")
	v.SetDefault("repository.template_path", "")
	v.SetDefault("repository.parameters_path", "")
	v.SetDefault("repository.staging_path", "")
	v.SetDefault("metrics_addr", "")

	v.SetDefault("naming.env", defaults.Naming.Env)
	v.SetDefault("naming.desktop_name_base", defaults.Naming.DesktopNameBase)
	v.SetDefault("naming.app_group_suffix", defaults.Naming.AppGroupSuffix)
	v.SetDefault("naming.image_resource_id_template", defaults.Naming.ImageResourceIDTemplate)

	v.SetDefault("rollout.propagation_delay", defaults.Rollout.PropagationDelay)
	v.SetDefault("rollout.warmup", defaults.Rollout.Warmup)
	v.SetDefault("rollout.parallelism", defaults.Rollout.Parallelism)
	v.SetDefault("rollout.poll_readiness", defaults.Rollout.PollReadiness)
	v.SetDefault("rollout.readiness_interval", defaults.Rollout.ReadinessInterval)
	v.SetDefault("rollout.readiness_timeout", defaults.Rollout.ReadinessTimeout)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.json", defaults.Logging.JSON)
	v.SetDefault("data_dir", defaults.DataDir)
}
