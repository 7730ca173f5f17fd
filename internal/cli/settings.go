package cli

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/factiva-io/factiva-analytics-go/internal/config"
)

// Settings are the CLI defaults read from the optional config file. Credential
// material stays in the environment; only behavior knobs live here.
type Settings struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	DownloadDir  string        `yaml:"download_dir" mapstructure:"download_dir"`
}

// LoadSettings reads the config file, falling back to
// ~/.config/factiva/config.yaml and then to defaults when absent.
func LoadSettings(configFile string) (*Settings, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "factiva"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	settings := DefaultSettings()

	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := v.Unmarshal(settings, viper.DecodeHook(decodeHook)); err != nil {
		return nil, err
	}

	settings.DownloadDir = os.ExpandEnv(settings.DownloadDir)
	return settings, nil
}

// SaveSettings writes the settings back as yaml, creating the config
// directory as needed.
func SaveSettings(settings *Settings, configFile string) error {
	path := configFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".config", "factiva", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultSettings returns the defaults used when no config file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Timeout:      90 * time.Second,
		PollInterval: 10 * time.Second,
		DownloadDir:  config.DownloadDir(),
	}
}
