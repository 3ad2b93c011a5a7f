package app

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home        string        `mapstructure:"home"`         // state directory, e.g. $HOME/.pairlink
	RelayURL    string        `mapstructure:"relay_url"`    // websocket relay address; empty selects the in-process relay
	AuthToken   string        `mapstructure:"auth_token"`   // relay auth token, passed on dial
	Passphrase  string        `mapstructure:"passphrase"`   // protects the key file at rest
	Protocol    string        `mapstructure:"protocol"`     // pairing, push, or auth
	Development bool          `mapstructure:"development"`  // console logging at debug level
	CallTimeout time.Duration `mapstructure:"call_timeout"` // outbound relay call deadline
}

// LoadConfig reads configuration from an optional YAML file and
// PAIRLINK_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pairlink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PAIRLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("protocol", "pairing")
	v.SetDefault("call_timeout", "15s")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file is fine; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
