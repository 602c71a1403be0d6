// Package gateway implements jwtgate, a reverse proxy that only forwards
// requests carrying a valid Okta access token.
package gateway

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
)

// EnvPrefix prefixes the environment variables read by Load. Nested keys are
// separated by a double underscore: JWTGATE_AUTH__CLIENT_ID sets
// auth.client_id.
const EnvPrefix = "JWTGATE_"

// Config is the jwtgate configuration.
type Config struct {
	Listen          string               `koanf:"listen"`
	Upstream        string               `koanf:"upstream"`
	LogLevel        string               `koanf:"log_level"`
	ShutdownTimeout time.Duration        `koanf:"shutdown_timeout"`
	Auth            jwtmiddleware.Config `koanf:"auth"`
}

var defaults = map[string]any{
	"listen":           ":8080",
	"log_level":        "info",
	"shutdown_timeout": "10s",
}

var errUpstreamRequired = errors.New("upstream is required")

// Load reads the configuration from defaults, the YAML file at path (when
// path is not empty) and the environment, later sources winning.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if info, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		} else if info.IsDir() {
			return Config{}, fmt.Errorf("config file %s: must be a file", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			Result:           &cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}

	cfg.Auth.AssertClaims = flattenAssertClaims(cfg.Auth.AssertClaims)

	if cfg.Upstream == "" {
		return Config{}, errUpstreamRequired
	}
	return cfg, nil
}

// envKey maps JWTGATE_AUTH__CLIENT_ID to auth.client_id.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// flattenAssertClaims restores "<claim>.includes" keys, which koanf splits
// on its "." delimiter into {claim: {includes: value}}.
func flattenAssertClaims(claims map[string]any) map[string]any {
	if claims == nil {
		return nil
	}

	out := make(map[string]any, len(claims))
	for name, value := range claims {
		nested, ok := value.(map[string]any)
		if !ok {
			out[name] = value
			continue
		}
		for op, v := range nested {
			out[name+"."+op] = v
		}
	}
	return out
}
