/*
Package config loads the settings of the rqlapi command from environment
variables prefixed with "RQLAPI_". A ".env" file in the working directory is
loaded first, if present.

The first underscore after the prefix separates the section from the key:

	RQLAPI_ENV=production
	RQLAPI_SERVER_ADDR=:8080
	RQLAPI_SERVER_PAGE_SIZE=20
	RQLAPI_SERVER_HEADERS="X-Api-Version: 1; Cache-Control: no-store"
	RQLAPI_DATABASE_DSN=file:rqlapi.db
	RQLAPI_LOG_LEVEL=debug
*/
package config

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = `RQLAPI_`

const (
	EnvDevelopment = `development`
	EnvProduction  = `production`
	EnvTest        = `test`
)

type Config struct {
	Env      string         `koanf:"env"      validate:"required,oneof=development production test"`
	Server   ServerConfig   `koanf:"server"   validate:"required"`
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Log      LogConfig      `koanf:"log"      validate:"required"`
}

type ServerConfig struct {
	Addr         string `koanf:"addr"          validate:"required"`
	PageSize     int    `koanf:"page_size"     validate:"min=1,max=100"`
	ReadTimeout  int    `koanf:"read_timeout"  validate:"min=0"`
	WriteTimeout int    `koanf:"write_timeout" validate:"min=0"`
	Headers      string `koanf:"headers"`
}

var headerNameReg = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

/*
Parses `.Headers`: extra response headers as "Name: value" pairs separated by
";". Empty pairs are ignored.
*/
func (self ServerConfig) HeaderMap() (map[string]string, error) {
	out := map[string]string{}

	for _, pair := range strings.Split(self.Headers, `;`) {
		if strings.TrimSpace(pair) == `` {
			continue
		}

		key, val, ok := strings.Cut(pair, `:`)
		key = strings.TrimSpace(key)
		if !ok || !headerNameReg.MatchString(key) {
			return nil, fmt.Errorf(`[config] invalid header %q, expected "Name: value"`, pair)
		}
		out[http.CanonicalHeaderKey(key)] = strings.TrimSpace(val)
	}
	return out, nil
}

type DatabaseConfig struct {
	DSN  string `koanf:"dsn"  validate:"required"`
	Seed bool   `koanf:"seed"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`
}

// Settings used when the environment doesn't override them.
func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Addr:         `:8080`,
			PageSize:     10,
			ReadTimeout:  10,
			WriteTimeout: 10,
		},
		Database: DatabaseConfig{
			DSN:  `file:rqlapi.db`,
			Seed: true,
		},
		Log: LogConfig{Level: `info`},
	}
}

// True in the development environment.
func (self Config) IsDev() bool { return self.Env == EnvDevelopment }

/*
Reads the environment over `Default`, then validates the result. Unknown
variables with the prefix are ignored.
*/
func Load() (*Config, error) {
	k := koanf.New(`.`)

	err := k.Load(env.Provider(EnvPrefix, `.`, envKey), nil)
	if err != nil {
		return nil, fmt.Errorf(`[config] failed to read the environment: %w`, err)
	}

	out := Default()
	err = k.Unmarshal(``, &out)
	if err != nil {
		return nil, fmt.Errorf(`[config] failed to decode the environment: %w`, err)
	}

	err = validator.New().Struct(&out)
	if err != nil {
		return nil, fmt.Errorf(`[config] invalid configuration: %w`, err)
	}

	_, err = out.Server.HeaderMap()
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// "RQLAPI_SERVER_PAGE_SIZE" -> "server.page_size".
func envKey(key string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), `_`, `.`, 1)
}
