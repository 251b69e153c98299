package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := Load()
	require.NoError(t, err)

	exp := Default()
	assert.Equal(t, &exp, conf)
	assert.True(t, conf.IsDev())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(`RQLAPI_ENV`, `production`)
	t.Setenv(`RQLAPI_SERVER_ADDR`, `:9000`)
	t.Setenv(`RQLAPI_SERVER_PAGE_SIZE`, `25`)
	t.Setenv(`RQLAPI_DATABASE_DSN`, `:memory:`)
	t.Setenv(`RQLAPI_DATABASE_SEED`, `false`)
	t.Setenv(`RQLAPI_LOG_LEVEL`, `debug`)
	t.Setenv(`RQLAPI_SERVER_HEADERS`, `x-api-version: 2; Cache-Control: no-store`)

	conf, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, conf.Env)
	assert.False(t, conf.IsDev())
	assert.Equal(t, `:9000`, conf.Server.Addr)
	assert.Equal(t, 25, conf.Server.PageSize)
	assert.Equal(t, 10, conf.Server.ReadTimeout)
	assert.Equal(t, `:memory:`, conf.Database.DSN)
	assert.False(t, conf.Database.Seed)
	assert.Equal(t, `debug`, conf.Log.Level)

	headers, err := conf.Server.HeaderMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{`X-Api-Version`: `2`, `Cache-Control`: `no-store`}, headers)
}

func TestHeaderMap(t *testing.T) {
	headers, err := ServerConfig{}.HeaderMap()
	require.NoError(t, err)
	assert.Empty(t, headers)

	headers, err = ServerConfig{Headers: ` X-One: a:b ;; `}.HeaderMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{`X-One`: `a:b`}, headers)

	for _, src := range []string{`X-One`, `: value`, `Bad Name: value`} {
		_, err := ServerConfig{Headers: src}.HeaderMap()
		assert.Error(t, err, src)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Run(`unknown environment`, func(t *testing.T) {
		t.Setenv(`RQLAPI_ENV`, `staging`)
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run(`page size out of range`, func(t *testing.T) {
		t.Setenv(`RQLAPI_SERVER_PAGE_SIZE`, `1000`)
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run(`malformed headers`, func(t *testing.T) {
		t.Setenv(`RQLAPI_SERVER_HEADERS`, `X-Api-Version`)
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run(`unknown log level`, func(t *testing.T) {
		t.Setenv(`RQLAPI_LOG_LEVEL`, `loud`)
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, `env`, envKey(`RQLAPI_ENV`))
	assert.Equal(t, `server.addr`, envKey(`RQLAPI_SERVER_ADDR`))
	assert.Equal(t, `server.page_size`, envKey(`RQLAPI_SERVER_PAGE_SIZE`))
}
