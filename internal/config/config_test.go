package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, cfg.Server.RespawnDelay)
	assert.Equal(t, 10000, cfg.Client.MaxDecals)
	assert.Equal(t, "none", cfg.Scene.Source)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
tick_rate = "50ms"
spawn_point = [1.0, 2.0, 3.0]

[scene]
source = "file"
path = "arena.scene"

[logging]
format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Server.TickRate)
	assert.Equal(t, [3]float32{1, 2, 3}, cfg.Server.SpawnPoint)
	assert.Equal(t, "arena.scene", cfg.Scene.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "0.0.0.0:2345", cfg.Network.BindAddress)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scene]\nsource = \"ftp\"\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestParseArgs(t *testing.T) {
	a, err := ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, Args{Mode: ModeConnect, Host: DefaultHost, Port: DefaultPort}, a)

	a, err = ParseArgs([]string{"listen", "7000"})
	require.NoError(t, err)
	assert.Equal(t, ModeListen, a.Mode)
	assert.Equal(t, ":7000", a.Addr())

	a, err = ParseArgs([]string{"connect", "example.org", "65535"})
	require.NoError(t, err)
	assert.Equal(t, Args{Mode: ModeConnect, Host: "example.org", Port: 65535}, a)

	bad := [][]string{
		{"listen", "1", "listen", "2"},
		{"connect", "h", "1", "connect", "h", "2"},
		{"listen", "1", "connect", "h", "2"},
		{"connect", "h", "2", "listen", "1"},
		{"listen"},
		{"connect"},
		{"connect", "h"},
		{"listen", "0"},
		{"listen", "65536"},
		{"listen", "http"},
		{"serve"},
	}
	for _, args := range bad {
		_, err := ParseArgs(args)
		assert.Error(t, err, "%v", args)
	}
}
