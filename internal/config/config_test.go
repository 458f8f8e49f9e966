package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/assets"
	"github.com/GhostbusterQuest/huntcore/internal/hunt"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./huntlogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "huntcore", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "hunt_sessions", viper.GetString("influx.bucket"))
	assert.Equal(t, 100.0, viper.GetFloat64("radar.rangeMeters"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, "memory", GetStorageConfig().Type)
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{"logLevel": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out" },
			"sqlite": { "dumpInterval": "10m", "dumpPath": "/tmp/hunt.db" }
		},
		"db": { "username": "hunter" }
	}`)
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "/tmp/hunt.db", sc.SQLite.DumpPath)
	assert.Equal(t, "hunter", sc.DB.Username)
	assert.Equal(t, "postgres", sc.DB.Password)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "huntcore", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"influx": {"enabled": true, "host": "metrics", "protocol": "https"}}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "https://metrics:8086", ic.URL())
	assert.Equal(t, "huntcore", ic.Org)
}

func TestGetAssetsAndRadarConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"assets": {"root": "/srv/models"}, "radar": {"rangeMeters": 250}}`)))

	ac := GetAssetsConfig()
	assert.Equal(t, "/srv/models", ac.Root)
	assert.Equal(t, assets.DefaultSubdir, ac.Subdir)
	assert.Equal(t, assets.DefaultExtensions, ac.Extensions)

	rc := GetRadarConfig()
	assert.Equal(t, 250.0, rc.RangeMeters)
	assert.Equal(t, 3.0, rc.WaveSeconds)
}

func TestGetHuntConfig_OverlaysDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"hunt": {
			"frameRate": 30,
			"fire": { "policy": "burst" },
			"orbit": { "radius": 1.5 },
			"projectile": { "speed": 12.5 }
		}
	}`)))

	cfg, err := GetHuntConfig()
	require.NoError(t, err)

	def := hunt.DefaultConfig()
	assert.Equal(t, 30, cfg.FrameRate)
	assert.Equal(t, hunt.FireBurst, cfg.Fire.Policy)
	assert.Equal(t, def.Fire.Interval, cfg.Fire.Interval)
	assert.Equal(t, 1.5, cfg.Orbit.Radius)
	assert.Equal(t, def.Orbit.Speed, cfg.Orbit.Speed)
	assert.Equal(t, 12.5, cfg.Projectile.Speed)
	assert.Equal(t, def.Projectile.HitRadius, cfg.Projectile.HitRadius)
	assert.Equal(t, def.Catch, cfg.Catch)
}

func TestGetHuntConfig_NoSection(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(t.TempDir()))

	cfg, err := GetHuntConfig()
	require.NoError(t, err)
	assert.Equal(t, hunt.DefaultConfig(), cfg)
}
