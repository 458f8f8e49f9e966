package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GhostbusterQuest/huntcore/internal/catalog"
	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig sets up a config dir with JSON storage and logs under a temp dir.
// The ghost sits still on its anchor so the scripted hunt freezes it on the first shot.
func writeConfig(t *testing.T) string {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	cfg := map[string]any{
		"logLevel": "debug",
		"logsDir":  filepath.Join(dir, "logs"),
		"storage": map[string]any{
			"type":   "memory",
			"memory": map[string]any{"outputDir": filepath.Join(dir, "data")},
		},
		"assets": map[string]any{"root": filepath.Join(dir, "models")},
		"hunt": map[string]any{
			"orbit": map[string]any{"radius": 0, "height": 0, "bobAmplitude": 0},
		},
	}
	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, binaryName+".cfg.json"), b, 0o644))
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestGhosts_SeedAndList(t *testing.T) {
	dir := writeConfig(t)

	out, err := run(t, dir, "ghosts", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "sample scenario added")

	out, err = run(t, dir, "ghosts", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")

	out, err = run(t, dir, "ghosts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Patriarch Ponds")
	assert.Contains(t, out, "Poltergeist")
	assert.Contains(t, out, "0/1")
}

func TestSimulate_CapturesTarget(t *testing.T) {
	dir := writeConfig(t)
	_, err := run(t, dir, "ghosts", "seed")
	require.NoError(t, err)

	out, err := run(t, dir, "simulate", "--distance", "5")
	require.NoError(t, err)

	var summary core.SessionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, core.OutcomeCaptured, summary.Outcome)
	assert.True(t, summary.FreezeByAim)
	assert.GreaterOrEqual(t, summary.ShotsFired, 1)

	out, err = run(t, dir, "ghosts", "captures")
	require.NoError(t, err)
	var captures []core.Capture
	require.NoError(t, json.Unmarshal([]byte(out), &captures))
	require.Len(t, captures, 1)
	assert.Equal(t, summary.SessionID, captures[0].SessionID)

	out, err = run(t, dir, "ghosts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "captured")
	assert.Contains(t, out, "1/1")
}

func TestSimulate_NoActiveGame(t *testing.T) {
	dir := writeConfig(t)
	_, err := run(t, dir, "simulate")
	assert.ErrorIs(t, err, errNoActiveGame)
}

func TestSimulate_BadGameID(t *testing.T) {
	dir := writeConfig(t)
	_, err := run(t, dir, "simulate", "--game", "not-a-uuid")
	assert.ErrorContains(t, err, "invalid game id")
}

func TestRadar_Reading(t *testing.T) {
	dir := writeConfig(t)
	_, err := run(t, dir, "ghosts", "seed")
	require.NoError(t, err)

	user := standoff(catalog.SampleLocation, 30)
	at := strings.Join([]string{formatDeg(user.Lat), formatDeg(user.Lon)}, ",")

	out, err := run(t, dir, "radar", "--at", at, "--heading", "0")
	require.NoError(t, err)
	var r map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "Poltergeist", r["ghost"])
	assert.InDelta(t, 30, r["distance"], 0.5)
	assert.InDelta(t, 0, r["relative"], 0.5)
	assert.Equal(t, true, r["headingUp"])
	assert.Equal(t, true, r["inRange"])
	assert.Equal(t, false, r["canFight"])

	out, err = run(t, dir, "radar", "--at", at)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, false, r["headingUp"])
}

func TestRadar_RequiresPosition(t *testing.T) {
	dir := writeConfig(t)
	_, err := run(t, dir, "radar")
	assert.Error(t, err)

	_, err = run(t, dir, "radar", "--at", "north pole")
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestStandoff(t *testing.T) {
	target := core.Coordinate{Lat: 55.7558, Lon: 37.6173}
	user := standoff(target, 12)
	assert.InDelta(t, 12, geo.Distance(user, target), 1e-3)
	assert.InDelta(t, 0, geo.Bearing(user, target), 1e-6)
}

func TestTargetOf(t *testing.T) {
	g := core.NewGame("g")
	_, ok := targetOf(g)
	assert.False(t, ok)

	a := core.NewGhost("a", "", core.Coordinate{})
	a.State = core.GhostCaptured
	b := core.NewGhost("b", "", core.Coordinate{})
	g.Ghosts = []core.Ghost{a, b}
	gh, ok := targetOf(g)
	require.True(t, ok)
	assert.Equal(t, "b", gh.Name)

	g.Ghosts[1].State = core.GhostCaptured
	gh, _ = targetOf(g)
	assert.Equal(t, "a", gh.Name)
}

func formatDeg(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
