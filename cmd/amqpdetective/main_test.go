package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/amqpdetective/internal/config"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/danmuck/amqpdetective/internal/render"
	"github.com/danmuck/amqpdetective/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCapture(t *testing.T, dir, name string, src frame.Source, methods ...string) string {
	t.Helper()
	var msgs []frame.Message
	for _, m := range methods {
		f, err := frame.NewMethodFrame(src, 1, m, nil)
		require.NoError(t, err)
		msgs = append(msgs, f)
	}
	data, err := frame.Encode(msgs)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// emptyConfig keeps a stray amqpdetective.toml in the working directory out
// of the tests.
func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func TestAnalyzeText(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	client := writeCapture(t, dir, "client.bin", frame.SourceClient, "basic.get")
	server := writeCapture(t, dir, "server.bin", frame.SourceServer, "basic.get-empty")

	out, err := run(t, "--config", emptyConfig(t), "analyze", "--rule", "get", client, server)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "CLIENT: |METHOD|"), lines[0])
	require.Contains(t, lines[1], "basic.get-empty")
	require.NotContains(t, out, "(!)")
}

func TestAnalyzeJSONToFile(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	client := writeCapture(t, dir, "client.bin", frame.SourceClient, "basic.get")
	server := writeCapture(t, dir, "server.bin", frame.SourceServer, "basic.get-empty")
	outPath := filepath.Join(dir, "report.json")
	metricsPath := filepath.Join(dir, "metrics.prom")

	cfgPath := filepath.Join(dir, "cfg.toml")
	cfgBody := "[analysis]\nroot_rule = \"get\"\nformat = \"json\"\nmetrics_textfile = \"" + filepath.ToSlash(metricsPath) + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgBody), 0o600))

	out, err := run(t, "--config", cfgPath, "analyze", "-o", outPath, client, server)
	require.NoError(t, err)
	require.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var report render.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Equal(t, "get", report.Rule)
	require.True(t, report.Matched)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(metrics), "amqpdetective_analysis_total")

	positional := filepath.Join(dir, "report.txt")
	_, err = run(t, "--config", cfgPath, "analyze", "--format", "text", client, server, positional)
	require.NoError(t, err)
	data, err = os.ReadFile(positional)
	require.NoError(t, err)
	require.Contains(t, string(data), "basic.get-empty")
}

func TestAnalyzeDecodeErrorStillPrints(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	client := writeCapture(t, dir, "client.bin", frame.SourceClient, "basic.get")
	server := writeCapture(t, dir, "server.bin", frame.SourceServer, "basic.get-empty")
	f, err := os.OpenFile(server, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.Write([]byte{0x01, 0x00})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := run(t, "--config", emptyConfig(t), "analyze", "--rule", "get", client, server)
	require.Error(t, err)
	var de *frame.DecodeError
	require.ErrorAs(t, err, &de)
	require.Contains(t, out, "basic.get-empty")
	require.Contains(t, out, "# ")
}

func TestAnalyzeArgumentErrors(t *testing.T) {
	testlog.Start(t)
	cfg := emptyConfig(t)
	dir := t.TempDir()
	client := writeCapture(t, dir, "client.bin", frame.SourceClient)
	server := writeCapture(t, dir, "server.bin", frame.SourceServer)

	_, err := run(t, "--config", cfg, "analyze", client)
	require.Error(t, err)
	_, err = run(t, "--config", cfg, "analyze", "--format", "yaml", client, server)
	require.Error(t, err)
	_, err = run(t, "--config", cfg, "analyze", client, filepath.Join(dir, "missing.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = run(t, "--config", filepath.Join(dir, "missing.toml"), "analyze", client, server)
	require.Error(t, err)
	_, err = run(t, "--config", cfg, "--log-level", "loud", "analyze", client, server)
	require.ErrorContains(t, err, "unknown log level")
}

func TestDecodeServerSide(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	server := writeCapture(t, dir, "server.bin", frame.SourceServer, "connection.start", "connection.tune")

	out, err := run(t, "--config", emptyConfig(t), "decode", "--side", "server", server)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		require.True(t, strings.HasPrefix(line, "SERVER: "), line)
	}

	_, err = run(t, "--config", emptyConfig(t), "decode", "--side", "broker", server)
	require.Error(t, err)
}

func TestGrammarCommand(t *testing.T) {
	testlog.Start(t)
	out, err := run(t, "--config", emptyConfig(t), "grammar")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "root = protocol\n"), out)

	tomlOut, err := run(t, "--config", emptyConfig(t), "grammar", "--toml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "grammar.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlOut), 0o600))

	again, err := run(t, "--config", emptyConfig(t), "--grammar", path, "grammar")
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestConfigInitAndValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "amqpdetective.toml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	require.Contains(t, out, path)

	_, err = run(t, "config", "init", path)
	require.ErrorContains(t, err, "already exists")
	_, err = run(t, "config", "init", "--force", path)
	require.NoError(t, err)

	out, err = run(t, "config", "validate", path)
	require.NoError(t, err)
	require.Contains(t, out, "ok")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)

	require.NoError(t, os.WriteFile(path, []byte("[analysis]\nformat = \"xml\"\n"), 0o600))
	_, err = run(t, "config", "validate", path)
	require.Error(t, err)
}
