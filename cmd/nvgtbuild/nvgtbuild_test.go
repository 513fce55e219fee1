package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) error {
	t.Helper()
	parser, err := kong.New(&CLI, kong.Name("nvgtbuild"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	_, err = parser.Parse(args)
	return err
}

func TestConfigFlag(t *testing.T) {
	require.NoError(t, parse(t, "--config", "build.json", "docs", "--minify"))
	require.Equal(t, "build.json", CLI.ConfigFile)
	require.True(t, CLI.Docs.Minify)

	require.NoError(t, parse(t, "-c", "other.json", "osl"))
	require.Equal(t, "other.json", CLI.ConfigFile)

	require.Error(t, parse(t, "--config-file", "build.json", "osl"))
}

func TestCryptCommandRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "save.txt")
	require.NoError(t, os.WriteFile(plain, []byte("score=10"), 0644))

	enc := &CommandCrypt{Mode: "enc", Password: "pw", In: plain, Out: filepath.Join(dir, "save.dat")}
	require.NoError(t, enc.Run(context.Background()))
	data, err := os.ReadFile(enc.Out)
	require.NoError(t, err)
	require.Len(t, data, 16)

	dec := &CommandCrypt{Mode: "dec", Password: "pw", In: enc.Out, Out: filepath.Join(dir, "out", "save.txt")}
	require.NoError(t, dec.Run(context.Background()))
	data, err = os.ReadFile(dec.Out)
	require.NoError(t, err)
	require.Equal(t, "score=10", string(data))
}
