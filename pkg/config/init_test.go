package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	Config = DefaultConfiguration()
	t.Chdir(t.TempDir())

	require.NoError(t, Init(""))
	require.Equal(t, "version", Config.VersionFile)
	require.Equal(t, 8100, Config.Serve.Port)
	require.Equal(t, "NVGT Documentation", Config.Docs.Title)
}

func TestInitDecodesOverDefaults(t *testing.T) {
	Config = DefaultConfiguration()
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"serve_config":{"port":9000},"docs":{"minify":true}}`), 0644))

	require.NoError(t, Init(path))
	require.Equal(t, 9000, Config.Serve.Port)
	require.True(t, Config.Docs.Minify)
	require.Equal(t, "src", Config.Docs.SrcDir)
}

func TestInitRejectsBrokenJSON(t *testing.T) {
	Config = DefaultConfiguration()
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "nvgtbuild.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"serve_config":`), 0644))

	require.Error(t, Init(""))
}

func TestInitLoadsEnvFileWithoutOverriding(t *testing.T) {
	Config = DefaultConfiguration()
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NVGTBUILD_TEST_A=fromfile\nNVGTBUILD_TEST_B=fromfile\n"), 0644))
	t.Setenv("NVGTBUILD_TEST_B", "fromenv")
	t.Cleanup(func() { os.Unsetenv("NVGTBUILD_TEST_A") })

	require.NoError(t, Init(""))
	require.Equal(t, "fromfile", os.Getenv("NVGTBUILD_TEST_A"))
	require.Equal(t, "fromenv", os.Getenv("NVGTBUILD_TEST_B"))
}
