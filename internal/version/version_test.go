package version

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		number   string
		typ      string
		under    string
		filename string
	}{
		{"0.89.1-beta\n", "0.89.1", "beta", "0.89.1_beta", "0.89.1_beta"},
		{"1.0.0-stable", "1.0.0", "stable", "1.0.0_stable", "1.0.0"},
		{"  0.90.0-dev  ", "0.90.0", "dev", "0.90.0_dev", "0.90.0_dev"},
	}
	for _, tt := range tests {
		v, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.number, v.Number())
		require.Equal(t, tt.typ, v.Type)
		require.Equal(t, tt.under, v.Underscored())
		require.Equal(t, tt.filename, v.Filename())
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{"", "1.2.3", "1.2-beta", "1.2.x-beta", "1.2.3-", "1.2.3-beta-2", "-1.2.3-beta"} {
		_, err := Parse(in)
		require.True(t, errors.Is(err, ErrMalformed), in)
	}
}

func TestWriteCPP(t *testing.T) {
	v, err := Parse("0.89.1-beta")
	require.NoError(t, err)
	bt := time.Date(2025, time.March, 7, 16, 5, 6, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteCPP(&buf, v, BuildInfo{CommitHash: "abc123", BuildTime: bt}))

	out := buf.String()
	require.Contains(t, out, "#include \"version.h\"\n")
	require.Contains(t, out, "const std::string NVGT_VERSION = \"0.89.1-beta\";\n")
	require.Contains(t, out, "const std::string NVGT_VERSION_COMMIT_HASH = \"abc123\";\n")
	require.Contains(t, out, "const std::string NVGT_VERSION_BUILD_TIME = \"Friday, March 07, 2025 at 04:05:06 PM UTC\";\n")
	require.Contains(t, out, "unsigned int NVGT_VERSION_BUILD_TIMESTAMP = 1741363506;\n")
	require.Contains(t, out, "int NVGT_VERSION_MAJOR = 0;\nint NVGT_VERSION_MINOR = 89;\nint NVGT_VERSION_PATCH = 1;\n")
	require.Contains(t, out, "const std::string NVGT_VERSION_TYPE = \"beta\";\n")
}

func TestWriteISS(t *testing.T) {
	v, err := Parse("1.0.0-stable")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteISS(&buf, v, Stubs{Android: true, Docs: true}))
	require.Equal(t, "; This is an automatically generated header containing version constants.\n\n"+
		"#define NVGTVer \"1.0.0\"\n"+
		"#define NVGTVerString \"1.0.0-stable\"\n"+
		"#define NVGTVerFilenameString \"1.0.0\"\n"+
		"#define have_android_stubs\n#define have_full_android_stubs\n"+
		"#define have_docs\n", buf.String())
}

func TestWriteNSIS(t *testing.T) {
	v, err := Parse("0.89.1-beta")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteNSIS(&buf, v, Stubs{Linux: true, Windows: true, Docs: true}))
	require.Equal(t, "; This is an automatically generated header containing version constants.\n\n"+
		"!define ver 0.89.1\n"+
		"!define ver_string 0.89.1-beta\n"+
		"!define ver_filename_string 0.89.1_beta\n"+
		"!define have_linux_stubs\n"+
		"!define have_windows_stubs\n", buf.String())
}

func TestDetectStubs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "release", "stub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "release", "stub", "nvgt_mac.bin"), nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "doc", "nvgt.chm"), 0755)) // a directory is not a chm

	require.Equal(t, Stubs{MacOS: true}, DetectStubs(root))
}

func TestAppendGitHubEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "github_env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER=1\n"), 0644))
	v, err := Parse("0.89.1-beta")
	require.NoError(t, err)

	require.NoError(t, AppendGitHubEnv(path, v))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "OTHER=1\nnvgt_version=0.89.1_beta\n", string(b))
}

func TestCommitHashOutsideRepository(t *testing.T) {
	hash, err := CommitHash(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, ReleaseCommit, hash)
}

func TestCommitHashFromHead(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "version"), []byte("0.89.1-beta\n"), 0644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("version")
	require.NoError(t, err)
	commit, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	hash, err := CommitHash(root)
	require.NoError(t, err)
	require.Equal(t, commit.String(), hash)
}
