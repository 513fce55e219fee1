package vcpkg

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/nvgt/nvgtbuild/internal/runner"
)

func touch(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(filepath.Base(p)), 0644))
	return p
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestDefaultTriplet(t *testing.T) {
	for goos, want := range map[string]string{"windows": "x64-windows", "darwin": "arm64-osx", "linux": "x64-linux"} {
		got, err := DefaultTriplet(goos)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := DefaultTriplet("plan9")
	require.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestDevBasename(t *testing.T) {
	require.Equal(t, "windev", DevBasename("x64-windows"))
	require.Equal(t, "windev", DevBasename("arm64-windows-static"))
	require.Equal(t, "macosdev", DevBasename("arm64-osx"))
	require.Equal(t, "lindev", DevBasename("x64-linux"))
	require.Equal(t, "droidev", DevBasename("arm64-android"))
	require.Equal(t, "iosdev", DevBasename("arm64-ios"))
	require.Equal(t, "", DevBasename("wasm32-emscripten"))
}

func TestFixDebug(t *testing.T) {
	out := t.TempDir()
	for _, name := range []string{"SDL3d.lib", "ogg-d.lib", "libzstd.a", "reactphysics3d.lib", "opus.lib", "libpngd.a"} {
		touch(t, out, "debug", "lib", name)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(out, "debug", "lib", "cmaked"), 0755))

	require.NoError(t, FixDebug(out))
	require.Equal(t, []string{"SDL3.lib", "cmaked", "libpng.a", "libzstd.a", "ogg.lib", "opus.lib", "reactphysics3d.lib"},
		listDir(t, filepath.Join(out, "debug", "lib")))
}

func TestWindowsLibRename(t *testing.T) {
	out := t.TempDir()
	for _, lib := range libDirs {
		touch(t, out, lib, "libcrypto.lib")
		touch(t, out, lib, "zlib.lib")
		touch(t, out, lib, "angelscript_nc.lib")
		touch(t, out, lib, "custommt.lib")
	}

	require.NoError(t, WindowsLibRename(out, map[string]string{"custommt": "custom"}))
	for _, lib := range libDirs {
		require.Equal(t, []string{"angelscript-nc.lib", "angelscript_nc.lib", "crypto.lib", "custom.lib", "z.lib"},
			listDir(t, filepath.Join(out, lib)))
	}
}

func TestRemoveDuplicates(t *testing.T) {
	out := t.TempDir()
	touch(t, out, "lib", "libgit2.so")
	touch(t, out, "lib", "libgit2.so.1.7")
	touch(t, out, "lib", "libgit2.so.1.7.2")
	touch(t, out, "lib", "libarchive.a")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "debug", "lib"), 0755))

	require.NoError(t, RemoveDuplicates(out))
	require.Equal(t, []string{"libarchive.a", "libgit2.so"}, listDir(t, filepath.Join(out, "lib")))
}

func TestStripBuildMetadata(t *testing.T) {
	out := t.TempDir()
	touch(t, out, "lib", "cmake", "x.cmake")
	touch(t, out, "lib", "pkgconfig", "x.pc")
	touch(t, out, "lib", "x.a")

	require.NoError(t, StripBuildMetadata(out))
	require.Equal(t, []string{"x.a"}, listDir(t, filepath.Join(out, "lib")))
}

func TestArchiveWritesZipAndChecksum(t *testing.T) {
	root := t.TempDir()
	dev := filepath.Join(root, "lindev")
	touch(t, dev, "include", "a.h")
	touch(t, dev, "lib", "liba.a")

	zipPath, err := Archive(dev)
	require.NoError(t, err)
	require.Equal(t, dev+".zip", zipPath)

	data, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	sum := blake2b.Sum512(data)
	checksum, err := os.ReadFile(zipPath + ".blake2b")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(sum[:]), string(checksum))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{"include/", "include/a.h", "lib/", "lib/liba.a"}, names)
}

func newTestBuilder(t *testing.T, goos string) (*Builder, *runner.Recorder) {
	t.Helper()
	root := t.TempDir()
	b := NewBuilder(filepath.Join(root, "vcpkg"), root)
	b.GOOS = goos
	rec := &runner.Recorder{}
	b.Run = rec
	touch(t, b.Executable())
	return b, rec
}

func TestBuildAssemblesDevPackage(t *testing.T) {
	b, rec := newTestBuilder(t, "linux")
	installed := b.manifestInstalled("x64-linux")
	rec.Hook = func(c runner.Cmd) ([]byte, error) {
		touch(t, installed, "include", "enet.h")
		touch(t, installed, "lib", "libgit2.so")
		touch(t, installed, "lib", "libgit2.so.1.7")
		touch(t, installed, "lib", "pkgconfig", "git2.pc")
		touch(t, installed, "debug", "lib", "libogg-d.a")
		return nil, nil
	}

	require.NoError(t, b.Build(context.Background(), "", true, ""))

	require.Equal(t, []string{fmt.Sprintf("%s install --triplet x64-linux --x-manifest-root %s", b.Executable(), b.Dir)}, rec.Commands())
	dev := filepath.Join(b.RepoRoot, "lindev")
	require.Equal(t, []string{"libgit2.so"}, listDir(t, filepath.Join(dev, "lib")))
	require.Equal(t, []string{"libogg.a"}, listDir(t, filepath.Join(dev, "debug", "lib")))
	require.FileExists(t, filepath.Join(dev, "include", "enet.h"))
	require.NoDirExists(t, filepath.Join(dev, "bin"))
	require.FileExists(t, dev+".zip")
	require.FileExists(t, dev+".zip.blake2b")
}

func TestBuildReportsInstallFailure(t *testing.T) {
	b, rec := newTestBuilder(t, "linux")
	rec.Hook = func(runner.Cmd) ([]byte, error) {
		return []byte("boom"), &runner.Error{ExitCode: 2, Err: errors.New("exit status 2")}
	}

	err := b.Build(context.Background(), "x64-linux", false, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "x64-linux")
	var rerr *runner.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, 2, rerr.ExitCode)
}

func TestBootstrapRunsScriptWhenMissing(t *testing.T) {
	root := t.TempDir()
	b := NewBuilder(filepath.Join(root, "vcpkg"), root)
	b.GOOS = "windows"
	rec := &runner.Recorder{}
	b.Run = rec

	require.NoError(t, b.Bootstrap(context.Background()))
	require.Equal(t, []string{filepath.Join(b.Dir, "bin", "bootstrap-vcpkg.bat")}, rec.Commands())
}

func TestMacOSFatBinaries(t *testing.T) {
	b, rec := newTestBuilder(t, "darwin")
	out := t.TempDir()
	for _, lib := range []string{"libcrypto.a", "libffi.a", "libssl.a"} {
		touch(t, out, "lib", lib)
		touch(t, out, "debug", "lib", lib)
	}

	require.NoError(t, b.MacOSFatBinaries(context.Background(), out))
	cmds := rec.Commands()
	require.Len(t, cmds, 7)
	require.Contains(t, cmds[0], "install --classic --triplet x64-osx")
	require.True(t, strings.HasSuffix(cmds[0], "libffi openssl"))
	require.Equal(t, fmt.Sprintf("lipo -create %s %s -output %s",
		filepath.Join(b.Dir, "bin", "installed", "x64-osx", "lib", "libssl.a"),
		filepath.Join(b.Dir, "vcpkg_installed", "arm64-osx", "lib", "libssl.a"),
		filepath.Join(out, "lib", "libssl.a")), cmds[6])
}

func TestFindNDK(t *testing.T) {
	home := t.TempDir()
	ndk := filepath.Join(home, "Android", "Sdk", "ndk", "27.0.1")
	touch(t, ndk, "source.properties")
	noenv := func(string) string { return "" }

	require.Equal(t, ndk, FindNDK("linux", home, noenv))
	require.Equal(t, "", FindNDK("darwin", home, noenv))

	explicit := t.TempDir()
	env := func(k string) string {
		if k == "ANDROID_NDK" {
			return explicit
		}
		return ""
	}
	require.Equal(t, explicit, FindNDK("darwin", home, env))
}

func steamAudioZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name := range steamAudioFiles {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(name))
		require.NoError(t, err)
	}
	w, err := zw.Create("steamaudio/lib/windows-x64/phonon.dll")
	require.NoError(t, err)
	_, err = w.Write([]byte("dll"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func steamAudioServer(t *testing.T, assets string, archive []byte) (*github.Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/repos/ValveSoftware/steam-audio/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name":"v4.6.0","assets":[%s]}`, strings.ReplaceAll(assets, "SERVER", srv.URL))
	})
	mux.HandleFunc("/sdk.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})

	gh := github.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base
	return gh, srv
}

func TestFetchSteamAudio(t *testing.T) {
	gh, srv := steamAudioServer(t,
		`{"name":"steamaudio_fmod_4.6.0.tar.gz","browser_download_url":"SERVER/fmod.tar.gz"},{"name":"steamaudio_4.6.0.zip","browser_download_url":"SERVER/sdk.zip"}`,
		steamAudioZip(t))

	out := t.TempDir()
	require.NoError(t, FetchSteamAudio(context.Background(), gh, srv.Client(), out))
	require.Equal(t, []string{"libphonon.so"}, listDir(t, filepath.Join(out, "lib")))
	require.Equal(t, []string{"phonon.h", "phonon_interfaces.h", "phonon_version.h"}, listDir(t, filepath.Join(out, "include")))
}

func TestFetchSteamAudioWithoutZipAsset(t *testing.T) {
	gh, srv := steamAudioServer(t, `{"name":"steamaudio_4.6.0.tar.gz","browser_download_url":"SERVER/sdk.tar.gz"}`, nil)

	err := FetchSteamAudio(context.Background(), gh, srv.Client(), t.TempDir())
	require.ErrorContains(t, err, "could not be found")
}

func TestAndroidPackageSets(t *testing.T) {
	static := androidStaticPackages(AndroidOptions{})
	require.Contains(t, static, "angelscript")
	require.NotContains(t, static, "angelscript-nc")
	require.Contains(t, androidStaticPackages(AndroidOptions{AngelscriptNC: true}), "angelscript-nc")

	require.NotContains(t, androidDynamicPackages(AndroidOptions{}), "steam-audio")
	dynamic := androidDynamicPackages(AndroidOptions{OfficialSteamAudio: true})
	require.Contains(t, dynamic, "steam-audio")
	require.Equal(t, "sdl3[vulkan]", dynamic[0])
	require.True(t, strings.HasPrefix(dynamic[len(dynamic)-1], "freetype["))
}

func TestBuildAndroidMergesBothTriplets(t *testing.T) {
	ndk := t.TempDir()
	touch(t, ndk, "source.properties")
	t.Setenv("ANDROID_NDK_ROOT", ndk)
	t.Setenv("ANDROID_NDK_HOME", ndk)

	b, rec := newTestBuilder(t, "linux")
	rec.Hook = func(c runner.Cmd) ([]byte, error) {
		switch {
		case strings.Contains(c.String(), "--triplet arm64-android-dynamic"):
			touch(t, b.classicInstalled("arm64-android-dynamic"), "lib", "libSDL3.so")
			touch(t, b.classicInstalled("arm64-android-dynamic"), "include", "SDL3", "SDL.h")
		case strings.Contains(c.String(), "--triplet arm64-android"):
			touch(t, b.classicInstalled("arm64-android"), "lib", "libogg.a")
			touch(t, b.classicInstalled("arm64-android"), "debug", "lib", "libogg.a")
			touch(t, b.classicInstalled("arm64-android"), "include", "ogg", "ogg.h")
		}
		return nil, nil
	}

	archive, err := b.BuildAndroid(context.Background(), AndroidOptions{AngelscriptNC: true})
	require.NoError(t, err)

	cmds := rec.Commands()
	require.Len(t, cmds, 2)
	require.True(t, strings.HasPrefix(cmds[0], b.Executable()+" install --classic --triplet arm64-android enet6[*]"))
	require.True(t, strings.HasSuffix(cmds[0], " angelscript-nc"))
	require.True(t, strings.HasPrefix(cmds[1], b.Executable()+" install --classic --triplet arm64-android-dynamic sdl3[vulkan]"))
	require.NotContains(t, cmds[1], "steam-audio")

	out := filepath.Join(b.RepoRoot, "build", "packages", "droiddev")
	require.Equal(t, []string{"libSDL3.so", "libogg.a"}, listDir(t, filepath.Join(out, "lib")))
	require.Equal(t, []string{"SDL3", "ogg"}, listDir(t, filepath.Join(out, "include")))
	require.FileExists(t, filepath.Join(out, "debug", "lib", "libogg.a"))
	require.Equal(t, out+".zip", archive)
	require.FileExists(t, out+".zip.blake2b")
}

func TestBuildAndroidWithoutNDK(t *testing.T) {
	for _, v := range ndkEnvVars {
		t.Setenv(v, "")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOCALAPPDATA", "")

	b, rec := newTestBuilder(t, "darwin")
	_, err := b.BuildAndroid(context.Background(), AndroidOptions{})
	require.ErrorIs(t, err, ErrNDKNotFound)
	require.Empty(t, rec.Commands())
}
