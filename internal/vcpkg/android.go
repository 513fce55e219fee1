package vcpkg

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

var ErrNDKNotFound = errors.New("Android NDK not found, please install it on this system to build for android")

var ndkEnvVars = []string{"ANDROID_NDK_ROOT", "ANDROID_NDK_HOME", "ANDROID_NDK", "NDK_ROOT"}

// FindNDK looks for an Android NDK through the usual environment variables,
// then in the default SDK locations for goos. getenv is os.Getenv outside tests.
func FindNDK(goos, home string, getenv func(string) string) string {
	for _, v := range ndkEnvVars {
		if p := getenv(v); p != "" {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	var candidates []string
	switch goos {
	case "windows":
		if la := getenv("LOCALAPPDATA"); la != "" {
			candidates = append(candidates, filepath.Join(la, "Android", "Sdk", "ndk"))
		}
		candidates = append(candidates,
			filepath.Join(home, "AppData", "Local", "Android", "Sdk", "ndk"),
			filepath.Join(`C:\`, "Android", "sdk", "ndk"))
	case "darwin":
		candidates = append(candidates, filepath.Join(home, "Library", "Android", "sdk", "ndk"))
	default:
		candidates = append(candidates,
			filepath.Join(home, "Android", "Sdk", "ndk"),
			filepath.Join("/opt", "android-sdk", "ndk"))
	}

	for _, base := range candidates {
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			ndk := filepath.Join(base, e.Name())
			if _, err := os.Stat(filepath.Join(ndk, "source.properties")); err == nil {
				return ndk
			}
		}
	}
	return ""
}

type AndroidOptions struct {
	AngelscriptNC      bool
	OfficialSteamAudio bool

	// GitHub is used to find the Steam Audio release, github.NewClient(nil) when nil.
	GitHub *github.Client
	HTTP   *http.Client
}

func androidStaticPackages(opts AndroidOptions) []string {
	as := "angelscript"
	if opts.AngelscriptNC {
		as = "angelscript-nc"
	}
	return []string{"enet6[*]", "libflac", "curl[http2,openssl]", "libffi", "miniupnpc[*]", "libogg", "opus[*]", "libvorbis[*]",
		"poco[crypto,net,netssl,json,util,xml,zip,encodings,mongodb,redis,jwt,prometheus,sevenzip]", as}
}

func androidDynamicPackages(opts AndroidOptions) []string {
	pkgs := []string{"sdl3[vulkan]", "sdl3-ttf[core,svg]", "sdl3-image[*]"}
	if opts.OfficialSteamAudio {
		pkgs = append(pkgs, "steam-audio")
	}
	return append(pkgs, "freetype[core,bzip2,error-strings,png,subpixel-rendering,zlib]")
}

// BuildAndroid installs the android package sets in classic mode, merges them
// into RepoRoot/build/packages/droiddev and archives it.
func (b *Builder) BuildAndroid(ctx context.Context, opts AndroidOptions) (string, error) {
	home, _ := os.UserHomeDir()
	ndk := FindNDK(b.GOOS, home, os.Getenv)
	if ndk == "" {
		return "", ErrNDKNotFound
	}
	if os.Getenv("ANDROID_NDK_HOME") == "" {
		os.Setenv("ANDROID_NDK_HOME", ndk)
	}
	if err := b.Bootstrap(ctx); err != nil {
		return "", err
	}

	tlogger.Info("msg", "Building android packages, this will take a while", "ndk", ndk)
	sets := []struct {
		triplet string
		pkgs    []string
	}{
		{"arm64-android", androidStaticPackages(opts)},
		{"arm64-android-dynamic", androidDynamicPackages(opts)},
	}
	for _, set := range sets {
		args := append([]string{"--classic", "--triplet", set.triplet}, set.pkgs...)
		if err := b.install(ctx, args...); err != nil {
			return "", fmt.Errorf("android packages installation failed: %w", err)
		}
	}

	outDir := filepath.Join(b.RepoRoot, "build", "packages", "droiddev")
	tlogger.Info("msg", "Generating droiddev package", "path", outDir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	for _, set := range sets {
		for _, sub := range []string{"include", "lib", "debug"} {
			src := filepath.Join(b.classicInstalled(set.triplet), sub)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if err := copyTree(src, filepath.Join(outDir, sub)); err != nil {
				return "", err
			}
		}
	}

	if opts.OfficialSteamAudio {
		if err := FetchSteamAudio(ctx, opts.GitHub, opts.HTTP, outDir); err != nil {
			return "", err
		}
	}

	return Archive(outDir)
}

var steamAudioFiles = map[string]string{
	"steamaudio/lib/android-armv8/libphonon.so": "lib",
	"steamaudio/include/phonon.h":               "include",
	"steamaudio/include/phonon_interfaces.h":    "include",
	"steamaudio/include/phonon_version.h":       "include",
}

// FetchSteamAudio downloads the latest official Steam Audio release and
// extracts the android library and its headers into outDir.
func FetchSteamAudio(ctx context.Context, gh *github.Client, hc *http.Client, outDir string) error {
	if gh == nil {
		gh = github.NewClient(nil)
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	release, _, err := gh.Repositories.GetLatestRelease(ctx, "ValveSoftware", "steam-audio")
	if err != nil {
		return fmt.Errorf("looking up steam audio release: %w", err)
	}
	var url string
	for _, asset := range release.Assets {
		name := asset.GetName()
		if strings.HasPrefix(name, "steamaudio_") && strings.HasSuffix(name, ".zip") {
			url = asset.GetBrowserDownloadURL()
			break
		}
	}
	if url == "" {
		return errors.New("official steam audio zip asset could not be found")
	}

	tlogger.Info("msg", "Downloading steam audio", "url", url, "release", release.GetTagName())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	found := 0
	for _, f := range zr.File {
		sub, ok := steamAudioFiles[f.Name]
		if !ok {
			continue
		}
		if err := extractZipFile(f, filepath.Join(outDir, sub, path.Base(f.Name))); err != nil {
			return err
		}
		found++
	}
	if found != len(steamAudioFiles) {
		return fmt.Errorf("steam audio archive is missing files, found %d of %d", found, len(steamAudioFiles))
	}
	return nil
}

func extractZipFile(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
