package vcpkg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	cp "github.com/otiai10/copy"

	"github.com/nvgt/nvgtbuild/internal/runner"
	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

// Builder drives the vcpkg checkout at Dir (the directory holding vcpkg.json,
// with the tool itself under bin/) and lays its output out as dev packages.
type Builder struct {
	Dir             string
	RepoRoot        string
	OverlayPorts    string
	OverlayTriplets string
	ExtraRenames    map[string]string

	Run  runner.Runner
	GOOS string
}

func NewBuilder(dir, repoRoot string) *Builder {
	return &Builder{
		Dir:      dir,
		RepoRoot: repoRoot,
		Run:      runner.Exec{},
		GOOS:     runtime.GOOS,
	}
}

func (b *Builder) binDir() string {
	return filepath.Join(b.Dir, "bin")
}

func (b *Builder) Executable() string {
	if b.GOOS == "windows" {
		return filepath.Join(b.binDir(), "vcpkg.exe")
	}
	return filepath.Join(b.binDir(), "vcpkg")
}

// manifestInstalled is where manifest mode installs packages.
func (b *Builder) manifestInstalled(triplet string) string {
	return filepath.Join(b.Dir, "vcpkg_installed", triplet)
}

// classicInstalled is where --classic installs packages.
func (b *Builder) classicInstalled(triplet string) string {
	return filepath.Join(b.binDir(), "installed", triplet)
}

// Bootstrap builds the vcpkg tool unless it already exists.
func (b *Builder) Bootstrap(ctx context.Context) error {
	if fi, err := os.Stat(b.Executable()); err == nil && fi.Mode().IsRegular() {
		return nil
	}
	tlogger.Info("msg", "Bootstrapping vcpkg", "path", b.binDir())

	script := filepath.Join(b.binDir(), "bootstrap-vcpkg.sh")
	if b.GOOS == "windows" {
		script = filepath.Join(b.binDir(), "bootstrap-vcpkg.bat")
	}
	if _, err := b.Run.Run(ctx, runner.Command(script).InDir(b.binDir())); err != nil {
		return fmt.Errorf("bootstrapping vcpkg: %w", err)
	}
	return nil
}

func (b *Builder) install(ctx context.Context, args ...string) error {
	_, err := b.Run.Run(ctx, runner.Cmd{Exe: b.Executable(), Args: append([]string{"install"}, args...), Env: b.overlayEnv()})
	return err
}

func (b *Builder) overlayPorts() string {
	if b.OverlayPorts != "" {
		return b.OverlayPorts
	}
	return filepath.Join(b.Dir, "ports")
}

func (b *Builder) overlayTriplets() string {
	if b.OverlayTriplets != "" {
		return b.OverlayTriplets
	}
	return filepath.Join(b.Dir, "triplets")
}

func (b *Builder) overlayEnv() []string {
	return []string{
		"VCPKG_OVERLAY_PORTS=" + b.overlayPorts(),
		"VCPKG_OVERLAY_TRIPLETS=" + b.overlayTriplets(),
	}
}

// Build installs the manifest for triplet and assembles its dev package in
// outDir (RepoRoot/<DevBasename> when empty). With archive set, a zip and its
// BLAKE2b checksum are written next to the dev package.
func (b *Builder) Build(ctx context.Context, triplet string, archive bool, outDir string) error {
	if triplet == "" {
		t, err := DefaultTriplet(b.GOOS)
		if err != nil {
			return err
		}
		triplet = t
	}
	if err := b.Bootstrap(ctx); err != nil {
		return err
	}

	tlogger.Info("msg", "Building packages", "triplet", triplet)
	if err := b.install(ctx, "--triplet", triplet, "--x-manifest-root", b.Dir); err != nil {
		return fmt.Errorf("building packages for %s: %w", triplet, err)
	}

	if outDir == "" {
		outDir = filepath.Join(b.RepoRoot, DevBasename(triplet))
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		tlogger.Error("msg", "Failed to create dev package folder", "path", outDir, "err", err)
		return err
	}

	installed := b.manifestInstalled(triplet)
	trees := []struct {
		src, dst string
		optional bool
	}{
		{"bin", "bin", true},
		{filepath.Join("debug", "bin"), filepath.Join("debug", "bin"), true},
		{filepath.Join("debug", "lib"), filepath.Join("debug", "lib"), false},
		{"include", "include", false},
		{"lib", "lib", false},
	}
	for _, tr := range trees {
		src := filepath.Join(installed, tr.src)
		if _, err := os.Stat(src); err != nil && tr.optional {
			continue
		}
		if err := copyTree(src, filepath.Join(outDir, tr.dst)); err != nil {
			return err
		}
	}

	if err := FixDebug(outDir); err != nil {
		return err
	}
	switch {
	case triplet == "arm64-osx":
		if err := b.MacOSFatBinaries(ctx, outDir); err != nil {
			return err
		}
	case triplet == "x64-windows":
		if err := WindowsLibRename(outDir, b.ExtraRenames); err != nil {
			return err
		}
	}
	if isUnixLike(triplet) {
		if err := RemoveDuplicates(outDir); err != nil {
			return err
		}
	}
	if err := StripBuildMetadata(outDir); err != nil {
		return err
	}

	tlogger.Info("msg", "Dev package ready", "triplet", triplet, "path", outDir)
	if archive {
		_, err := Archive(outDir)
		return err
	}
	return nil
}

// MacOSFatBinaries rebuilds libffi and openssl for x64-osx and merges them with
// the arm64 builds already in outDir into universal archives.
func (b *Builder) MacOSFatBinaries(ctx context.Context, outDir string) error {
	args := []string{"--classic", "--triplet", "x64-osx",
		"--overlay-ports=" + b.overlayPorts(),
		"--overlay-triplets=" + b.overlayTriplets(),
		"libffi", "openssl"}
	if err := b.install(ctx, args...); err != nil {
		return fmt.Errorf("building libffi and openssl for x64-osx: %w", err)
	}

	for _, lib := range []string{"libcrypto.a", "libffi.a", "libssl.a"} {
		for _, sub := range []string{filepath.Join("debug", "lib"), "lib"} {
			dst := filepath.Join(outDir, sub, lib)
			if err := os.Remove(dst); err != nil {
				return err
			}
			_, err := b.Run.Run(ctx, runner.Command("lipo", "-create",
				filepath.Join(b.classicInstalled("x64-osx"), sub, lib),
				filepath.Join(b.manifestInstalled("arm64-osx"), sub, lib),
				"-output", dst))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// copyTree merges src into dst, following symlinks the way the dev packages
// have always been laid out.
func copyTree(src, dst string) error {
	err := cp.Copy(src, dst, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction { return cp.Deep },
	})
	if err != nil {
		tlogger.Error("msg", "Failed to copy tree", "src", src, "dst", dst, "err", err)
	}
	return err
}
