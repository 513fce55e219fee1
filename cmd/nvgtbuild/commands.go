package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/nvgt/nvgtbuild/internal/asaddon"
	"github.com/nvgt/nvgtbuild/internal/bundle"
	"github.com/nvgt/nvgtbuild/internal/crypt"
	"github.com/nvgt/nvgtbuild/internal/docgen"
	"github.com/nvgt/nvgtbuild/internal/osl"
	"github.com/nvgt/nvgtbuild/internal/runner"
	"github.com/nvgt/nvgtbuild/internal/tlogger"
	"github.com/nvgt/nvgtbuild/internal/tzgen"
	"github.com/nvgt/nvgtbuild/internal/upload"
	"github.com/nvgt/nvgtbuild/internal/vcpkg"
	"github.com/nvgt/nvgtbuild/internal/version"
	"github.com/nvgt/nvgtbuild/pkg/config"
	"github.com/nvgt/nvgtbuild/pkg/server"
)

func writeOutput(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		tlogger.Error("msg", "Cannot create output", "path", path, "err", err)
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readVersion() (version.Version, error) {
	v, err := version.ReadFile(rootPath(config.Config.VersionFile))
	if err != nil {
		tlogger.Error("msg", "Cannot read version", "path", rootPath(config.Config.VersionFile), "err", err)
	}
	return v, err
}

type CommandVersion struct {
	Target string `arg:"" enum:"cpp,iss,nsis,ci" help:"What to generate: cpp (src/version.cpp), iss (install/nvgt_version.ish), nsis (install/nvgt_version.nsh) or ci (append to $GITHUB_ENV)."`
	Out    string `help:"Output file, defaults to the target's usual location."`
}

func (r *CommandVersion) Run(ctx context.Context) error {
	v, err := readVersion()
	if err != nil {
		return err
	}

	out := r.Out
	switch r.Target {
	case "cpp":
		info, err := version.CurrentBuildInfo(CLI.Root, time.Now())
		if err != nil {
			return err
		}
		if out == "" {
			out = rootPath(filepath.Join("src", "version.cpp"))
		}
		if err := writeOutput(out, func(w io.Writer) error { return version.WriteCPP(w, v, info) }); err != nil {
			return err
		}
		lastbuild := rootPath(filepath.Join("build", "lastbuild"))
		if err := os.MkdirAll(filepath.Dir(lastbuild), 0755); err != nil {
			return err
		}
		if err := version.WriteLastBuild(lastbuild, info); err != nil {
			return err
		}
		tlogger.Info("msg", "Version source written", "path", out, "version", v, "commit", info.CommitHash)
	case "iss":
		if out == "" {
			out = rootPath(filepath.Join("install", "nvgt_version.ish"))
		}
		stubs := version.DetectStubs(CLI.Root)
		if err := writeOutput(out, func(w io.Writer) error { return version.WriteISS(w, v, stubs) }); err != nil {
			return err
		}
		tlogger.Info("msg", "Inno Setup header written", "path", out, "version", v)
	case "nsis":
		if out == "" {
			out = rootPath(filepath.Join("install", "nvgt_version.nsh"))
		}
		stubs := version.DetectStubs(CLI.Root)
		if err := writeOutput(out, func(w io.Writer) error { return version.WriteNSIS(w, v, stubs) }); err != nil {
			return err
		}
		tlogger.Info("msg", "NSIS header written", "path", out, "version", v)
	case "ci":
		if out == "" {
			out = os.Getenv("GITHUB_ENV")
		}
		if out == "" {
			return errors.New("GITHUB_ENV is not set")
		}
		return version.AppendGitHubEnv(out, v)
	}
	return nil
}

func newVcpkgBuilder() *vcpkg.Builder {
	cfg := config.Config.Vcpkg
	b := vcpkg.NewBuilder(rootPath(cfg.Dir), CLI.Root)
	b.OverlayPorts = rootPath(cfg.OverlayPorts)
	b.OverlayTriplets = rootPath(cfg.OverlayTriplets)
	b.ExtraRenames = cfg.Renames
	return b
}

type CommandDeps struct {
	Triplets []string `arg:"" optional:"" help:"vcpkg triplets to build, the host's when omitted."`
	Archive  bool     `help:"Zip each dev package and write its BLAKE2b checksum."`
	OutDir   string   `help:"Dev package folder, <root>/<windev|macosdev|lindev|...> when omitted."`
}

func (r *CommandDeps) Run(ctx context.Context) error {
	b := newVcpkgBuilder()
	triplets := r.Triplets
	if len(triplets) == 0 {
		t, err := vcpkg.DefaultTriplet(b.GOOS)
		if err != nil {
			return err
		}
		triplets = []string{t}
	}
	for _, t := range triplets {
		outDir := r.OutDir
		if outDir != "" && len(triplets) > 1 {
			outDir = filepath.Join(outDir, vcpkg.DevBasename(t))
		}
		if err := b.Build(ctx, t, r.Archive, outDir); err != nil {
			return err
		}
	}
	return nil
}

type CommandDroiddev struct {
	SteamAudio    bool `help:"Install the steam-audio port and add the latest official Steam Audio android library and headers."`
	AngelscriptNC bool `name:"angelscript-nc" help:"Build angelscript without the native calling convention."`
}

func (r *CommandDroiddev) Run(ctx context.Context) error {
	gh := github.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		gh = gh.WithAuthToken(token)
	}
	archive, err := newVcpkgBuilder().BuildAndroid(ctx, vcpkg.AndroidOptions{
		AngelscriptNC:      r.AngelscriptNC,
		OfficialSteamAudio: r.SteamAudio,
		GitHub:             gh,
	})
	if err != nil {
		return err
	}
	tlogger.Info("msg", "Android dev package written", "path", archive)
	return nil
}

type CommandDmg struct {
	Src string `help:"Folder to pack, <root>/release when omitted."`
	Out string `help:"Disk image path, <root>/install/nvgt_<version>.dmg when omitted."`
}

func (r *CommandDmg) Run(ctx context.Context) error {
	v, err := readVersion()
	if err != nil {
		return err
	}
	if r.Src == "" {
		r.Src = rootPath("release")
	}
	if r.Out == "" {
		r.Out = rootPath(filepath.Join("install", bundle.DMGName(v)))
	}
	return bundle.MakeDMG(ctx, runner.Exec{}, r.Src, r.Out)
}

type CommandUpload struct {
	Credentials string `arg:"" optional:"" help:"user:password, read from the configured environment variable when omitted."`
	Dir         string `help:"Folder holding the installer, <root>/install when omitted."`
}

func (r *CommandUpload) Run(ctx context.Context) error {
	cfg := config.Config.FTP
	raw := r.Credentials
	if raw == "" {
		raw = os.Getenv(cfg.CredentialsEnv)
	}
	creds, err := upload.ParseCredentials(raw)
	if err != nil {
		return fmt.Errorf("%w, pass user:password or set %s", err, cfg.CredentialsEnv)
	}
	v, err := readVersion()
	if err != nil {
		return err
	}
	if r.Dir == "" {
		r.Dir = rootPath("install")
	}
	// Failures are logged as warnings and do not fail the release.
	upload.NewUploader(cfg.Host).UploadInstaller(ctx, creds, r.Dir, v)
	return nil
}

func newGenerator(minify bool) *docgen.Generator {
	g := docgen.NewGenerator(rootPath(config.Config.Docs.Dir))
	g.Minify = minify || config.Config.Docs.Minify
	return g
}

type CommandDocs struct {
	DumpTree bool `help:"Print the topic tree as JSON instead of generating."`
	Minify   bool `help:"Minify the html output."`
}

func (r *CommandDocs) Run(ctx context.Context) error {
	g := newGenerator(r.Minify)
	if r.DumpTree {
		return g.DumpTree(os.Stdout)
	}
	return g.Generate(ctx)
}

type CommandOsl struct{}

func (r *CommandOsl) Run(ctx context.Context) error {
	cfg := config.Config.Docs
	d := &osl.Document{
		Dir:         docsPath(cfg.OSLDir),
		AppendixDir: docsPath(filepath.Join(cfg.SrcDir, "appendix")),
		ReleaseDir:  docsPath(cfg.ReleaseDir),
	}
	return d.Generate()
}

type CommandTzgen struct {
	Zoneinfo string `help:"Compiled zoneinfo folder." type:"existingdir"`
	Out      string `help:"Generated C++ file."`
}

func (r *CommandTzgen) Run(ctx context.Context) error {
	if r.Zoneinfo == "" {
		r.Zoneinfo = config.Config.TZData.ZoneInfoDir
	}
	if r.Out == "" {
		r.Out = config.Config.TZData.Output
	}
	_, err := tzgen.Generate(r.Zoneinfo, r.Out, time.Now())
	return err
}

type CommandServe struct {
	Port  int  `short:"p" help:"Listener port"`
	Build bool `default:"true" negatable:"" help:"Build the documentation and rebuild it on changes."`
}

func (r *CommandServe) Run(ctx context.Context) error {
	if r.Port <= 0 {
		r.Port = config.Config.Serve.Port
	}
	serv, err := server.NewServer(newGenerator(false), r.Port)
	if err != nil {
		return err
	}
	return serv.Start(ctx, r.Build)
}

type CommandCrypt struct {
	Mode     string `arg:"" enum:"enc,dec" help:"enc or dec."`
	Password string `required:"" env:"NVGT_CRYPT_PASSWORD" help:"Password the key is derived from."`
	In       string `short:"i" help:"Input file, stdin when omitted."`
	Out      string `short:"o" help:"Output file, stdout when omitted."`
}

func (r *CommandCrypt) Run(ctx context.Context) error {
	var data []byte
	var err error
	if r.In == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(r.In)
	}
	if err != nil {
		return err
	}

	var out []byte
	if r.Mode == "enc" {
		out, err = crypt.Encrypt(data, r.Password)
	} else {
		out, err = crypt.Decrypt(data, r.Password)
	}
	if err != nil {
		return err
	}

	if r.Out == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return writeOutput(r.Out, func(w io.Writer) error {
		_, err := w.Write(out)
		return err
	})
}

type CommandAsrepl struct {
	Dir   string `help:"Addon folder, <root>/ASAddon when omitted."`
	Repls string `help:"Replacement list, <dir>/repls.txt when omitted."`
}

func (r *CommandAsrepl) Run(ctx context.Context) error {
	if r.Dir == "" {
		r.Dir = rootPath("ASAddon")
	}
	if r.Repls == "" {
		r.Repls = filepath.Join(r.Dir, "repls.txt")
	}
	repls, err := asaddon.LoadReplacements(r.Repls)
	if err != nil {
		return err
	}
	changed, err := asaddon.Apply(r.Dir, repls)
	if err != nil {
		return err
	}
	tlogger.Info("msg", "Addon sources updated", "replacements", len(repls), "files", len(changed))
	return nil
}
