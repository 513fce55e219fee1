package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
	"github.com/nvgt/nvgtbuild/pkg/config"
)

var CLI struct {
	Version  CommandVersion  `cmd:"" help:"Generate version headers from the version file."`
	Deps     CommandDeps     `cmd:"" help:"Build vcpkg dependencies into dev packages."`
	Droiddev CommandDroiddev `cmd:"" help:"Build the android dev package."`
	Dmg      CommandDmg      `cmd:"" help:"Pack the release folder into a macOS disk image."`
	Upload   CommandUpload   `cmd:"" help:"Upload the windows installer to the download mirror."`
	Docs     CommandDocs     `cmd:"" aliases:"doc" help:"Generate the documentation."`
	Osl      CommandOsl      `cmd:"" help:"Generate the third party code attributions."`
	Tzgen    CommandTzgen    `cmd:"" help:"Generate the timezone table from zoneinfo."`
	Serve    CommandServe    `cmd:"" aliases:"s" help:"Preview the html documentation with live reload."`
	Crypt    CommandCrypt    `cmd:"" help:"Encrypt or decrypt data the way NVGT scripts do."`
	Asrepl   CommandAsrepl   `cmd:"" help:"Apply repls.txt renames to the AngelScript addon sources."`

	ConfigFile string `name:"config" short:"c" help:"configuration file path (optional)"`
	Root       string `default:"." type:"existingdir" help:"NVGT repository root."`
	Verbose    int    `short:"v" help:"Print verbose output." type:"counter"`
}

func main() {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx := kong.Parse(&CLI,
		kong.Name("nvgtbuild"),
		kong.Description("Build, packaging, documentation and release tooling for NVGT."),
		kong.UsageOnError(),
		kong.BindTo(sigCtx, (*context.Context)(nil)),
	)

	applyVerbose(CLI.Verbose)

	err := config.Init(CLI.ConfigFile)
	if err != nil {
		tlogger.Error("msg", "Cannot load configuration", "err", err)
		os.Exit(1)
	}

	err = ctx.Run()
	if err != nil {
		tlogger.Error("msg", "Command failed", "cmd", ctx.Command(), "err", err)
		stop()
		os.Exit(1)
	}
}

func applyVerbose(v int) {
	switch v {
	case 0:
		tlogger.ApplyLogLevel("info")
	case 1:
		tlogger.ApplyLogLevel("debug")
	default:
		tlogger.ApplyLogLevel("all")
	}
}

// rootPath resolves a configured path against the repository root.
func rootPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(CLI.Root, p)
}

// docsPath resolves a configured path against the documentation folder.
func docsPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rootPath(config.Config.Docs.Dir), p)
}
