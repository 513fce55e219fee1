package bundle

import (
	"context"
	"fmt"
	"os"

	"github.com/nvgt/nvgtbuild/internal/runner"
	"github.com/nvgt/nvgtbuild/internal/tlogger"
	"github.com/nvgt/nvgtbuild/internal/version"
)

func DMGName(v version.Version) string {
	return "nvgt_" + v.Underscored() + ".dmg"
}

// MakeDMG packs srcDir into a disk image with hdiutil.
func MakeDMG(ctx context.Context, run runner.Runner, srcDir, filename string) error {
	fi, err := os.Stat(srcDir)
	if err != nil {
		tlogger.Error("msg", "Release folder not found", "path", srcDir, "err", err)
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", srcDir)
	}

	tlogger.Info("msg", "Creating disk image", "src", srcDir, "file", filename)
	if _, err := run.Run(ctx, runner.Command("hdiutil", "create", "-srcfolder", srcDir, filename)); err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	return nil
}
