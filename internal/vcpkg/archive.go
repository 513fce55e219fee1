package vcpkg

import (
	"os"
	"path/filepath"

	"github.com/nvgt/nvgtbuild/internal/helpers"
	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

// Archive zips the content of dir into dir.zip and writes the hex BLAKE2b-512
// digest of the archive to dir.zip.blake2b. It returns the archive path.
func Archive(dir string) (string, error) {
	dir = filepath.Clean(dir)
	zipPath := dir + ".zip"

	if err := helpers.ZipDir(dir, zipPath); err != nil {
		tlogger.Error("msg", "Failed to create archive", "path", zipPath, "err", err)
		return "", err
	}

	sum, err := helpers.FileBLAKE2b(zipPath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(zipPath+".blake2b", []byte(sum), 0644); err != nil {
		return "", err
	}
	tlogger.Info("msg", "Archive written", "path", zipPath, "blake2b", sum)
	return zipPath, nil
}
