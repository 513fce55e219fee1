package vcpkg

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

// debugSuffixExcludes end in d without it being a debug marker.
var debugSuffixExcludes = map[string]bool{
	"reactphysics3d": true,
	"zstd":           true,
}

// windowsRenames maps awkward windows library stems to the names the NVGT
// build scripts link against.
var windowsRenames = []struct{ from, to string }{
	{"libcrypto", "crypto"},
	{"libcurl", "curl"},
	{"libexpatMT", "expat"},
	{"libexpatdMT", "expat"},
	{"libssl", "ssl"},
	{"pocoCryptomt", "pocoCrypto"},
	{"pocoEncodingsmt", "pocoEncodings"},
	{"pocoFoundationmt", "pocoFoundation"},
	{"pocoJSONmt", "pocoJSON"},
	{"pocoJWTmt", "pocoJWT"},
	{"pocoMongoDBmt", "pocoMongoDB"},
	{"pocoNetmt", "pocoNet"},
	{"pocoNetSSLmt", "pocoNetSSL"},
	{"pocoPrometheusmt", "pocoPrometheus"},
	{"pocoRedismt", "pocoRedis"},
	{"pocoSevenZipmt", "pocoSevenZip"},
	{"pocoUtilmt", "pocoUtil"},
	{"pocoXMLmt", "pocoXML"},
	{"pocoZipmt", "pocoZip"},
	{"SDL3-static", "SDL3"},
	{"SDL3_image-static", "SDL3_image"},
	{"SDL3_ttf-static", "SDL3_ttf"},
	{"utf8proc_static", "utf8proc"},
	{"zlib", "z"},
}

var libDirs = []string{filepath.Join("debug", "lib"), "lib"}

// FixDebug strips the d (or -d) suffix vcpkg gives some debug libraries so
// they share file names with their release builds.
func FixDebug(outDir string) error {
	dir := filepath.Join(outDir, "debug", "lib")
	entries, err := os.ReadDir(dir)
	if err != nil {
		tlogger.Error("msg", "Failed to list debug libraries", "path", dir, "err", err)
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		stem := strings.TrimSuffix(e.Name(), ext)
		lower := strings.ToLower(stem)
		if !strings.HasSuffix(lower, "d") {
			continue
		}
		if debugSuffixExcludes[strings.TrimPrefix(stem, "lib")] {
			continue
		}
		cut := 1
		if strings.HasSuffix(lower, "-d") {
			cut = 2
		}
		newName := stem[:len(stem)-cut] + ext
		tlogger.Debug("msg", "Renaming debug library", "from", e.Name(), "to", newName)
		if err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(dir, newName)); err != nil {
			return err
		}
	}
	return nil
}

// WindowsLibRename applies the builtin rename table plus extra, then provides
// angelscript-nc.lib next to angelscript_nc.lib.
func WindowsLibRename(outDir string, extra map[string]string) error {
	renames := windowsRenames
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		renames = append(renames, struct{ from, to string }{k, extra[k]})
	}

	for _, lib := range libDirs {
		for _, r := range renames {
			from := filepath.Join(outDir, lib, r.from+".lib")
			if _, err := os.Stat(from); err != nil {
				continue
			}
			if err := os.Rename(from, filepath.Join(outDir, lib, r.to+".lib")); err != nil {
				return err
			}
		}
		src := filepath.Join(outDir, lib, "angelscript_nc.lib")
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(outDir, lib, "angelscript-nc.lib")); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDuplicates keeps only the shortest named copy of libraries that were
// installed once per symlink.
func RemoveDuplicates(outDir string) error {
	for _, lib := range []string{"libarchive", "libgit2"} {
		for _, libdir := range libDirs {
			versions, err := filepath.Glob(filepath.Join(outDir, libdir, lib+"*"))
			if err != nil {
				return err
			}
			if len(versions) < 2 {
				continue
			}
			sort.SliceStable(versions, func(i, j int) bool {
				return len(filepath.Base(versions[i])) < len(filepath.Base(versions[j]))
			})
			for _, v := range versions[1:] {
				tlogger.Debug("msg", "Removing duplicate library", "path", v)
				if err := os.Remove(v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// StripBuildMetadata removes cmake and pkgconfig directories, which only make
// sense inside the vcpkg tree.
func StripBuildMetadata(outDir string) error {
	for _, libdir := range libDirs {
		for _, meta := range []string{"cmake", "pkgconfig"} {
			err := os.RemoveAll(filepath.Join(outDir, libdir, meta))
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
