package version

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// BuildTimeLayout renders like "Friday, March 07, 2025 at 04:05:06 PM CET".
const BuildTimeLayout = "Monday, January 02, 2006 at 03:04:05 PM MST"

type BuildInfo struct {
	CommitHash string
	BuildTime  time.Time
}

// Stubs lists the optional release artifacts installers can bundle.
type Stubs struct {
	Android bool
	Linux   bool
	MacOS   bool
	Windows bool
	Docs    bool
}

// DetectStubs looks for release/stub/nvgt_*.bin and doc/nvgt.chm under root.
func DetectStubs(root string) Stubs {
	isFile := func(parts ...string) bool {
		fi, err := os.Stat(filepath.Join(append([]string{root}, parts...)...))
		return err == nil && fi.Mode().IsRegular()
	}
	return Stubs{
		Android: isFile("release", "stub", "nvgt_android.bin"),
		Linux:   isFile("release", "stub", "nvgt_linux.bin"),
		MacOS:   isFile("release", "stub", "nvgt_mac.bin"),
		Windows: isFile("release", "stub", "nvgt_windows.bin"),
		Docs:    isFile("doc", "nvgt.chm"),
	}
}

// WriteCPP writes the body of src/version.cpp.
func WriteCPP(w io.Writer, v Version, info BuildInfo) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "// Auto-generated code containing version information and other constants retrieved from the system at build time.\n\n")
	fmt.Fprint(bw, "#include \"version.h\"\n")
	fmt.Fprintf(bw, "const std::string NVGT_VERSION = \"%s\";\n", v)
	fmt.Fprintf(bw, "const std::string NVGT_VERSION_COMMIT_HASH = \"%s\";\n", info.CommitHash)
	fmt.Fprintf(bw, "const std::string NVGT_VERSION_BUILD_TIME = \"%s\";\n", info.BuildTime.Format(BuildTimeLayout))
	fmt.Fprintf(bw, "unsigned int NVGT_VERSION_BUILD_TIMESTAMP = %d;\n", info.BuildTime.Unix())
	fmt.Fprintf(bw, "int NVGT_VERSION_MAJOR = %d;\n", v.Major)
	fmt.Fprintf(bw, "int NVGT_VERSION_MINOR = %d;\n", v.Minor)
	fmt.Fprintf(bw, "int NVGT_VERSION_PATCH = %d;\n", v.Patch)
	fmt.Fprintf(bw, "const std::string NVGT_VERSION_TYPE = \"%s\";\n", v.Type)
	return bw.Flush()
}

// WriteLastBuild writes the build timestamp consumed by the build system's
// incremental checks.
func WriteLastBuild(path string, info BuildInfo) error {
	return os.WriteFile(path, []byte(strconv.FormatInt(info.BuildTime.Unix(), 10)), 0644)
}

// WriteISS writes the Inno Setup include (nvgt_version.ish).
func WriteISS(w io.Writer, v Version, stubs Stubs) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "; This is an automatically generated header containing version constants.\n\n")
	fmt.Fprintf(bw, "#define NVGTVer \"%s\"\n", v.Number())
	fmt.Fprintf(bw, "#define NVGTVerString \"%s\"\n", v)
	fmt.Fprintf(bw, "#define NVGTVerFilenameString \"%s\"\n", v.Filename())
	if stubs.Android {
		fmt.Fprint(bw, "#define have_android_stubs\n#define have_full_android_stubs\n")
	}
	if stubs.Linux {
		fmt.Fprint(bw, "#define have_linux_stubs\n")
	}
	if stubs.MacOS {
		fmt.Fprint(bw, "#define have_macos_stubs\n")
	}
	if stubs.Windows {
		fmt.Fprint(bw, "#define have_windows_stubs\n")
	}
	if stubs.Docs {
		fmt.Fprint(bw, "#define have_docs\n")
	}
	return bw.Flush()
}

// WriteNSIS writes the NSIS include (nvgt_version.nsh). NSIS builds do not
// bundle the chm, so Stubs.Docs is ignored.
func WriteNSIS(w io.Writer, v Version, stubs Stubs) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "; This is an automatically generated header containing version constants.\n\n")
	fmt.Fprintf(bw, "!define ver %s\n", v.Number())
	fmt.Fprintf(bw, "!define ver_string %s\n", v)
	fmt.Fprintf(bw, "!define ver_filename_string %s\n", v.Filename())
	if stubs.Android {
		fmt.Fprint(bw, "!define have_android_stubs\n")
	}
	if stubs.Linux {
		fmt.Fprint(bw, "!define have_linux_stubs\n")
	}
	if stubs.MacOS {
		fmt.Fprint(bw, "!define have_macos_stubs\n")
	}
	if stubs.Windows {
		fmt.Fprint(bw, "!define have_windows_stubs\n")
	}
	return bw.Flush()
}

// AppendGitHubEnv appends nvgt_version to the file named by $GITHUB_ENV.
func AppendGitHubEnv(path string, v Version) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f, "nvgt_version=%s\n", v.Underscored())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
