package vcpkg

import (
	"errors"
	"strings"
)

var ErrUnknownPlatform = errors.New("unable to determine platform, please pass a triplet explicitly")

// DefaultTriplet picks the triplet used for release builds on goos.
func DefaultTriplet(goos string) (string, error) {
	switch goos {
	case "windows":
		return "x64-windows", nil
	case "darwin":
		return "arm64-osx", nil
	case "linux":
		return "x64-linux", nil
	}
	return "", ErrUnknownPlatform
}

// DevBasename names the dev package directory the NVGT build scripts look for.
func DevBasename(triplet string) string {
	switch {
	case strings.Contains(triplet, "-windows"):
		return "windev"
	case strings.Contains(triplet, "-osx"):
		return "macosdev"
	case strings.Contains(triplet, "-linux"):
		return "lindev"
	case strings.Contains(triplet, "-android"):
		return "droidev"
	case strings.Contains(triplet, "-ios"):
		return "iosdev"
	}
	return ""
}

func isUnixLike(triplet string) bool {
	return strings.HasSuffix(triplet, "osx") || strings.HasSuffix(triplet, "linux")
}
