package version

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed version string")

// Version is the content of the repository's version file, major.minor.patch-type.
type Version struct {
	Major int
	Minor int
	Patch int
	Type  string

	raw string
}

func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	num, typ, ok := strings.Cut(s, "-")
	if !ok || typ == "" || strings.ContainsAny(typ, "-. \t") {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	parts := strings.Split(num, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Type: typ, raw: s}, nil
}

func ReadFile(path string) (Version, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Version{}, err
	}
	v, err := Parse(string(b))
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	return fmt.Sprintf("%s-%s", v.Number(), v.Type)
}

// Number is the version without its type, 0.89.1 for 0.89.1-beta.
func (v Version) Number() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Underscored is used in release artifact names: 0.89.1_beta.
func (v Version) Underscored() string {
	return strings.ReplaceAll(v.String(), "-", "_")
}

// Filename is Underscored without the _stable suffix, stable builds carry the bare number.
func (v Version) Filename() string {
	return strings.TrimSuffix(v.Underscored(), "_stable")
}
