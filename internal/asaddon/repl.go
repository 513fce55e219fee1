package asaddon

import (
	"bufio"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

// Replacement renames one AngelScript addon identifier.
type Replacement struct {
	Search  []byte
	Replace []byte
}

// ParseReplacements reads "Search, Replace" lines. Lines without a separator
// are ignored and a repeated search keeps its first position with the last
// replacement.
func ParseReplacements(data []byte) []Replacement {
	var repls []Replacement
	index := map[string]int{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		parts := bytes.Split(bytes.TrimRight(sc.Bytes(), " \t\r\n\v\f"), []byte(", "))
		if len(parts) < 2 {
			continue
		}
		r := Replacement{Search: bytes.Clone(parts[0]), Replace: bytes.Clone(parts[1])}
		if i, ok := index[string(r.Search)]; ok {
			repls[i] = r
			continue
		}
		index[string(r.Search)] = len(repls)
		repls = append(repls, r)
	}
	return repls
}

func LoadReplacements(path string) ([]Replacement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		tlogger.Error("msg", "Cannot read replacements", "path", path, "err", err)
		return nil, err
	}
	return ParseReplacements(data), nil
}

// Apply runs every replacement over the .cpp files below dir in order and
// returns the files that changed.
func Apply(dir string, repls []Replacement) ([]string, error) {
	var changed []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match("*.cpp", d.Name()); !ok {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out := data
		for _, r := range repls {
			out = bytes.ReplaceAll(out, r.Search, r.Replace)
		}
		if bytes.Equal(out, data) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, out, fi.Mode().Perm()); err != nil {
			tlogger.Error("msg", "Cannot write addon source", "path", p, "err", err)
			return err
		}
		tlogger.Debug("msg", "Addon source updated", "path", p)
		changed = append(changed, p)
		return nil
	})
	return changed, err
}
