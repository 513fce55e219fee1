package tzgen

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

var ErrNoZones = errors.New("no timezones found")

// Regions are the zoneinfo folders scanned, in output order after Base.
var Regions = []string{"Africa", "America", "Antarctica", "Asia", "Atlantic", "Australia", "Europe", "Indian", "Pacific"}

// BaseZones are top level zone files collected into the Base group.
var BaseZones = []string{"UTC", "GMT", "UCT", "Universal", "Zulu"}

type Zone struct {
	Name   string
	Offset int
}

type Group struct {
	Name  string
	Zones []Zone
}

func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__" || name == "__init__.py" ||
		strings.HasSuffix(name, ".py") || strings.HasSuffix(name, ".pyc")
}

func readZone(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return StandardOffset(data)
}

// Scan collects the zones of every region folder and the base zones of a
// zoneinfo tree. Files that are not usable TZif data are returned as failed.
func Scan(dir string) (zones []Zone, failed []string, err error) {
	for _, region := range Regions {
		regionDir := filepath.Join(dir, region)
		if _, err := os.Stat(regionDir); err != nil {
			continue
		}
		err := filepath.WalkDir(regionDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if skipName(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			offset, err := readZone(p)
			if err != nil {
				tlogger.Debug("msg", "Skipping zone", "zone", name, "err", err)
				failed = append(failed, name)
				return nil
			}
			zones = append(zones, Zone{Name: name, Offset: offset})
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}

	for _, name := range BaseZones {
		offset, err := readZone(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		zones = append(zones, Zone{Name: name, Offset: offset})
	}

	tlogger.Info("msg", "Zoneinfo scanned", "path", dir, "processed", len(zones), "failed", len(failed))
	return zones, failed, nil
}

// GroupByRegion sorts zones into Base followed by the regions, each sorted
// by name. Zones outside any region are dropped.
func GroupByRegion(zones []Zone) []Group {
	groups := []Group{{Name: "Base"}}
	for _, r := range Regions {
		groups = append(groups, Group{Name: r})
	}
	base := map[string]bool{}
	for _, b := range BaseZones {
		base[b] = true
	}

	for _, z := range zones {
		if base[z.Name] {
			groups[0].Zones = append(groups[0].Zones, z)
			continue
		}
		for i, r := range Regions {
			if strings.HasPrefix(z.Name, r+"/") {
				groups[i+1].Zones = append(groups[i+1].Zones, z)
				break
			}
		}
	}
	for _, g := range groups {
		sort.Slice(g.Zones, func(i, j int) bool {
			if g.Zones[i].Name != g.Zones[j].Name {
				return g.Zones[i].Name < g.Zones[j].Name
			}
			return g.Zones[i].Offset < g.Zones[j].Offset
		})
	}
	return groups
}

// WriteCPP writes the timezone_map definition and returns the number of
// entries written.
func WriteCPP(w io.Writer, groups []Group, source string, now time.Time) (int, error) {
	var lines []string
	lines = append(lines,
		"// Auto-generated timezone table from IANA tzdata",
		"// Generated: "+now.Format("2006-01-02T15:04:05.000000"),
		"// Source: tzdata binary files (IANA tzfile format) from "+source,
		"",
		"// IANA timezone identifiers with standard UTC offsets (seconds)",
		"static std::unordered_map<std::string, int> timezone_map = {",
	)

	total := 0
	for _, g := range groups {
		total += len(g.Zones)
	}
	n := 0
	for _, g := range groups {
		if len(g.Zones) == 0 {
			continue
		}
		lines = append(lines, "\t// "+g.Name)
		for _, z := range g.Zones {
			n++
			comma := ","
			if n == total {
				comma = ""
			}
			lines = append(lines, fmt.Sprintf("\t{%q, %d}%s", z.Name, z.Offset, comma))
		}
	}
	lines = append(lines, "};")

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return total, err
}

// Generate scans dir and writes the table to out.
func Generate(dir, out string, now time.Time) (int, error) {
	zones, _, err := Scan(dir)
	if err != nil {
		return 0, err
	}
	if len(zones) == 0 {
		tlogger.Error("msg", "No timezones found", "path", dir)
		return 0, ErrNoZones
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	n, err := WriteCPP(f, GroupByRegion(zones), dir, now)
	if err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	tlogger.Info("msg", "Timezone table written", "path", out, "zones", n)
	return n, nil
}
