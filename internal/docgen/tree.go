package docgen

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

// RootKey is the tree key of the source directory itself.
const RootKey = "."

var ErrNoSource = errors.New("documentation source folder not found")

// Topic is one node of the documentation tree. Keys and Topics hold slash
// separated paths relative to the source directory.
type Topic struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	// File is the absolute path of the topic document, empty for categories.
	File         string   `json:"file,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	MarkdownRoot bool     `json:"markdown_root,omitempty"`

	doc             *markdownDoc
	categoryHeading bool
}

func (t *Topic) IsCategory() bool { return t.File == "" }

type Tree struct {
	Src    string            `json:"src"`
	Topics map[string]*Topic `json:"topics"`
	// Order lists keys in creation order, the root first.
	Order []string `json:"order"`
}

func (tr *Tree) Root() *Topic { return tr.Topics[RootKey] }

func (tr *Tree) add(t *Topic) {
	tr.Topics[t.Key] = t
	tr.Order = append(tr.Order, t.Key)
}

func (tr *Tree) abs(key string) string {
	return filepath.Join(tr.Src, filepath.FromSlash(key))
}

// TopicName derives the display name of a topic. Documents ending in +.md
// are named by their first line, everything else by its file name without
// leading !-_ punctuation, extension or trailing @.
func TopicName(p string) string {
	fi, err := os.Stat(p)
	if err != nil {
		tlogger.Warn("msg", "Cannot find topic, skipping", "path", p)
		return ""
	}
	if strings.HasSuffix(p, "+.md") {
		f, err := os.Open(p)
		if err != nil {
			tlogger.Warn("msg", "Cannot read topic", "path", p, "err", err)
			return ""
		}
		defer f.Close()
		line, _ := bufio.NewReader(f).ReadString('\n')
		return strings.Trim(strings.TrimRight(line, "\r\n"), "# ")
	}
	name := strings.TrimLeft(filepath.Base(p), "!-_")
	if !fi.IsDir() {
		name = stripExt(name)
	}
	return strings.TrimSuffix(name, "@")
}

// BuildTree walks src and collects its topics. A directory holding an
// .index.json lists its topics in the given order, other directories list
// subdirectories and .md/.nvgt documents sorted case insensitively.
func BuildTree(src, title string) (*Tree, error) {
	fi, err := os.Stat(src)
	if err != nil || !fi.IsDir() {
		tlogger.Error("msg", "Src folder not found", "path", src, "err", err)
		return nil, ErrNoSource
	}

	tr := &Tree{Src: src, Topics: map[string]*Topic{}}
	tr.add(&Topic{Key: RootKey, Name: title, MarkdownRoot: true})

	fold := cases.Fold()
	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if _, ok := tr.Topics[key]; !ok {
			// Not referenced by its parent's index.
			tlogger.Debug("msg", "Skipping unlisted folder", "path", p)
			return filepath.SkipDir
		}

		if _, err := os.Stat(filepath.Join(p, ".index.json")); err == nil {
			return tr.listIndex(key)
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return err
		}
		var items []string
		for _, e := range entries {
			n := e.Name()
			if e.IsDir() || strings.HasSuffix(n, ".md") || strings.HasSuffix(n, ".nvgt") {
				items = append(items, n)
			}
		}
		sort.SliceStable(items, func(i, j int) bool {
			return fold.String(items[i]) < fold.String(items[j])
		})
		for _, n := range items {
			tr.addChild(key, joinKey(key, n), "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func (tr *Tree) listIndex(key string) error {
	indexPath := filepath.Join(tr.abs(key), ".index.json")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return err
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		tlogger.Error("msg", "Unable to parse index", "path", indexPath, "err", err)
		return fmt.Errorf("parsing %s: %w", indexPath, err)
	}
	for _, raw := range entries {
		var name, rel string
		if err := json.Unmarshal(raw, &rel); err != nil {
			var pair []string
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				return fmt.Errorf("parsing %s: entries must be a path or a [path, name] pair", indexPath)
			}
			rel, name = pair[0], pair[1]
		}
		tr.addChild(key, joinKey(key, rel), name)
	}
	return nil
}

func (tr *Tree) addChild(parent, key, name string) {
	p := tr.abs(key)
	if name == "" {
		name = TopicName(p)
	}
	t := &Topic{Key: key, Name: name}
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		t.File = p
		t.MarkdownRoot = strings.HasSuffix(key, "@.md")
	} else {
		t.Topics = []string{}
		if _, err := os.Stat(filepath.Join(p, ".MDRoot")); err == nil {
			t.MarkdownRoot = true
		}
	}
	tr.Topics[parent].Topics = append(tr.Topics[parent].Topics, key)
	tr.add(t)
}

// MarkdownRootOf returns the markdown root a topic is written into and the
// heading level of the topic within that document.
func (tr *Tree) MarkdownRootOf(key string) (*Topic, int) {
	depth := keyDepth(key)
	for k := key; ; k = parentKey(k) {
		t, ok := tr.Topics[k]
		if !ok {
			return nil, 0
		}
		if t.MarkdownRoot {
			if key == RootKey {
				return t, 0
			}
			return t, depth - keyDepth(k) + 1
		}
		if k == RootKey {
			return nil, 0
		}
	}
}

func joinKey(parent, name string) string {
	if parent == RootKey {
		return path.Clean(name)
	}
	return path.Join(parent, name)
}

func parentKey(key string) string {
	return path.Dir(key)
}

func keyDepth(key string) int {
	if key == RootKey {
		return 0
	}
	return strings.Count(key, "/")
}
