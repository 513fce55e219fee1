package docgen

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/otiai10/copy"

	"github.com/nvgt/nvgtbuild/internal/helpers"
	"github.com/nvgt/nvgtbuild/internal/runner"
	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

// writeProject writes the HTML Help Workshop project listing every page.
func (g *Generator) writeProject() error {
	entries, err := os.ReadDir(g.path("chm"))
	if err != nil {
		return err
	}
	var pages []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".htm") {
			pages = append(pages, e.Name())
		}
	}
	sort.Strings(pages)

	var sb strings.Builder
	sb.WriteString("[OPTIONS]\nContents file=nvgt.hhc\nIndex file=nvgt.hhk\n")
	sb.WriteString("Default topic=" + g.DefaultTopic + "\n")
	sb.WriteString("Title=" + g.Title + "\n\n[FILES]\n")
	for _, p := range pages {
		sb.WriteString(p + "\n")
	}
	return os.WriteFile(g.path("chm", "nvgt.hhp"), []byte(sb.String()), 0644)
}

// compileCHM runs hhc.exe when it is installed and moves nvgt.chm next to
// the sources.
func (g *Generator) compileCHM(ctx context.Context) error {
	if _, err := os.Stat(g.HHCPath); err != nil {
		tlogger.Debug("msg", "HTML Help Workshop not found, skipping chm", "path", g.HHCPath)
		return nil
	}
	cmd := runner.Command(g.HHCPath, filepath.Join("chm", "nvgt.hhp")).InDir(g.Dir)
	if _, err := g.Run.Run(ctx, cmd); err != nil {
		// hhc.exe exits with 1 on success, the produced file is what counts.
		tlogger.Debug("msg", "hhc.exe returned an error", "err", err)
	}

	built := g.path("chm", "nvgt.chm")
	if _, err := os.Stat(built); err != nil {
		tlogger.Warn("msg", "chm compilation produced no file", "path", built)
		return nil
	}
	dst := g.path("nvgt.chm")
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.Rename(built, dst); err != nil {
		tlogger.Error("msg", "Cannot move chm", "path", built, "err", err)
		return err
	}
	if g.webDocs != "" {
		return copy.Copy(dst, filepath.Join(g.webDocs, "nvgt.chm"))
	}
	return nil
}

// publish drops the zipped html and markdown documentation and the text
// version into the website when one is checked out.
func (g *Generator) publish() error {
	if g.webDocs == "" {
		return nil
	}
	if err := helpers.ZipDir(g.path("html"), filepath.Join(g.webDocs, "nvgt-html.zip")); err != nil {
		tlogger.Error("msg", "Cannot archive html documentation", "err", err)
		return err
	}
	if err := helpers.ZipDir(g.path("md"), filepath.Join(g.webDocs, "nvgt-markdown.zip")); err != nil {
		tlogger.Error("msg", "Cannot archive markdown documentation", "err", err)
		return err
	}
	return copy.Copy(g.path("nvgt.txt"), filepath.Join(g.webDocs, "nvgt.txt"))
}

// DumpTree writes the topic tree as indented JSON. Topic names and paths are
// written as is, without html escaping.
func (g *Generator) DumpTree(w io.Writer) error {
	tree, err := g.Tree()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(tree)
}
