// Package docgen builds the NVGT documentation from doc/src: one html page
// per topic for the CHM help file, markdown documents split at markdown
// roots, their html and website renditions, and a plain text version.
package docgen

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvgt/nvgtbuild/internal/runner"
	"github.com/nvgt/nvgtbuild/internal/tlogger"
	"github.com/nvgt/nvgtbuild/pkg/config"
)

const (
	hhcBase = "<li><object type=\"text/sitemap\"><param name=\"Name\" value=\"%s\"></object></li>\n"
	hhkBase = "<li><object type=\"text/sitemap\"><param name=\"Name\" value=\"%s\"><param name=\"Local\" value=\"%s\"></object></li>\n"
	listDoc = "<html>\n<head>\n</head>\n<body>\n<ul>\n"
)

type markdownDoc struct {
	name string
	buf  strings.Builder
}

type Generator struct {
	initialized bool

	// Dir is the documentation folder holding the sources and receiving
	// chm/, html/, md/ and nvgt.txt.
	Dir     string
	SrcDir  string
	Title   string
	WebDir  string
	HHCPath string
	// DefaultTopic is the page the CHM viewer opens first.
	DefaultTopic string
	Minify       bool

	Run     runner.Runner
	Parsers []TopicParser

	fw         FileWriter
	tree       *Tree
	webDocs    string
	chmWritten map[string]bool

	txt strings.Builder
	hhc strings.Builder
	hhk strings.Builder
}

func NewGenerator(dir string) *Generator {
	return &Generator{Dir: dir}
}

// Init is idempotent, unset fields are taken from the configuration.
func (g *Generator) Init() error {
	if g.initialized {
		return nil
	}
	cfg := config.Config.Docs
	if g.Dir == "" {
		g.Dir = cfg.Dir
	}
	if g.SrcDir == "" {
		g.SrcDir = cfg.SrcDir
	}
	if g.Title == "" {
		g.Title = cfg.Title
	}
	if g.WebDir == "" {
		g.WebDir = cfg.WebDir
	}
	if g.HHCPath == "" {
		g.HHCPath = cfg.HHCPath
	}
	if g.DefaultTopic == "" {
		g.DefaultTopic = "Introduction.htm"
	}
	if g.Run == nil {
		g.Run = runner.Exec{}
	}
	if g.Parsers == nil {
		g.Parsers = []TopicParser{&NVGTParser{}, &MarkdownParser{}}
	}
	for _, p := range g.Parsers {
		if err := p.Init(); err != nil {
			return err
		}
	}
	if g.Minify {
		g.fw = NewMinifier()
	} else {
		g.fw = &NOOPMinifier{}
	}
	g.initialized = true
	return nil
}

func (g *Generator) path(elem ...string) string {
	return filepath.Join(append([]string{g.Dir}, elem...)...)
}

func (g *Generator) srcPath() string {
	if filepath.IsAbs(g.SrcDir) {
		return g.SrcDir
	}
	return g.path(g.SrcDir)
}

func (g *Generator) webPath() string {
	if filepath.IsAbs(g.WebDir) {
		return g.WebDir
	}
	return g.path(g.WebDir)
}

// HTMLDir is where the browsable html documentation is written.
func (g *Generator) HTMLDir() string { return g.path("html") }

func (g *Generator) SourceDir() string { return g.srcPath() }

// Tree builds the topic tree without generating anything.
func (g *Generator) Tree() (*Tree, error) {
	if err := g.Init(); err != nil {
		return nil, err
	}
	return BuildTree(g.srcPath(), g.Title)
}

// Generate runs a complete documentation build.
func (g *Generator) Generate(ctx context.Context) error {
	tree, err := g.Tree()
	if err != nil {
		return err
	}
	g.tree = tree
	g.chmWritten = map[string]bool{}
	g.txt.Reset()
	g.hhc.Reset()
	g.hhk.Reset()

	tlogger.Info("msg", "Building started", "path", g.srcPath())
	defer tlogger.Info("msg", "Building finished", "path", g.srcPath())

	for _, d := range []string{"chm", "html", "md"} {
		if err := os.MkdirAll(g.path(d), 0755); err != nil {
			tlogger.Error("msg", "Failed to create folder", "path", g.path(d), "err", err)
			return err
		}
	}
	g.webDocs = ""
	if fi, err := os.Stat(g.webPath()); err == nil && fi.IsDir() {
		g.webDocs = filepath.Join(g.webPath(), "src", "docs")
		if err := os.MkdirAll(g.webDocs, 0755); err != nil {
			return err
		}
	}

	g.hhc.WriteString(listDoc)
	g.hhk.WriteString(listDoc)
	if err := g.outputSection(RootKey, 0); err != nil {
		return err
	}
	// The root section closes the outer list of the contents file itself.
	g.hhc.WriteString("</body>\n</html>\n")
	g.hhk.WriteString("</ul>\n</body>\n</html>\n")

	outputs := []struct {
		name string
		b    *strings.Builder
	}{
		{"nvgt.txt", &g.txt},
		{filepath.Join("chm", "nvgt.hhc"), &g.hhc},
		{filepath.Join("chm", "nvgt.hhk"), &g.hhk},
	}
	for _, o := range outputs {
		if err := os.WriteFile(g.path(o.name), []byte(o.b.String()), 0644); err != nil {
			tlogger.Error("msg", "Cannot write output", "path", g.path(o.name), "err", err)
			return err
		}
	}

	for _, key := range tree.Order {
		t := tree.Topics[key]
		if !t.MarkdownRoot || t.doc == nil {
			continue
		}
		if err := g.outputMarkdown(t); err != nil {
			return err
		}
	}

	if err := g.writeProject(); err != nil {
		return err
	}
	if err := g.compileCHM(ctx); err != nil {
		return err
	}
	return g.publish()
}

func (g *Generator) document(key string) (*markdownDoc, int) {
	root, level := g.tree.MarkdownRootOf(key)
	if root == nil {
		return nil, 0
	}
	if root.doc == nil {
		root.doc = &markdownDoc{name: MarkdownFilename(root.Key)}
	}
	return root.doc, level
}

func (g *Generator) parse(t *Topic) (string, error) {
	for _, p := range g.Parsers {
		if p.CanHandle(t) {
			return p.Process(t)
		}
	}
	return "", fmt.Errorf("no parser for %s", t.File)
}

// processTopic writes the CHM page and markdown of a topic and returns its
// plain text rendition indented by indent tabs.
func (g *Generator) processTopic(t *Topic, indent int) (string, error) {
	body, err := g.parse(t)
	if err != nil {
		return "", err
	}
	md := "\n" + body

	chm := CHMFilename(t.Key)
	if page, err := RenderMarkdown(md); err != nil {
		tlogger.Error("msg", "Error creating chm page", "path", chm, "err", err)
	} else if err := os.WriteFile(g.path("chm", chm), []byte(HTMLPage(t.Name, page)), 0644); err != nil {
		tlogger.Error("msg", "Error creating chm page", "path", chm, "err", err)
	} else {
		g.chmWritten[chm] = true
	}

	doc, level := g.document(t.Key)
	if doc == nil {
		return "", fmt.Errorf("topic %s has no markdown document", t.Key)
	}

	// A category heading was just written. Drop the topic's own heading when
	// it repeats the category name.
	if parent := g.tree.Topics[parentKey(t.Key)]; parent != nil && parent.categoryHeading {
		parent.categoryHeading = false
		head := md[:min(len(md), len(parent.Name)+32)]
		head = strings.TrimLeft(head, "\n\t# ")
		if strings.HasPrefix(strings.ToLower(head), strings.ToLower(parent.Name)) {
			_, rest, _ := strings.Cut(md[1:], "\n")
			md = "\n" + rest
			level--
			indent--
		}
	}

	lines := strings.Split(md, "\n")[1:]
	shiftHeadings(lines, level)
	doc.buf.WriteString(strings.Join(lines, "\n") + "\n\n")

	return plainText(lines, indent), nil
}

// shiftHeadings makes a topic's top level heading a level-deep heading,
// moving its subheadings along. Code blocks are left alone.
func shiftHeadings(lines []string, level int) {
	heading := strings.Repeat("#", max(level, 0))
	inCode := false
	for i, l := range lines {
		trimmed := strings.TrimLeft(l, "\t ")
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if inCode || !strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines[i] = heading + trimmed[1:]
	}
}

func plainText(lines []string, indent int) string {
	tabIndent := strings.Repeat("\t", max(indent, 0))
	tabHeading := strings.Repeat("\t", max(indent-1, 0))
	out := make([]string, 0, len(lines))
	inCode := false
	for _, l := range lines {
		if l == "" {
			out = append(out, l)
			continue
		}
		trimmed := strings.TrimLeft(l, "\t ")
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if !inCode && strings.HasPrefix(trimmed, "#") {
			out = append(out, tabHeading+strings.Trim(l, "\t#: ")+":")
			continue
		}
		out = append(out, tabIndent+l)
	}
	return strings.Join(out, "\n") + "\n\n"
}

func (g *Generator) navLink(doc *markdownDoc, siblings []string, idx int, t *Topic) {
	root, _ := g.document(t.Key)
	if root == nil {
		return
	}
	isRoot := func(i int) bool {
		return i >= 0 && i < len(siblings) && g.tree.Topics[siblings[i]].MarkdownRoot
	}
	if isRoot(idx-1) || isRoot(idx+1) {
		doc.buf.WriteString("* ")
	}
	fmt.Fprintf(&doc.buf, "[%s](%s)\n", t.Name, strings.ToLower(root.name))
}

func (g *Generator) outputSection(key string, indent int) error {
	t := g.tree.Topics[key]
	doc, level := g.document(key)
	if doc == nil {
		return fmt.Errorf("topic %s has no markdown document", key)
	}
	if key != RootKey && t.IsCategory() {
		doc.buf.WriteString(strings.Repeat("#", level) + " " + t.Name + "\n")
		t.categoryHeading = true
		g.txt.WriteString(strings.Repeat("\t", max(indent-1, 0)) + t.Name + ":\n")
		fmt.Fprintf(&g.hhc, hhcBase, html.EscapeString(t.Name))
		g.hhc.WriteString("<ul>\n")
	}

	extraNewline := false
	inNav := false
	lastWasSubsection := false
	for idx, childKey := range t.Topics {
		if extraNewline {
			doc.buf.WriteString("\n")
			extraNewline = false
		}
		child := g.tree.Topics[childKey]
		if !child.IsCategory() {
			text, err := g.processTopic(child, indent+1)
			if err != nil {
				return err
			}
			g.txt.WriteString(text)
			lastWasSubsection = false
			if child.MarkdownRoot {
				g.navLink(doc, t.Topics, idx, child)
				inNav = true
			}
			if chm := CHMFilename(childKey); g.chmWritten[chm] {
				name := html.EscapeString(child.Name)
				fmt.Fprintf(&g.hhc, hhkBase, name, chm)
				fmt.Fprintf(&g.hhk, hhkBase, name, chm)
			}
			continue
		}

		switch {
		case child.MarkdownRoot:
			if lastWasSubsection {
				doc.buf.WriteString(strings.Repeat("#", level) + "# " + child.Name + "\n")
			}
			g.navLink(doc, t.Topics, idx, child)
			inNav = true
			lastWasSubsection = false
		case inNav:
			// A plain subsection ends the block of navigation links.
			extraNewline = true
			inNav = false
		default:
			lastWasSubsection = true
		}
		if err := g.outputSection(childKey, indent+1); err != nil {
			return err
		}
	}
	g.hhc.WriteString("</ul>\n")
	doc.buf.WriteString("\n")
	return nil
}

var navReplacer = strings.NewReplacer("](nvgt_", "](", ".md)", ".html)")

// outputMarkdown writes a finished markdown document and its html renditions.
func (g *Generator) outputMarkdown(t *Topic) error {
	text := t.doc.buf.String()
	mdPath := g.path("md", t.doc.name)
	if err := os.WriteFile(mdPath, []byte(text), 0644); err != nil {
		tlogger.Error("msg", "Cannot write markdown document", "path", mdPath, "err", err)
		return err
	}

	body, err := RenderMarkdown(navReplacer.Replace(text))
	if err != nil {
		tlogger.Error("msg", "Cannot render markdown document", "path", mdPath, "err", err)
		return err
	}
	name := HTMLFilename(t.doc.name)
	if err := writeFile(g.fw, "text/html", g.path("html", name), HTMLPage(t.Name, body)); err != nil {
		tlogger.Error("msg", "Cannot write html document", "path", name, "err", err)
		return err
	}
	tlogger.Debug("msg", "Document written", "markdown", t.doc.name, "html", name)

	if g.webDocs == "" {
		return nil
	}
	liquid := filepath.Join(g.webDocs, strings.TrimSuffix(name, ".html")+".liquid")
	return os.WriteFile(liquid, []byte(LiquidPage(t.Name, body)), 0644)
}
