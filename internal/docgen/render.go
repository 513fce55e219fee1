package docgen

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const htmlBase = "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s\n</body>\n</html>\n"

const liquidBase = "---\nlayout: default.liquid\ntitle: %s\n---\n\n%s"

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Footnote),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// RenderMarkdown converts a markdown document to an html fragment. Raw html
// in the source is kept.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func HTMLPage(title, body string) string {
	return fmt.Sprintf(htmlBase, title, body)
}

var liquidEscaper = strings.NewReplacer("{{", `\{\{`, "}}", `\}\}`)

// LiquidPage wraps an html fragment in the website's layout front matter.
func LiquidPage(title, body string) string {
	return fmt.Sprintf(liquidBase, title, liquidEscaper.Replace(body))
}

type FileWriter interface {
	Writer(string, io.WriteCloser) io.WriteCloser
}

type TDMinifier struct {
	Minifier *minify.M
}

func (m *TDMinifier) Writer(mediatype string, out io.WriteCloser) io.WriteCloser {
	return &minifyCloser{WriteCloser: m.Minifier.Writer(mediatype, out), out: out}
}

// minify's writer does not close the destination.
type minifyCloser struct {
	io.WriteCloser
	out io.WriteCloser
}

func (c *minifyCloser) Close() error {
	err := c.WriteCloser.Close()
	if cerr := c.out.Close(); err == nil {
		err = cerr
	}
	return err
}

type NOOPMinifier struct {
}

func (m *NOOPMinifier) Writer(mediatype string, out io.WriteCloser) io.WriteCloser {
	return out
}

func NewMinifier() *TDMinifier {
	minifier := minify.New()
	minifier.AddFunc("text/css", css.Minify)
	minifier.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	minifier.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return &TDMinifier{
		Minifier: minifier,
	}
}

func writeFile(fw FileWriter, mediatype, path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := fw.Writer(mediatype, f)
	if _, err := io.WriteString(w, content); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
