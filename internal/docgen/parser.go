package docgen

import (
	"os"
	"regexp"
	"strings"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

// TopicParser turns a topic document into markdown. The generator asks each
// parser in order and uses the first one that can handle the topic.
type TopicParser interface {
	Init() error
	CanHandle(t *Topic) bool
	Process(t *Topic) (string, error)
}

var windowCRregexp = regexp.MustCompile(`\r?\n`)

func replaceWindowsCarriageReturn(b []byte) []byte {
	return windowCRregexp.ReplaceAll(b, []byte("\n"))
}

func readTopic(t *Topic) (string, error) {
	data, err := os.ReadFile(t.File)
	if err != nil {
		tlogger.Error("msg", "Error processing topic", "path", t.File, "err", err)
		return "", err
	}
	return string(replaceWindowsCarriageReturn(data)), nil
}

type MarkdownParser struct{}

func (p *MarkdownParser) Init() error {
	tlogger.Debug("parser", "markdown", "msg", "init")
	return nil
}

func (p *MarkdownParser) CanHandle(t *Topic) bool {
	return strings.HasSuffix(t.File, ".md")
}

func (p *MarkdownParser) Process(t *Topic) (string, error) {
	return readTopic(t)
}

// NVGTParser handles commented example scripts.
type NVGTParser struct{}

func (p *NVGTParser) Init() error {
	tlogger.Debug("parser", "nvgt", "msg", "init")
	return nil
}

func (p *NVGTParser) CanHandle(t *Topic) bool {
	return strings.HasSuffix(t.File, ".nvgt")
}

func (p *NVGTParser) Process(t *Topic) (string, error) {
	data, err := readTopic(t)
	if err != nil {
		return "", err
	}
	return NVGTToMarkdown(t.Name, data), nil
}
