package docgen

import (
	"path"
	"strings"
)

var slugReplacer = strings.NewReplacer(
	"/", "_",
	" ", "_",
	"+", "",
	"(", "",
	")", "",
	".", "_",
	"!", "",
	"@", "",
	"-", "",
)

// Slug turns a topic key into a file name safe string.
func Slug(key string) string {
	return slugReplacer.Replace(stripExt(key))
}

func CHMFilename(key string) string {
	return Slug(stripExt(key)) + ".htm"
}

// MarkdownFilename names the markdown document of a markdown root.
func MarkdownFilename(key string) string {
	if key == RootKey {
		return "nvgt.md"
	}
	return Slug("nvgt_"+key) + ".md"
}

// HTMLFilename maps a markdown document name to its page in the html output.
func HTMLFilename(mdName string) string {
	if mdName == "nvgt.md" {
		return "index.html"
	}
	name := strings.TrimPrefix(mdName, "nvgt_")
	name = strings.TrimSuffix(name, ".md") + ".html"
	return strings.ToLower(name)
}

// stripExt drops the extension of the last path element. Leading dots of a
// name are not an extension.
func stripExt(p string) string {
	base := path.Base(p)
	trimmed := strings.TrimLeft(base, ".")
	ext := path.Ext(trimmed)
	if ext == "" {
		return p
	}
	return p[:len(p)-len(ext)]
}
