package docgen

import "strings"

// NVGTToMarkdown converts an example script into a markdown topic. /** */
// blocks hold markdown, a block opened with /**\ keeps explicit line breaks
// instead of making each line a paragraph, a "// Example" comment starts the
// example section and any other line is NVGT code.
func NVGTToMarkdown(name, data string) string {
	var sb strings.Builder
	sb.WriteString("# " + name + "\n")

	inMarkdown := false
	linebreaks := false
	mdFence := false
	inCode := false
	openCode := func(prefix string) {
		sb.WriteString(prefix + "```NVGT\n")
		inCode = true
	}
	closeCode := func() {
		if inCode {
			sb.WriteString("```\n")
			inCode = false
		}
	}

	for _, l := range strings.Split(data, "\n") {
		l = strings.TrimRight(l, "\r")
		ls := strings.TrimSpace(l)
		if ls == "" {
			continue
		}
		lower := strings.ToLower(ls)
		switch {
		case strings.HasPrefix(ls, "/**"):
			closeCode()
			if ls == `/**\` {
				linebreaks = true
			}
			inMarkdown = true
			mdFence = false
		case inMarkdown && ls == "*/":
			inMarkdown = false
			mdFence = false
		case inMarkdown:
			wasFence := mdFence
			if strings.HasPrefix(ls, "```") {
				mdFence = !mdFence
			}
			if !wasFence && !mdFence && !linebreaks {
				sb.WriteString("\n")
			}
			sb.WriteString(strings.TrimLeft(l, " \t") + "\n")
		case !inCode && (strings.HasPrefix(lower, "// example") || strings.HasPrefix(lower, "//example")):
			openCode("\n## Example:\n\n")
		default:
			if !inCode {
				openCode("\n")
			}
			sb.WriteString(l + "\n")
		}
	}
	if inCode {
		sb.WriteString("```\n\n")
	}
	return sb.String()
}
