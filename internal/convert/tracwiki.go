package convert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TracWiki converts between Markdown and Trac wiki markup. Conversion is
// line oriented and best effort: anything it does not recognize passes
// through unchanged.
type TracWiki struct{}

var (
	mdFence      = regexp.MustCompile("^\\s*```\\s*([\\w+#.-]*)\\s*$")
	mdHeading    = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	mdRule       = regexp.MustCompile(`^\s*(?:(?:\*\s*){3,}|(?:-\s*){3,}|(?:_\s*){3,})$`)
	mdBullet     = regexp.MustCompile(`^(\s*)[-*+]\s+(.*)$`)
	mdOrdered    = regexp.MustCompile(`^(\s*)(\d+)[.)]\s+(.*)$`)
	mdQuote      = regexp.MustCompile(`^>\s?(.*)$`)
	mdTableSep   = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
	mdCodeSpan   = regexp.MustCompile("`([^`]+)`")
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)[^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)[^)]*\)`)
	mdAutoLink   = regexp.MustCompile(`<((?:https?|ftp)://[^>\s]+)>`)
	mdBoldItalic = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	mdBold       = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	mdItalicStar = regexp.MustCompile(`\*([^*\s][^*]*?)\*`)
	mdItalicUnd  = regexp.MustCompile(`(^|[^\w])_([^_\s][^_]*?)_([^\w]|$)`)

	tracCodeOpen  = regexp.MustCompile(`^\s*\{\{\{(?:#!(\S+))?\s*$`)
	tracCodeClose = regexp.MustCompile(`^\s*\}\}\}\s*$`)
	tracHeading   = regexp.MustCompile(`^\s*(={1,6})\s+(.*?)\s*=*\s*(?:#\S+)?$`)
	tracRule      = regexp.MustCompile(`^----+\s*$`)
	tracBullet    = regexp.MustCompile(`^( +)\*\s+(.*)$`)
	tracOrdered   = regexp.MustCompile(`^( +)(\d+|[a-zA-Z]|[ivxIVX]+)\.\s+(.*)$`)
	tracQuote     = regexp.MustCompile(`^  (\S.*)$`)
	tracTableRow  = regexp.MustCompile(`^\s*\|\|.*\|\|\s*$`)
	tracCodeSpan  = regexp.MustCompile("\\{\\{\\{(.+?)\\}\\}\\}|`([^`]+)`")
	tracImage     = regexp.MustCompile(`(?i)\[\[Image\(([^)]+)\)\]\]`)
	tracBreak     = regexp.MustCompile(`(?i)\[\[BR\]\]`)
	tracMacro     = regexp.MustCompile(`\[\[(\w+)(\([^)]*\))?\]\]`)
	tracLink      = regexp.MustCompile(`\[([^\[\]\s]+)(?:\s+([^\[\]]+))?\]`)
	tracBoldItal  = regexp.MustCompile(`'''''(.+?)'''''`)
	tracBold      = regexp.MustCompile(`'''(.+?)'''`)
	tracItalic    = regexp.MustCompile(`''(.+?)''`)
)

// ToRemote renders Markdown as TracWiki.
func (TracWiki) ToRemote(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	inCode := false

	for _, line := range lines {
		if m := mdFence.FindStringSubmatch(line); m != nil {
			switch {
			case inCode:
				out = append(out, "}}}")
			case m[1] != "":
				out = append(out, "{{{#!"+tracLang(m[1]))
			default:
				out = append(out, "{{{")
			}
			inCode = !inCode
			continue
		}
		if inCode {
			out = append(out, line)
			continue
		}

		switch {
		case mdHeading.MatchString(line):
			m := mdHeading.FindStringSubmatch(line)
			marker := strings.Repeat("=", len(m[1]))
			out = append(out, marker+" "+inlineToTrac(m[2])+" "+marker)
		case mdRule.MatchString(line):
			out = append(out, "----")
		case mdTableSep.MatchString(line) && strings.Contains(line, "|"):
			// Trac tables have no separator row.
		case strings.HasPrefix(strings.TrimSpace(line), "|"):
			out = append(out, tableRowToTrac(line))
		case mdBullet.MatchString(line):
			m := mdBullet.FindStringSubmatch(line)
			out = append(out, listIndent(m[1])+"* "+inlineToTrac(m[2]))
		case mdOrdered.MatchString(line):
			m := mdOrdered.FindStringSubmatch(line)
			out = append(out, listIndent(m[1])+m[2]+". "+inlineToTrac(m[3]))
		case mdQuote.MatchString(line):
			m := mdQuote.FindStringSubmatch(line)
			out = append(out, "  "+inlineToTrac(m[1]))
		default:
			out = append(out, hardBreakToTrac(inlineToTrac(line)))
		}
	}
	if inCode {
		out = append(out, "}}}")
	}
	return strings.Join(out, "\n")
}

// ToLocal renders TracWiki as Markdown.
func (TracWiki) ToLocal(text string) (string, []string) {
	w := &warnings{}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var table []string
	inCode := false

	flush := func() {
		if len(table) > 0 {
			out = append(out, tableToMarkdown(table, w)...)
			table = nil
		}
	}

	for _, line := range lines {
		if inCode {
			if tracCodeClose.MatchString(line) {
				out = append(out, "```")
				inCode = false
				continue
			}
			out = append(out, line)
			continue
		}
		if m := tracCodeOpen.FindStringSubmatch(line); m != nil {
			flush()
			if m[1] == "th" || m[1] == "td" {
				w.add("processor-based table cells are converted to code blocks")
			}
			out = append(out, "```"+markdownLang(m[1]))
			inCode = true
			continue
		}
		if tracTableRow.MatchString(line) {
			table = append(table, line)
			continue
		}
		flush()

		switch {
		case tracHeading.MatchString(line):
			m := tracHeading.FindStringSubmatch(line)
			out = append(out, strings.Repeat("#", len(m[1]))+" "+inlineToMarkdown(m[2], w))
		case tracRule.MatchString(line):
			out = append(out, "---")
		case tracBullet.MatchString(line):
			m := tracBullet.FindStringSubmatch(line)
			out = append(out, markdownIndent(m[1])+"- "+inlineToMarkdown(m[2], w))
		case tracOrdered.MatchString(line):
			m := tracOrdered.FindStringSubmatch(line)
			out = append(out, markdownIndent(m[1])+orderedMarker(m[2])+" "+inlineToMarkdown(m[3], w))
		case tracQuote.MatchString(line):
			m := tracQuote.FindStringSubmatch(line)
			out = append(out, "> "+inlineToMarkdown(m[1], w))
		default:
			out = append(out, inlineToMarkdown(line, w))
		}
	}
	flush()
	if inCode {
		w.add("unterminated code block closed at end of page")
		out = append(out, "```")
	}
	return strings.Join(out, "\n"), w.list
}

// listIndent maps Markdown list nesting (two spaces per level) to Trac's
// leading-space form.
func listIndent(lead string) string {
	depth := len(strings.ReplaceAll(lead, "\t", "  ")) / 2
	return strings.Repeat("  ", depth) + " "
}

func markdownIndent(lead string) string {
	depth := (len(lead) - 1) / 2
	return strings.Repeat("  ", depth)
}

func orderedMarker(n string) string {
	for _, r := range n {
		if r < '0' || r > '9' {
			// Markdown only numbers lists with digits.
			return "1."
		}
	}
	return n + "."
}

func hardBreakToTrac(line string) string {
	switch {
	case strings.HasSuffix(line, "  ") && strings.TrimSpace(line) != "":
		return strings.TrimRight(line, " ") + "[[BR]]"
	case strings.HasSuffix(line, `\`) && !strings.HasSuffix(line, `\\`):
		return strings.TrimSuffix(line, `\`) + "[[BR]]"
	}
	return line
}

func tableRowToTrac(line string) string {
	cells := splitMarkdownRow(line)
	for i, c := range cells {
		cells[i] = inlineToTrac(c)
	}
	return "||" + strings.Join(cells, "||") + "||"
}

func splitMarkdownRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func tableToMarkdown(rows []string, w *warnings) []string {
	out := make([]string, 0, len(rows)+1)
	for i, row := range rows {
		row = strings.TrimSpace(row)
		row = strings.TrimSuffix(strings.TrimPrefix(row, "||"), "||")
		cells := strings.Split(row, "||")
		for j, c := range cells {
			c = strings.TrimSpace(c)
			if len(c) >= 2 && strings.HasPrefix(c, "=") && strings.HasSuffix(c, "=") {
				c = strings.TrimSpace(c[1 : len(c)-1])
			}
			cells[j] = inlineToMarkdown(c, w)
		}
		out = append(out, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			out = append(out, "|"+strings.Repeat(" --- |", len(cells)))
		}
	}
	return out
}

// tokens shields already-converted spans from later inline rules.
type tokens []string

func (t *tokens) hold(s string) string {
	*t = append(*t, s)
	return fmt.Sprintf("\x00%d\x00", len(*t)-1)
}

var tokenRef = regexp.MustCompile("\x00(\\d+)\x00")

// restore expands held spans. Spans may nest, so expansion repeats until
// no references remain.
func (t tokens) restore(s string) string {
	for range len(t) + 1 {
		if !strings.Contains(s, "\x00") {
			break
		}
		s = tokenRef.ReplaceAllStringFunc(s, func(m string) string {
			i, err := strconv.Atoi(strings.Trim(m, "\x00"))
			if err != nil || i >= len(t) {
				return m
			}
			return t[i]
		})
	}
	return s
}

func inlineToTrac(s string) string {
	var held tokens
	s = mdCodeSpan.ReplaceAllStringFunc(s, func(m string) string {
		return held.hold("{{{" + mdCodeSpan.FindStringSubmatch(m)[1] + "}}}")
	})
	s = mdImage.ReplaceAllStringFunc(s, func(m string) string {
		return held.hold("[[Image(" + mdImage.FindStringSubmatch(m)[2] + ")]]")
	})
	s = mdLink.ReplaceAllStringFunc(s, func(m string) string {
		sm := mdLink.FindStringSubmatch(m)
		label, url := inlineToTrac(sm[1]), sm[2]
		if !isExternal(url) && !strings.HasPrefix(url, "#") {
			url = "wiki:" + url
		}
		return held.hold("[" + url + " " + label + "]")
	})
	s = mdAutoLink.ReplaceAllStringFunc(s, func(m string) string {
		return held.hold("[" + mdAutoLink.FindStringSubmatch(m)[1] + "]")
	})
	s = mdBoldItalic.ReplaceAllString(s, "'''''$1'''''")
	s = mdBold.ReplaceAllString(s, "'''$2'''")
	s = mdItalicStar.ReplaceAllString(s, "''$1''")
	s = mdItalicUnd.ReplaceAllString(s, "$1''$2''$3")
	return held.restore(s)
}

func inlineToMarkdown(s string, w *warnings) string {
	var held tokens
	s = tracCodeSpan.ReplaceAllStringFunc(s, func(m string) string {
		sm := tracCodeSpan.FindStringSubmatch(m)
		code := sm[1]
		if code == "" {
			code = sm[2]
		}
		return held.hold("`" + code + "`")
	})
	s = tracImage.ReplaceAllStringFunc(s, func(m string) string {
		return held.hold("![](" + tracImage.FindStringSubmatch(m)[1] + ")")
	})
	s = tracBreak.ReplaceAllString(s, "\n")
	s = tracMacro.ReplaceAllStringFunc(s, func(m string) string {
		sm := tracMacro.FindStringSubmatch(m)
		w.add(fmt.Sprintf("macro [[%s]] has no Markdown equivalent and was kept as text", sm[1]))
		return held.hold("[MACRO: " + sm[1] + sm[2] + "]")
	})
	s = tracLink.ReplaceAllStringFunc(s, func(m string) string {
		sm := tracLink.FindStringSubmatch(m)
		target, label := sm[1], sm[2]
		if label == "" {
			if !strings.Contains(target, ":") {
				return m
			}
			if isExternal(target) {
				return held.hold("<" + target + ">")
			}
			label = strings.TrimPrefix(target, "wiki:")
		}
		target = strings.TrimPrefix(target, "wiki:")
		return held.hold("[" + label + "](" + target + ")")
	})
	s = tracBoldItal.ReplaceAllString(s, "***$1***")
	s = tracBold.ReplaceAllString(s, "**$1**")
	s = tracItalic.ReplaceAllString(s, "*$1*")
	return held.restore(s)
}

func isExternal(url string) bool {
	for _, p := range []string{"http://", "https://", "ftp://", "mailto:"} {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

type warnings struct {
	list []string
}

func (w *warnings) add(msg string) {
	for _, existing := range w.list {
		if existing == msg {
			return
		}
	}
	w.list = append(w.list, msg)
}
