// Package convert translates page text between the local Markdown format
// and the markup a remote wiki stores.
package convert

import (
	"fmt"
	"strings"
)

// Converter translates between local and remote markup.
type Converter interface {
	// ToRemote renders local Markdown in the remote format.
	ToRemote(text string) string
	// ToLocal renders remote text as Markdown. Warnings describe
	// constructs that could not be translated faithfully.
	ToLocal(text string) (string, []string)
}

// Supported remote formats.
const (
	FormatTracWiki = "tracwiki"
	FormatMarkdown = "markdown"
)

// ForFormat returns the converter for a remote format name.
func ForFormat(name string) (Converter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatTracWiki:
		return TracWiki{}, nil
	case FormatMarkdown, "md":
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (expected %s or %s)", name, FormatTracWiki, FormatMarkdown)
	}
}

// Identity is used when the wiki stores Markdown natively.
type Identity struct{}

// ToRemote returns text unchanged.
func (Identity) ToRemote(text string) string { return text }

// ToLocal returns text unchanged.
func (Identity) ToLocal(text string) (string, []string) { return text, nil }

var markdownToTracLang = map[string]string{
	"bash":      "sh",
	"shell":     "sh",
	"zsh":       "sh",
	"js":        "javascript",
	"ts":        "typescript",
	"c++":       "cpp",
	"plaintext": "text",
	"plain":     "text",
}

var tracToMarkdownLang = map[string]string{
	"sh": "bash",
}

func tracLang(md string) string {
	md = strings.ToLower(md)
	if l, ok := markdownToTracLang[md]; ok {
		return l
	}
	return md
}

func markdownLang(trac string) string {
	trac = strings.ToLower(trac)
	if l, ok := tracToMarkdownLang[trac]; ok {
		return l
	}
	return trac
}
