// Package fileio reads and writes local Markdown files, detecting the
// text encoding of files that were not written as UTF-8.
package fileio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported by ReadWithEncoding.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-sig"
	EncodingUTF16LE     = "utf-16-le"
	EncodingUTF16BE     = "utf-16-be"
	EncodingWindows1252 = "windows-1252"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Store is the file access the sync engine needs.
type Store interface {
	Read(path string) (string, error)
	Write(path, text string) error
}

// OS is a Store backed by the local filesystem.
type OS struct{}

var _ Store = OS{}

// Read returns the decoded text of path.
func (OS) Read(path string) (string, error) {
	text, _, err := ReadWithEncoding(path)
	return text, err
}

// Write stores text as UTF-8, creating parent directories.
func (OS) Write(path, text string) error {
	_, err := Write(path, text)
	return err
}

// ReadWithEncoding reads path and decodes it. Detection order is UTF-8 BOM,
// UTF-16 BOMs, valid UTF-8, then Windows-1252 as the fallback. The
// returned error wraps fs.ErrNotExist when the file is absent.
func ReadWithEncoding(path string) (string, string, error) {
	// #nosec G304 - paths come from the configured source tree
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, enc, err := Decode(raw)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return text, enc, nil
}

// Decode converts raw file bytes to a string and names the encoding used.
func Decode(raw []byte) (string, string, error) {
	var (
		dec  *encoding.Decoder
		name string
	)
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return string(raw[len(bomUTF8):]), EncodingUTF8BOM, nil
	case bytes.HasPrefix(raw, bomUTF16LE):
		dec, name = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), EncodingUTF16LE
	case bytes.HasPrefix(raw, bomUTF16BE):
		dec, name = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder(), EncodingUTF16BE
	case utf8.Valid(raw):
		return string(raw), EncodingUTF8, nil
	default:
		dec, name = charmap.Windows1252.NewDecoder(), EncodingWindows1252
	}

	out, err := dec.Bytes(raw)
	if err != nil {
		return "", "", err
	}
	return string(out), name, nil
}

// Write stores text as UTF-8 and returns the number of bytes written.
func Write(path, text string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	data := []byte(text)
	// #nosec G306 - synced documents are meant to be readable
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return len(data), nil
}
