// Package extract turns uploaded or on-disk documents into the plain text
// the engine scans. The format is chosen by file extension.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind is a document family.
type Kind int

const (
	Unsupported Kind = iota
	Plain
	Delimited
	Columnar
	Document
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Delimited:
		return "delimited"
	case Columnar:
		return "columnar"
	case Document:
		return "document"
	}
	return "unsupported"
}

var plainExts = map[string]bool{
	".txt": true, ".text": true, ".log": true, ".md": true,
	".env": true, ".ini": true, ".cfg": true, ".conf": true,
	".yaml": true, ".yml": true, ".json": true, ".xml": true, ".html": true,
	".go": true, ".py": true, ".js": true, ".ts": true, ".java": true,
	".sql": true, ".sh": true,
}

// UnsupportedFormatError reports a document that cannot be turned into text.
type UnsupportedFormatError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *UnsupportedFormatError) Error() string {
	msg := fmt.Sprintf("unsupported format %q: %s", e.Filename, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnsupportedFormatError) Unwrap() error { return e.Err }

// KindOf classifies filename by extension.
func KindOf(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case plainExts[ext]:
		return Plain
	case ext == ".csv" || ext == ".tsv":
		return Delimited
	case ext == ".parquet":
		return Columnar
	case ext == ".docx":
		return Document
	}
	return Unsupported
}

// Supported reports whether Text can handle filename.
func Supported(filename string) bool { return KindOf(filename) != Unsupported }

// Extensions lists every handled extension.
func Extensions() []string {
	out := []string{".csv", ".tsv", ".parquet", ".docx"}
	for e := range plainExts {
		out = append(out, e)
	}
	return out
}

// Text decodes raw according to filename's extension.
func Text(raw []byte, filename string) (string, error) {
	var (
		s   string
		err error
	)
	switch KindOf(filename) {
	case Plain:
		s, err = plain(raw)
	case Delimited:
		comma := ','
		if strings.EqualFold(filepath.Ext(filename), ".tsv") {
			comma = '\t'
		}
		s, err = delimited(raw, comma)
	case Columnar:
		s, err = columnar(raw)
	case Document:
		s, err = document(raw)
	default:
		ext := filepath.Ext(filename)
		if ext == "" {
			ext = "(none)"
		}
		return "", &UnsupportedFormatError{Filename: filename, Reason: "unknown extension " + ext}
	}
	if err != nil {
		var ue *UnsupportedFormatError
		if errors.As(err, &ue) {
			ue.Filename = filename
			return "", ue
		}
		return "", &UnsupportedFormatError{Filename: filename, Reason: "decode failed", Err: err}
	}
	return s, nil
}

var bom = []byte{0xEF, 0xBB, 0xBF}

func plain(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, bom)
	if !utf8.Valid(raw) {
		return "", &UnsupportedFormatError{Reason: "not valid UTF-8 text"}
	}
	return string(raw), nil
}
