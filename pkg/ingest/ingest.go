// Package ingest turns pasted or uploaded bytes into document text.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrTooLarge    = errors.New("document exceeds the size limit")
	ErrInvalidText = errors.New("document is not valid UTF-8 or UTF-16 text")
)

// DefaultExtensions are the file types offered by the upload picker.
var DefaultExtensions = []string{".txt", ".md", ".json", ".py", ".js", ".ts", ".html", ".css"}

const DefaultMaxBytes = 2 << 20

// NFCWarning is attached to a document whose text changed under NFC.
const NFCWarning = "Text was normalized to Unicode NFC; some characters were recomposed."

type Document struct {
	FileName string
	Text     string
	Encoding string
	// Warnings are advisory; the document is still usable.
	Warnings []string
}

type Ingester struct {
	maxBytes   int
	extensions []string
	nfc        bool
}

type Option func(*Ingester)

// WithNFC normalizes decoded text to NFC. Text is kept byte for byte by
// default.
func WithNFC(enabled bool) Option {
	return func(i *Ingester) {
		i.nfc = enabled
	}
}

func NewIngester(maxBytes int, extensions []string, opts ...Option) *Ingester {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	ing := &Ingester{maxBytes: maxBytes, extensions: exts}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Read consumes at most the size limit plus one byte from r.
func (i *Ingester) Read(fileName string, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(i.maxBytes)+1))
	if err != nil {
		return nil, err
	}
	return i.Decode(fileName, data)
}

// Decode detects a UTF-8 or UTF-16 byte order mark and rejects anything
// that is not valid text. With WithNFC the result is normalized and a
// warning records any change.
func (i *Ingester) Decode(fileName string, data []byte) (*Document, error) {
	if len(data) > i.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes max)", ErrTooLarge, i.maxBytes)
	}

	doc := &Document{FileName: fileName, Encoding: "utf-8"}
	if fileName != "" && !i.Allowed(fileName) {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s is not a recognised text file type; loading it anyway.", filepath.Ext(fileName)))
	}

	var text []byte
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
		}
		text = out
		doc.Encoding = "utf-16"
	default:
		text = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	}

	if !utf8.Valid(text) {
		return nil, ErrInvalidText
	}
	if bytes.IndexByte(text, 0) >= 0 {
		return nil, fmt.Errorf("%w: contains NUL bytes", ErrInvalidText)
	}

	doc.Text = string(text)
	if i.nfc && !norm.NFC.IsNormalString(doc.Text) {
		doc.Text = norm.NFC.String(doc.Text)
		doc.Warnings = append(doc.Warnings, NFCWarning)
	}
	return doc, nil
}

// Allowed reports whether fileName has one of the configured extensions.
func (i *Ingester) Allowed(fileName string) bool {
	return slices.Contains(i.extensions, strings.ToLower(filepath.Ext(fileName)))
}

func (i *Ingester) MaxBytes() int {
	return i.maxBytes
}
