// Package extract turns uploaded report documents into one plain-text blob.
//
// Two document kinds are supported, chosen by file extension: paginated
// documents (PDF), read page by page, and flowed-paragraph documents (DOCX),
// read paragraph by paragraph. A page that yields no text contributes an
// empty string and is recorded as degraded; only a document that cannot be
// opened at all is an error.
package extract

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"medreport/internal/util"
)

type Kind string

const (
	KindPaginated Kind = "paginated"
	KindFlowed    Kind = "flowed"
)

var kindsByExt = map[string]Kind{
	".pdf":  KindPaginated,
	".docx": KindFlowed,
}

// Document is the extraction result. Text is newline-preserving and may be
// empty when every page failed.
type Document struct {
	Text          string `json:"text"`
	Kind          Kind   `json:"kind"`
	Units         int    `json:"units"`
	DegradedUnits []int  `json:"degraded_units,omitempty"`
}

// Degraded reports whether at least one page or paragraph produced no text
// because of a read failure.
func (d Document) Degraded() bool { return len(d.DegradedUnits) > 0 }

// SupportedExtensions lists the accepted extensions in stable order.
func SupportedExtensions() []string {
	out := make([]string, 0, len(kindsByExt))
	for ext := range kindsByExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func Supported(name string) bool {
	_, ok := kindsByExt[util.Ext(name)]
	return ok
}

func KindFor(name string) (Kind, error) {
	k, ok := kindsByExt[util.Ext(name)]
	if !ok {
		return "", fmt.Errorf("%q: %w", util.Ext(name), util.ErrUnsupportedFormat)
	}
	return k, nil
}

// ExtractFile reads the document at path.
func ExtractFile(path string) (Document, error) {
	kind, err := KindFor(path)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, fmt.Errorf("%s: %w", path, util.ErrNotFound)
		}
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return extract(kind, data)
}

// ExtractBytes reads an in-memory document; name only selects the kind.
func ExtractBytes(data []byte, name string) (Document, error) {
	kind, err := KindFor(name)
	if err != nil {
		return Document{}, err
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("empty upload: %w", util.ErrNotFound)
	}
	return extract(kind, data)
}

func extract(kind Kind, data []byte) (Document, error) {
	var (
		units    []string
		degraded []int
		err      error
	)
	switch kind {
	case KindPaginated:
		units, degraded, err = pdfPages(data)
	case KindFlowed:
		units, err = docxParagraphs(data)
	default:
		return Document{}, util.ErrUnsupportedFormat
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", util.ErrUnreadableDocument, err)
	}
	return assemble(kind, units, degraded), nil
}

func assemble(kind Kind, units []string, degraded []int) Document {
	text := util.NormalizeText(util.SanitizeText(strings.Join(units, "\n")))
	return Document{Text: text, Kind: kind, Units: len(units), DegradedUnits: degraded}
}
