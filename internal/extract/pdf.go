package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var errNoPageObject = errors.New("page object missing")

// pageSource is the per-page view of a PDF that extraction needs.
type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

type pdfSource struct {
	r *pdf.Reader
}

func (s pdfSource) NumPage() int { return s.r.NumPage() }

func (s pdfSource) PageText(num int) (string, error) {
	p := s.r.Page(num)
	if p.V.IsNull() {
		return "", errNoPageObject
	}
	return p.GetPlainText(nil)
}

// pdfPages returns one string per page. Pages that fail to decode are
// returned as "" and listed (1-based) in degraded.
func pdfPages(data []byte) (pages []string, degraded []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, degraded, err = nil, nil, fmt.Errorf("open pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	pages, degraded = readPages(pdfSource{r: r})
	return pages, degraded, nil
}

func readPages(src pageSource) (pages []string, degraded []int) {
	n := src.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, ok := pageText(src, i)
		if !ok {
			degraded = append(degraded, i)
		}
		pages = append(pages, text)
	}
	return pages, degraded
}

func pageText(src pageSource, num int) (text string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			text, ok = "", false
		}
	}()
	text, err := src.PageText(num)
	if err != nil {
		return "", false
	}
	return text, true
}
