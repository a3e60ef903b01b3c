// Package pdftext reads positioned text runs from PDF invoices.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

// wordGapFactor is the gap between glyph runs, relative to font size,
// above which two runs become separate fragments.
const wordGapFactor = 0.3

// Pages returns one fragment list per non-empty page. Coordinates are
// flipped so y grows downwards like image recognizer output.
func Pages(r io.Reader) ([][]domain.PositionedFragment, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "open pdf", err)
	}

	pages := make([][]domain.PositionedFragment, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		var frags []domain.PositionedFragment
		for _, row := range rows {
			frags = append(frags, rowFragments(row.Content)...)
		}
		if len(frags) > 0 {
			pages = append(pages, frags)
		}
	}
	return pages, nil
}

func rowFragments(texts []pdf.Text) []domain.PositionedFragment {
	var (
		out      []domain.PositionedFragment
		word     strings.Builder
		x0, x1   float64
		baseline float64
		size     float64
	)
	flush := func() {
		if s := strings.TrimSpace(word.String()); s != "" {
			out = append(out, fragment(s, x0, x1, baseline, size))
		}
		word.Reset()
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		if word.Len() > 0 && t.X-x1 > wordGapFactor*math.Max(size, t.FontSize) {
			flush()
		}
		if word.Len() == 0 {
			x0, baseline, size = t.X, t.Y, t.FontSize
		}
		word.WriteString(t.S)
		x1 = t.X + t.W
		size = math.Max(size, t.FontSize)
	}
	flush()
	return out
}

func fragment(text string, x0, x1, baseline, size float64) domain.PositionedFragment {
	if size <= 0 {
		size = 1
	}
	top, bottom := -(baseline + size), -baseline
	return domain.PositionedFragment{
		Text:       text,
		Confidence: 1,
		BoundingBox: [4]domain.Point{
			{X: x0, Y: top},
			{X: x1, Y: top},
			{X: x1, Y: bottom},
			{X: x0, Y: bottom},
		},
	}
}
