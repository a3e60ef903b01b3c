package layout

import (
	"sort"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

const (
	DefaultRowTolerance  = 10.0
	DefaultMinConfidence = 0.5
	DefaultNarrowGap     = 50.0
	DefaultWideGap       = 100.0
)

// Reconstructor groups positioned fragments into text rows that keep a rough
// column alignment, so regex parsing downstream can see table boundaries.
type Reconstructor struct {
	RowTolerance  float64
	MinConfidence float64
	NarrowGap     float64
	WideGap       float64
}

func NewReconstructor(rowTolerance, minConfidence float64) *Reconstructor {
	if rowTolerance <= 0 {
		rowTolerance = DefaultRowTolerance
	}
	if minConfidence < 0 || minConfidence > 1 {
		minConfidence = DefaultMinConfidence
	}
	return &Reconstructor{
		RowTolerance:  rowTolerance,
		MinConfidence: minConfidence,
		NarrowGap:     DefaultNarrowGap,
		WideGap:       DefaultWideGap,
	}
}

func (r *Reconstructor) Reconstruct(fragments []domain.PositionedFragment) ([]domain.ReconstructedLine, error) {
	kept := make([]domain.PositionedFragment, 0, len(fragments))
	for _, f := range fragments {
		if err := f.Validate(); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "reconstruct layout", err)
		}
		if f.Confidence < r.MinConfidence || strings.TrimSpace(f.Text) == "" {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return []domain.ReconstructedLine{}, nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CenterY() < kept[j].CenterY()
	})

	var rows [][]domain.PositionedFragment
	anchor := 0.0
	for _, f := range kept {
		y := f.CenterY()
		if len(rows) == 0 || y-anchor >= r.RowTolerance {
			rows = append(rows, []domain.PositionedFragment{f})
			anchor = y
			continue
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], f)
	}

	out := make([]domain.ReconstructedLine, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].CenterX() < row[j].CenterX()
		})
		out = append(out, domain.ReconstructedLine{
			Text:      r.joinRow(row),
			Fragments: row,
		})
	}
	return out, nil
}

func (r *Reconstructor) joinRow(row []domain.PositionedFragment) string {
	var b strings.Builder
	for i, f := range row {
		if i > 0 {
			b.WriteString(r.separator(f.MinX() - row[i-1].MaxX()))
		}
		b.WriteString(strings.TrimSpace(f.Text))
	}
	return b.String()
}

func (r *Reconstructor) separator(gap float64) string {
	switch {
	case gap > r.WideGap:
		return "    "
	case gap >= r.NarrowGap:
		return "  "
	default:
		return " "
	}
}

// Lines flattens reconstructed rows into plain text lines.
func Lines(rows []domain.ReconstructedLine) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Text)
	}
	return out
}

// Text joins reconstructed rows with newlines.
func Text(rows []domain.ReconstructedLine) string {
	return strings.Join(Lines(rows), "\n")
}
