// Package heuristic extracts invoice fields and table rows from plain text
// lines using ordered pattern lists. It never fails: fields it cannot find
// stay nil and rows it cannot read are skipped.
package heuristic

import (
	"strconv"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

const (
	DefaultRunOnMinChars      = 500
	DefaultMinRunOnCandidates = 4

	vendorScanLines = 5
	dateScanLines   = 10
	minRowChars     = 10

	fullMatchConfidence  = 0.95
	lastResortConfidence = 0.7
)

type Parser struct {
	// RunOnMinChars is the length above which a single-line document is
	// treated as a run-on recognizer dump and split into item candidates.
	RunOnMinChars int
	// MinRunOnCandidates is how many "<qty> <unit>" anchored candidates are
	// needed before the looser price-anchored split is skipped.
	MinRunOnCandidates int
}

func NewParser() *Parser {
	return &Parser{
		RunOnMinChars:      DefaultRunOnMinChars,
		MinRunOnCandidates: DefaultMinRunOnCandidates,
	}
}

func (p *Parser) ParseText(text string) *domain.InvoiceExtraction {
	return p.Parse(strings.Split(text, "\n"))
}

func (p *Parser) Parse(lines []string) *domain.InvoiceExtraction {
	cleaned := cleanLines(lines)
	if len(cleaned) == 0 {
		return domain.EmptyExtraction(domain.MethodHeuristic)
	}

	out := &domain.InvoiceExtraction{
		VendorName:    findVendor(cleaned),
		TotalAmount:   findTotal(cleaned),
		InvoiceDate:   findDate(cleaned),
		Items:         p.parseItems(cleaned),
		ParsingMethod: domain.MethodHeuristic,
	}
	if out.VendorName != nil && len(out.Items) > 0 {
		out.Confidence = 0.9
	} else {
		out.Confidence = 0.5
	}
	return out
}

func (p *Parser) parseItems(lines []string) []domain.ExtractedItem {
	items := make([]domain.ExtractedItem, 0)
	for _, row := range p.tableRows(lines) {
		item, ok := parseRow(row)
		if !ok || !item.Valid() {
			continue
		}
		items = append(items, item)
	}
	return items
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.ReplaceAll(line, "\r", "")
		line = strings.ReplaceAll(line, "\t", "    ")
		line = strings.ReplaceAll(line, " ", " ")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
