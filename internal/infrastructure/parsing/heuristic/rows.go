package heuristic

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

var (
	annotatedRow = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s+` + unitPattern + `\.?\s+(.+?)\s*(?:\(([^)]*)\)\s*)?(local|imported|domestic|regional)?\s*\$\s?` + amountPattern)
	plainRow     = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s+` + unitPattern + `\.?\s+([^$]+?)\s*\$\s?` + amountPattern)
)

type rowStrategy struct {
	name       string
	confidence float64
	match      func(row string) (domain.ExtractedItem, bool)
}

// rowStrategies are tried in order; the first match wins.
var rowStrategies = []rowStrategy{
	{name: "annotated", confidence: fullMatchConfidence, match: matchAnnotated},
	{name: "plain", confidence: fullMatchConfidence, match: matchPlain},
	{name: "last_resort", confidence: lastResortConfidence, match: matchLastResort},
}

func parseRow(row string) (domain.ExtractedItem, bool) {
	for _, s := range rowStrategies {
		item, ok := s.match(row)
		if !ok {
			continue
		}
		item.Confidence = s.confidence
		item.Category = categorize(item.Name)
		return item, true
	}
	return domain.ExtractedItem{}, false
}

func matchAnnotated(row string) (domain.ExtractedItem, bool) {
	m := annotatedRow.FindStringSubmatch(row)
	if m == nil {
		return domain.ExtractedItem{}, false
	}
	note, origin := strings.TrimSpace(m[4]), strings.TrimSpace(m[5])
	if note == "" && origin == "" {
		return domain.ExtractedItem{}, false
	}

	parts := []string{collapseSpaces(m[3])}
	attrs := make(map[string]string, 2)
	if note != "" {
		parts = append(parts, "("+note+")")
		attrs["note"] = note
	}
	if origin != "" {
		parts = append(parts, origin)
		attrs["origin"] = strings.ToLower(origin)
	}
	return buildItem(strings.Join(parts, " "), m[1], m[2], m[6], attrs)
}

func matchPlain(row string) (domain.ExtractedItem, bool) {
	m := plainRow.FindStringSubmatch(row)
	if m == nil {
		return domain.ExtractedItem{}, false
	}
	return buildItem(collapseSpaces(m[3]), m[1], m[2], m[4], nil)
}

// matchLastResort accepts any row with a quantity and known unit followed by
// a currency amount, tolerating punctuation noise before the quantity and
// pipe column separators.
func matchLastResort(row string) (domain.ExtractedItem, bool) {
	row = unpipe(row)
	qu := quantityUnit.FindStringSubmatchIndex(row)
	if qu == nil || strings.IndexFunc(row[:qu[0]], unicode.IsLetter) >= 0 {
		return domain.ExtractedItem{}, false
	}
	rest := row[qu[1]:]
	price := currencyAmount.FindStringSubmatchIndex(rest)
	if price == nil {
		return domain.ExtractedItem{}, false
	}

	name := strings.Trim(collapseSpaces(strings.ReplaceAll(rest[:price[0]], "\t", " ")), " .,:;-")
	if len(name) <= 2 || strings.IndexFunc(name, unicode.IsLetter) < 0 {
		return domain.ExtractedItem{}, false
	}
	return buildItem(name, row[qu[2]:qu[3]], row[qu[4]:qu[5]], rest[price[2]:price[3]], nil)
}

func buildItem(name, quantity, unit, price string, attrs map[string]string) (domain.ExtractedItem, bool) {
	qty, err := strconv.ParseFloat(quantity, 64)
	if err != nil {
		return domain.ExtractedItem{}, false
	}
	amount, ok := parseAmount(price)
	if !ok {
		return domain.ExtractedItem{}, false
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	return domain.ExtractedItem{
		Name:       name,
		Quantity:   qty,
		Unit:       domain.NormalizeUnit(unit),
		Price:      amount,
		Attributes: attrs,
	}, true
}
