package heuristic

import (
	"regexp"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/infrastructure/parsing/dates"
)

const amountPattern = `([0-9][0-9,]*(?:\.[0-9]+)?)`

var vendorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([A-Z][A-Z0-9&,.'\- ]*\b(?:DISTRIBUTORS?|COMPANY|FARMS?|MARKET|FOODS|SUPPLY|PRODUCE|LLC|INC|CO|CORP|LTD|Inc|Co|Corp|Ltd)\b\.?)`),
	regexp.MustCompile(`(?i)^([a-z][a-z0-9&,.'\- ]*\b(?:distributors?|company|farms?|market|foods|supply|produce|llc|inc|co|corp|ltd)\b\.?)`),
	regexp.MustCompile(`(?i)\b(?:from|vendor|supplier|sold\s+by)\s*:\s*(.+)$`),
}

var (
	subtotalLine   = regexp.MustCompile(`(?i)sub[\s-]?total`)
	globalTotal    = regexp.MustCompile(`(?i)\b(?:grand\s+)?total\b\s*:?\s*\$?\s*` + amountPattern)
	amountOnlyLine = regexp.MustCompile(`^\$\s?` + amountPattern + `$`)
)

var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bgrand\s+total\b\s*:?\s*\$?\s*` + amountPattern),
	regexp.MustCompile(`(?i)\b(?:invoice\s+)?total\b(?:\s+due)?\s*:?\s*\$?\s*` + amountPattern),
	regexp.MustCompile(`(?i)\bamount\s+due\b\s*:?\s*\$?\s*` + amountPattern),
	regexp.MustCompile(`(?i)\bbalance(?:\s+due)?\b\s*:?\s*\$?\s*` + amountPattern),
}

const monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(` + monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?\s+\d{4})\b`),
	regexp.MustCompile(`\b(\d{4}[-/]\d{1,2}[-/]\d{1,2})\b`),
	regexp.MustCompile(`\b(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\b`),
}

func findVendor(lines []string) *string {
	for i, line := range lines {
		if i >= vendorScanLines {
			break
		}
		if len(line) < 5 {
			continue
		}
		for _, re := range vendorPatterns {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := strings.TrimRight(collapseSpaces(m[1]), ",;:- ")
			if len(name) < 3 {
				continue
			}
			return &name
		}
	}
	return nil
}

func findTotal(lines []string) *float64 {
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if subtotalLine.MatchString(line) {
			continue
		}
		for _, re := range totalPatterns {
			if m := re.FindStringSubmatch(line); m != nil {
				if v, ok := parseAmount(m[1]); ok {
					return &v
				}
			}
		}
	}

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if !subtotalLine.MatchString(line) {
			kept = append(kept, line)
		}
	}
	joined := strings.Join(kept, "\n")
	if matches := globalTotal.FindAllStringSubmatch(joined, -1); len(matches) > 0 {
		if v, ok := parseAmount(matches[len(matches)-1][1]); ok {
			return &v
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		if m := amountOnlyLine.FindStringSubmatch(lines[i]); m != nil {
			if v, ok := parseAmount(m[1]); ok {
				return &v
			}
		}
	}
	return nil
}

func findDate(lines []string) *string {
	for i, line := range lines {
		if i >= dateScanLines {
			break
		}
		for _, re := range datePatterns {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			value, _ := dates.Normalize(m[1])
			return &value
		}
	}
	return nil
}
