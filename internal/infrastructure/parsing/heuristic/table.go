package heuristic

import (
	"regexp"
	"strings"
)

const unitPattern = `(lbs?|pounds?|box(?:es)?|cases?|bottles?|gal(?:lons?|s)?|bb|each|ea)`

var (
	rowShape       = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?\s*` + unitPattern + `\b.*\$\s?[0-9]`)
	stopWords      = regexp.MustCompile(`(?i)\b(?:sub[\s-]?total|tax|delivery|total)\b`)
	separatorLine  = regexp.MustCompile(`^[-=_*.\s|+]+$`)
	quantityUnit   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*` + unitPattern + `\b`)
	runOnAnchor    = regexp.MustCompile(`(?i)\b\d+\s+` + unitPattern + `\s+`)
	currencyAmount = regexp.MustCompile(`\$\s?` + amountPattern)
)

// tableRows returns the candidate item rows of a document in reading order.
func (p *Parser) tableRows(lines []string) []string {
	if len(lines) == 1 && len(lines[0]) > p.RunOnMinChars {
		return p.splitRunOn(lines[0])
	}

	start := headerIndex(lines)
	if start < 0 {
		for i, line := range lines {
			if rowShape.MatchString(unpipe(line)) {
				start = i
				break
			}
		}
		if start < 0 {
			return nil
		}
	} else {
		start++
	}

	rows := make([]string, 0, len(lines)-start)
	for _, line := range lines[start:] {
		if stopWords.MatchString(line) {
			break
		}
		if len(line) < minRowChars || separatorLine.MatchString(line) {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}

// unpipe turns a "|"-delimited recognizer row into a space-separated one.
func unpipe(line string) string {
	if !strings.Contains(line, "|") {
		return line
	}
	return collapseSpaces(strings.ReplaceAll(line, "|", " "))
}

func headerIndex(lines []string) int {
	for i, line := range lines {
		lower := strings.ToLower(line)
		hasQty := strings.Contains(lower, "qty") || strings.Contains(lower, "quantity")
		hasItem := strings.Contains(lower, "item") || strings.Contains(lower, "description")
		if hasQty && hasItem && strings.Contains(lower, "unit") {
			return i
		}
	}
	return -1
}

// splitRunOn breaks a document that arrived as one line into item candidates,
// first at "<qty> <unit>" anchors and, when that yields too few, after every
// currency amount.
func (p *Parser) splitRunOn(text string) []string {
	anchored := splitAtAnchors(text)
	if len(anchored) >= p.MinRunOnCandidates {
		return anchored
	}
	loose := splitAfterPrices(text)
	if len(loose) == 0 {
		return anchored
	}
	return loose
}

func splitAtAnchors(text string) []string {
	locs := runOnAnchor.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segment := truncateAtStopWord(strings.TrimSpace(text[loc[0]:end]))
		if strings.Contains(segment, "$") && len(segment) > 10 {
			out = append(out, segment)
		}
	}
	return out
}

func splitAfterPrices(text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	prev := 0
	for _, loc := range currencyAmount.FindAllStringIndex(text, -1) {
		segment := text[prev:loc[1]]
		prev = loc[1]

		qu := quantityUnit.FindStringIndex(segment)
		if qu == nil {
			continue
		}
		segment = strings.TrimSpace(segment[qu[0]:])
		if len(segment) <= 15 || !strings.Contains(segment, "$") {
			continue
		}
		key := strings.ToLower(segment)
		if len(key) > 40 {
			key = key[:40]
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, segment)
	}
	return out
}

func truncateAtStopWord(segment string) string {
	if loc := stopWords.FindStringIndex(segment); loc != nil {
		return strings.TrimSpace(segment[:loc[0]])
	}
	return segment
}
