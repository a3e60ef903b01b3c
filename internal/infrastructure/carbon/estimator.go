// Package carbon estimates purchase emissions for extracted invoice items.
package carbon

import (
	"math"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

const (
	highImpactAbove   = 20.0
	mediumImpactAbove = 5.0
	emptyReportScore  = 50
	minReverseMatch   = 3
)

type Estimator struct {
	table *Table
}

func NewEstimator(table *Table) *Estimator {
	if table == nil {
		table = DefaultTable()
	}
	return &Estimator{table: table}
}

// Resolve returns the carbon intensity for an item name and the lookup tier
// that produced it: exact name, substring with origin modifier, keyword
// category, then the table default.
func (e *Estimator) Resolve(name string) (float64, domain.MatchKind) {
	lower := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if v, ok := e.table.exact[lower]; ok {
		return v, domain.MatchExact
	}

	for _, entry := range e.table.entries {
		if strings.Contains(lower, entry.Name) || (len(lower) >= minReverseMatch && strings.Contains(entry.Name, lower)) {
			return entry.Value * e.modifier(lower), domain.MatchPartial
		}
	}

	for _, fb := range e.table.fallbacks {
		if containsAny(lower, fb.Keywords) {
			return fb.Intensity, domain.MatchCategory
		}
	}
	return e.table.defaultIntensity, domain.MatchDefault
}

// modifier applies at most one origin adjustment; local beats organic beats imported.
func (e *Estimator) modifier(lower string) float64 {
	switch {
	case strings.Contains(lower, "local"):
		return e.table.modifiers.Local
	case strings.Contains(lower, "organic"):
		return e.table.modifiers.Organic
	case strings.Contains(lower, "imported"):
		return e.table.modifiers.Imported
	default:
		return 1
	}
}

// Category buckets an item name for the report breakdown.
func (e *Estimator) Category(name string) string {
	lower := strings.ToLower(name)
	for _, c := range e.table.categories {
		if containsAny(lower, c.Keywords) {
			return c.Name
		}
	}
	return "other"
}

func (e *Estimator) Line(item domain.ExtractedItem) domain.CarbonLineResult {
	intensity, kind := e.Resolve(item.Name)
	total := item.Quantity * intensity
	lower := strings.ToLower(item.Name)

	line := domain.CarbonLineResult{
		Item:            item,
		CarbonIntensity: intensity,
		TotalCo2:        round(total, 3),
		ImpactLevel:     impactLevel(intensity),
		Category:        e.Category(item.Name),
		IsLocal:         strings.Contains(lower, "local"),
		IsOrganic:       strings.Contains(lower, "organic"),
		MatchKind:       kind,
	}
	if spend := item.Quantity * item.Price; spend > 0 {
		line.Co2PerDollar = round(total/spend, 3)
	}
	return line
}

// Estimate builds the sustainability report for the valid items; rows with a
// blank name or a non-positive quantity or price contribute nothing.
func (e *Estimator) Estimate(items []domain.ExtractedItem) domain.SustainabilityReport {
	report := domain.SustainabilityReport{
		PerItem:         make([]domain.CarbonLineResult, 0, len(items)),
		ByCategory:      make(map[string]float64),
		Score:           emptyReportScore,
		Recommendations: []domain.Recommendation{},
	}

	total, spend, scoreSum := 0.0, 0.0, 0
	for _, item := range items {
		if !item.Valid() {
			continue
		}
		line := e.Line(item)
		report.PerItem = append(report.PerItem, line)
		report.ByCategory[line.Category] += line.TotalCo2

		total += line.TotalCo2
		spend += item.Quantity * item.Price
		scoreSum += itemScore(line)

		if line.ImpactLevel == domain.ImpactHigh {
			report.Summary.HighImpactItems++
		}
		if line.IsLocal {
			report.Summary.LocalItems++
		}
		if line.IsOrganic {
			report.Summary.OrganicItems++
		}
	}
	for k, v := range report.ByCategory {
		report.ByCategory[k] = round(v, 2)
	}

	report.TotalEmissions = round(total, 2)
	counted := len(report.PerItem)
	report.Summary.TotalItems = counted
	report.Summary.TotalSpend = round(spend, 2)
	if counted > 0 {
		report.Score = scoreSum / counted
		report.Summary.AveragePerItemKg = round(total/float64(counted), 2)
	}
	report.Recommendations = e.recommend(report.PerItem)
	return report
}

func impactLevel(intensity float64) domain.ImpactLevel {
	switch {
	case intensity > highImpactAbove:
		return domain.ImpactHigh
	case intensity > mediumImpactAbove:
		return domain.ImpactMedium
	default:
		return domain.ImpactLow
	}
}

func itemScore(line domain.CarbonLineResult) int {
	score := 80
	switch line.ImpactLevel {
	case domain.ImpactHigh:
		score = 20
	case domain.ImpactMedium:
		score = 50
	}
	if line.IsLocal {
		score += 15
	}
	if line.IsOrganic {
		score += 10
	}
	return min(score, 100)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
