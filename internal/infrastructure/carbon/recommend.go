package carbon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

const (
	maxSubstitutions  = 3
	substitutionShare = 0.6
)

func (e *Estimator) recommend(lines []domain.CarbonLineResult) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, maxSubstitutions+1)

	high := make([]domain.CarbonLineResult, 0)
	for _, line := range lines {
		if line.ImpactLevel == domain.ImpactHigh {
			high = append(high, line)
		}
	}
	sort.SliceStable(high, func(i, j int) bool {
		return high[i].TotalCo2 > high[j].TotalCo2
	})
	for i, line := range high {
		if i == maxSubstitutions {
			break
		}
		alts := e.alternatives(line)
		out = append(out, domain.Recommendation{
			Kind:               "substitution",
			Item:               line.Item.Name,
			Message:            fmt.Sprintf("Consider %s instead of %s", strings.Join(alts, ", "), line.Item.Name),
			Alternatives:       alts,
			PotentialSavingsKg: round(line.TotalCo2*substitutionShare, 1),
		})
	}

	for _, line := range lines {
		if !line.IsLocal {
			out = append(out, domain.Recommendation{
				Kind:    "sourcing",
				Message: "Source more ingredients locally to cut transportation emissions",
			})
			break
		}
	}
	return out
}

func (e *Estimator) alternatives(line domain.CarbonLineResult) []string {
	lower := strings.ToLower(line.Item.Name)
	for _, s := range e.table.substitutions {
		if containsAny(lower, lowerAll(s.Keywords)) {
			return s.Alternatives
		}
	}
	switch line.Category {
	case "dairy":
		return []string{"plant-based alternatives", "reduced quantities"}
	case "vegetables":
		return []string{"local produce", "seasonal produce"}
	default:
		return []string{"local produce", "organic produce", "seasonal produce"}
	}
}
