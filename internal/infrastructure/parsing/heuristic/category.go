package heuristic

import (
	"regexp"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

type categoryRule struct {
	category domain.Category
	pattern  *regexp.Regexp
}

var categoryRules = []categoryRule{
	{domain.CategoryProtein, regexp.MustCompile(`(?i)\b(?:beef|chicken|pork|fish|tuna|salmon|ribeye|steak|lamb|turkey|shrimp|cod|bacon|sausage|duck|veal)`)},
	{domain.CategoryVegetables, regexp.MustCompile(`(?i)\b(?:carrot|kale|arugula|potato|basil|onion|tomato|lettuce|spinach|garlic|cucumber|zucchini|mushroom|greens|herb|pepper)`)},
	{domain.CategoryDairy, regexp.MustCompile(`(?i)\b(?:milk|cheese|butter|cream|eggs|yogurt)`)},
	{domain.CategoryGrains, regexp.MustCompile(`(?i)\b(?:rice|bread|flour|pasta|oats|wheat|quinoa)`)},
	{domain.CategoryBeverages, regexp.MustCompile(`(?i)\b(?:water|coffee|tea|juice|wine|beer|soda)`)},
}

func categorize(name string) domain.Category {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(name) {
			return rule.category
		}
	}
	return domain.CategoryOther
}
