package ollama

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/parsing/dates"
)

const defaultModelConfidence = 0.8

//go:embed item.schema.json
var itemSchemaJSON []byte

var (
	itemSchema    = mustCompileItemSchema()
	leadingNumber = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?|-?\.\d+`)
)

func mustCompileItemSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("item.schema.json", bytes.NewReader(itemSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add item schema: %v", err))
	}
	schema, err := compiler.Compile("item.schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile item schema: %v", err))
	}
	return schema
}

// coerceExtraction converts a loosely typed model object into an extraction.
// Items that fail validation are dropped and counted.
func coerceExtraction(obj map[string]any) (*domain.InvoiceExtraction, int) {
	out := &domain.InvoiceExtraction{
		Items:         []domain.ExtractedItem{},
		ParsingMethod: domain.MethodHybrid,
		Confidence:    defaultModelConfidence,
	}

	if v, ok := coerceString(field(obj, "vendorName", "vendor_name", "vendor")); ok {
		out.VendorName = &v
	}
	if v, ok := coerceFloat(field(obj, "totalAmount", "total_amount", "total")); ok && v > 0 {
		out.TotalAmount = &v
	}
	if v, ok := coerceString(field(obj, "invoiceDate", "invoice_date", "date")); ok {
		normalized, _ := dates.Normalize(v)
		out.InvoiceDate = &normalized
	}
	if v, ok := coerceFloat(field(obj, "confidence", "parsingConfidence", "parsing_confidence")); ok {
		out.Confidence = clamp01(v)
	}

	rawItems, _ := field(obj, "items", "line_items", "lineItems").([]any)
	dropped := 0
	for _, raw := range rawItems {
		m, ok := raw.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		item := coerceItem(m)
		if err := itemSchema.Validate(itemDocument(item)); err != nil {
			dropped++
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out, dropped
}

func coerceItem(m map[string]any) domain.ExtractedItem {
	item := domain.ExtractedItem{
		Quantity:   1,
		Unit:       domain.UnitEach,
		Category:   domain.CategoryOther,
		Confidence: defaultModelConfidence,
	}
	if v, ok := coerceString(field(m, "name", "item", "description")); ok {
		item.Name = v
	}
	if v, ok := coerceFloat(field(m, "quantity", "qty")); ok {
		item.Quantity = v
	}
	if v, ok := coerceString(field(m, "unit", "uom")); ok {
		item.Unit = domain.NormalizeUnit(v)
	}
	if v, ok := coerceFloat(field(m, "price", "unitPrice", "unit_price")); ok {
		item.Price = v
	}
	if v, ok := coerceString(field(m, "category")); ok {
		item.Category = domain.NormalizeCategory(v)
	}
	if v, ok := coerceFloat(field(m, "confidence")); ok {
		item.Confidence = clamp01(v)
	}
	return item
}

func itemDocument(item domain.ExtractedItem) map[string]any {
	return map[string]any{
		"name":       item.Name,
		"quantity":   item.Quantity,
		"unit":       string(item.Unit),
		"price":      item.Price,
		"category":   string(item.Category),
		"confidence": item.Confidence,
	}
}

func field(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func coerceString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return "", false
	}
	s = strings.Join(strings.Fields(s), " ")
	switch strings.ToLower(s) {
	case "", "null", "none", "n/a", "unknown":
		return "", false
	}
	return s, true
}

func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case bool:
		return 0, false
	case string:
		m := leadingNumber.FindString(t)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
