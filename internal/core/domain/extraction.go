package domain

import (
	"fmt"
	"math"
	"strings"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PositionedFragment is one recognized text span with its box and confidence.
type PositionedFragment struct {
	Text        string   `json:"text"`
	Confidence  float64  `json:"confidence"`
	BoundingBox [4]Point `json:"bounding_box"`
}

func (f PositionedFragment) Validate() error {
	if math.IsNaN(f.Confidence) || f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("%w: fragment %q confidence %v outside [0,1]", ErrInvalidInput, f.Text, f.Confidence)
	}
	for _, p := range f.BoundingBox {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: fragment %q has non-finite bounding box", ErrInvalidInput, f.Text)
		}
	}
	return nil
}

func (f PositionedFragment) MinX() float64 {
	return math.Min(math.Min(f.BoundingBox[0].X, f.BoundingBox[1].X), math.Min(f.BoundingBox[2].X, f.BoundingBox[3].X))
}

func (f PositionedFragment) MaxX() float64 {
	return math.Max(math.Max(f.BoundingBox[0].X, f.BoundingBox[1].X), math.Max(f.BoundingBox[2].X, f.BoundingBox[3].X))
}

func (f PositionedFragment) CenterX() float64 {
	return (f.BoundingBox[0].X + f.BoundingBox[1].X + f.BoundingBox[2].X + f.BoundingBox[3].X) / 4
}

func (f PositionedFragment) CenterY() float64 {
	return (f.BoundingBox[0].Y + f.BoundingBox[1].Y + f.BoundingBox[2].Y + f.BoundingBox[3].Y) / 4
}

// ReconstructedLine is one visual row of the page, fragments ordered left to right.
type ReconstructedLine struct {
	Text      string               `json:"text"`
	Fragments []PositionedFragment `json:"fragments,omitempty"`
}

type Unit string

const (
	UnitPound  Unit = "lb"
	UnitBox    Unit = "box"
	UnitCase   Unit = "case"
	UnitBottle Unit = "bottle"
	UnitGallon Unit = "gal"
	UnitBB     Unit = "bb"
	UnitEach   Unit = "each"
)

var unitAliases = map[string]Unit{
	"lb": UnitPound, "lbs": UnitPound, "pound": UnitPound, "pounds": UnitPound,
	"box": UnitBox, "boxes": UnitBox,
	"case": UnitCase, "cases": UnitCase, "cs": UnitCase,
	"bottle": UnitBottle, "bottles": UnitBottle, "btl": UnitBottle,
	"gal": UnitGallon, "gals": UnitGallon, "gallon": UnitGallon, "gallons": UnitGallon,
	"bb": UnitBB,
	"each": UnitEach, "ea": UnitEach, "pc": UnitEach, "pcs": UnitEach, "unit": UnitEach, "units": UnitEach,
}

// ParseUnit maps a unit token to the closed unit set. Unknown tokens report false.
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.Trim(strings.TrimSpace(s), "."))]
	return u, ok
}

// NormalizeUnit is ParseUnit with unknown tokens mapped to each.
func NormalizeUnit(s string) Unit {
	if u, ok := ParseUnit(s); ok {
		return u
	}
	return UnitEach
}

type Category string

const (
	CategoryProtein    Category = "protein"
	CategoryVegetables Category = "vegetables"
	CategoryDairy      Category = "dairy"
	CategoryGrains     Category = "grains"
	CategoryBeverages  Category = "beverages"
	CategoryOther      Category = "other"
)

var categoryAliases = map[string]Category{
	"protein": CategoryProtein, "proteins": CategoryProtein, "meat": CategoryProtein, "seafood": CategoryProtein, "fish": CategoryProtein, "poultry": CategoryProtein,
	"vegetables": CategoryVegetables, "vegetable": CategoryVegetables, "produce": CategoryVegetables, "veg": CategoryVegetables, "herbs": CategoryVegetables,
	"dairy": CategoryDairy, "eggs": CategoryDairy,
	"grains": CategoryGrains, "grain": CategoryGrains, "bakery": CategoryGrains,
	"beverages": CategoryBeverages, "beverage": CategoryBeverages, "drinks": CategoryBeverages, "drink": CategoryBeverages,
	"other": CategoryOther,
}

// NormalizeCategory maps free-form category strings to the closed set, unknowns to other.
func NormalizeCategory(s string) Category {
	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CategoryOther
}

type ExtractedItem struct {
	Name       string            `json:"name"`
	Quantity   float64           `json:"quantity"`
	Unit       Unit              `json:"unit"`
	Price      float64           `json:"price"`
	Category   Category          `json:"category"`
	Confidence float64           `json:"confidence"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Valid reports whether the item may be kept: non-empty name, positive quantity and price.
func (it ExtractedItem) Valid() bool {
	return strings.TrimSpace(it.Name) != "" && it.Quantity > 0 && it.Price > 0
}

type ParsingMethod string

const (
	MethodHeuristic      ParsingMethod = "heuristic"
	MethodHybrid         ParsingMethod = "hybrid"
	MethodHybridFallback ParsingMethod = "hybrid-fallback"
)

// InvoiceExtraction is the structured result of one parse call.
type InvoiceExtraction struct {
	VendorName     *string            `json:"vendor_name"`
	TotalAmount    *float64           `json:"total_amount"`
	InvoiceDate    *string            `json:"invoice_date"`
	Items          []ExtractedItem    `json:"items"`
	ParsingMethod  ParsingMethod      `json:"parsing_method"`
	Confidence     float64            `json:"confidence"`
	Model          string             `json:"model,omitempty"`
	FallbackReason string             `json:"fallback_reason,omitempty"`
	Heuristic      *InvoiceExtraction `json:"heuristic,omitempty"`
}

// Clone returns a deep copy so callers can retag a result without touching the original.
func (e *InvoiceExtraction) Clone() *InvoiceExtraction {
	if e == nil {
		return nil
	}
	out := *e
	if e.VendorName != nil {
		v := *e.VendorName
		out.VendorName = &v
	}
	if e.TotalAmount != nil {
		v := *e.TotalAmount
		out.TotalAmount = &v
	}
	if e.InvoiceDate != nil {
		v := *e.InvoiceDate
		out.InvoiceDate = &v
	}
	out.Items = make([]ExtractedItem, len(e.Items))
	for i, it := range e.Items {
		out.Items[i] = it
		if it.Attributes != nil {
			attrs := make(map[string]string, len(it.Attributes))
			for k, v := range it.Attributes {
				attrs[k] = v
			}
			out.Items[i].Attributes = attrs
		}
	}
	out.Heuristic = e.Heuristic.Clone()
	return &out
}

// EmptyExtraction is the result for input that carries no recognizable text.
func EmptyExtraction(method ParsingMethod) *InvoiceExtraction {
	return &InvoiceExtraction{Items: []ExtractedItem{}, ParsingMethod: method}
}

// ExtractionRequest is the input of one structured-extraction call. Hint is
// the heuristic result passed as context; Model overrides the configured one.
type ExtractionRequest struct {
	Text  string
	Hint  *InvoiceExtraction
	Model string
}
