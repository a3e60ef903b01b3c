package domain

import "time"

type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// MatchKind tells which lookup tier resolved an intensity.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchPartial  MatchKind = "partial"
	MatchCategory MatchKind = "category"
	MatchDefault  MatchKind = "default"
)

type CarbonLineResult struct {
	Item            ExtractedItem `json:"item"`
	CarbonIntensity float64       `json:"carbon_intensity"`
	TotalCo2        float64       `json:"total_co2"`
	ImpactLevel     ImpactLevel   `json:"impact_level"`
	Category        string        `json:"category"`
	Co2PerDollar    float64       `json:"co2_per_dollar"`
	IsLocal         bool          `json:"is_local"`
	IsOrganic       bool          `json:"is_organic"`
	MatchKind       MatchKind     `json:"match_kind"`
}

type Recommendation struct {
	Kind               string   `json:"kind"`
	Item               string   `json:"item,omitempty"`
	Message            string   `json:"message"`
	Alternatives       []string `json:"alternatives,omitempty"`
	PotentialSavingsKg float64  `json:"potential_savings_kg,omitempty"`
}

type ReportSummary struct {
	TotalItems       int     `json:"total_items"`
	HighImpactItems  int     `json:"high_impact_items"`
	LocalItems       int     `json:"local_items"`
	OrganicItems     int     `json:"organic_items"`
	AveragePerItemKg float64 `json:"average_per_item_kg"`
	TotalSpend       float64 `json:"total_spend"`
}

type SustainabilityReport struct {
	TotalEmissions  float64            `json:"total_emissions"`
	PerItem         []CarbonLineResult `json:"per_item"`
	ByCategory      map[string]float64 `json:"by_category"`
	Score           int                `json:"score"`
	Recommendations []Recommendation   `json:"recommendations"`
	Summary         ReportSummary      `json:"summary"`
}

// InvoiceAnalysis pairs a stored invoice with its derived report.
type InvoiceAnalysis struct {
	InvoiceID  string               `json:"invoice_id"`
	VendorName *string              `json:"vendor_name"`
	Report     SustainabilityReport `json:"report"`
}

// FootprintReport aggregates completed invoices over a trailing window.
type FootprintReport struct {
	PeriodDays   int                  `json:"period_days"`
	InvoiceCount int                  `json:"invoice_count"`
	Report       SustainabilityReport `json:"report"`
}

// DashboardInvoice is one row of the dashboard's recent-invoice list.
type DashboardInvoice struct {
	ID             string     `json:"id"`
	Filename       string     `json:"filename"`
	VendorName     string     `json:"vendor_name"`
	TotalEmissions float64    `json:"total_emissions"`
	Score          int        `json:"score"`
	ProcessedAt    *time.Time `json:"processed_at"`
}

// Dashboard summarises every completed invoice: aggregate emissions by
// category plus the most recently processed invoices, newest first.
type Dashboard struct {
	TotalEmissions float64            `json:"total_emissions"`
	TotalInvoices  int                `json:"total_invoices"`
	AverageScore   int                `json:"average_score"`
	ByCategory     map[string]float64 `json:"by_category"`
	Recent         []DashboardInvoice `json:"recent"`
}
