package domain

import "time"

type InvoiceStatus string

const (
	StatusUploaded   InvoiceStatus = "uploaded"
	StatusProcessing InvoiceStatus = "processing"
	StatusCompleted  InvoiceStatus = "completed"
	StatusFailed     InvoiceStatus = "failed"
)

// Invoice is the stored record of an uploaded supplier invoice.
type Invoice struct {
	ID             string             `json:"id"`
	Filename       string             `json:"filename"`
	MimeType       string             `json:"mime_type"`
	StoragePath    string             `json:"storage_path"`
	Status         InvoiceStatus      `json:"status"`
	RecognizedText string             `json:"recognized_text,omitempty"`
	Extraction     *InvoiceExtraction `json:"extraction,omitempty"`
	Error          string             `json:"error,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	ProcessedAt    *time.Time         `json:"processed_at,omitempty"`
}

// ModelStatus describes what the structured-extraction service reports about itself.
type ModelStatus struct {
	Available       bool     `json:"available"`
	ConfiguredModel string   `json:"configured_model"`
	Model           string   `json:"model,omitempty"`
	Substituted     bool     `json:"substituted,omitempty"`
	Models          []string `json:"models,omitempty"`
	Reason          string   `json:"reason,omitempty"`
}

type ServiceStatus struct {
	Extraction           ModelStatus `json:"extraction"`
	RecognizerConfigured bool        `json:"recognizer_configured"`
	ReadyForProcessing   bool        `json:"ready_for_processing"`
}
