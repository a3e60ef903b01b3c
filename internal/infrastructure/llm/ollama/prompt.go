package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

const maxPromptTextRunes = 12000

func buildExtractionPrompt(text string, hint *domain.InvoiceExtraction) string {
	var b strings.Builder
	b.WriteString("You extract structured data from supplier invoices for a restaurant.\n")
	b.WriteString("Return ONLY one JSON object, no prose and no markdown, with this shape:\n")
	b.WriteString(`{"vendorName": string|null, "totalAmount": number|null, "invoiceDate": "YYYY-MM-DD"|null, "confidence": number, "items": [{"name": string, "quantity": number, "unit": "lb|box|case|bottle|gal|bb|each", "price": number, "category": "protein|vegetables|dairy|grains|beverages|other", "confidence": number}]}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- price is the unit price as printed, a positive number without currency symbols.\n")
	b.WriteString("- quantity is a positive number; use 1 when the invoice does not show one.\n")
	b.WriteString("- Skip subtotal, tax, delivery and total lines; they are not items.\n")
	b.WriteString("- Keep origin words such as Local, Organic or Imported in the item name.\n")
	b.WriteString("- Use null for fields that are not present. Do not invent values.\n")

	if hint != nil {
		if encoded, err := json.Marshal(hintView(hint)); err == nil {
			b.WriteString("\nPRE-EXTRACTED FIELDS (from a pattern parser, may be incomplete or wrong):\n")
			b.Write(encoded)
			b.WriteString("\n")
		}
	}

	runes := []rune(text)
	if len(runes) > maxPromptTextRunes {
		runes = runes[:maxPromptTextRunes]
	}
	fmt.Fprintf(&b, "\nINVOICE TEXT:\n%s\n\nJSON:", string(runes))
	return b.String()
}

type hintItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

type hintPayload struct {
	VendorName  *string    `json:"vendorName"`
	TotalAmount *float64   `json:"totalAmount"`
	InvoiceDate *string    `json:"invoiceDate"`
	Items       []hintItem `json:"items"`
}

func hintView(e *domain.InvoiceExtraction) hintPayload {
	items := make([]hintItem, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, hintItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Unit:     string(it.Unit),
			Price:    it.Price,
			Category: string(it.Category),
		})
	}
	return hintPayload{
		VendorName:  e.VendorName,
		TotalAmount: e.TotalAmount,
		InvoiceDate: e.InvoiceDate,
		Items:       items,
	}
}
