// Package extractor turns stored invoice files into reconstructed text,
// picking the reading strategy from the file extension.
package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor/fragments"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor/plaintext"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tiff": {},
	".bmp":  {},
}

type Router struct {
	storage    ports.ObjectStorage
	layout     ports.LayoutReconstructor
	recognizer ports.FragmentRecognizer
}

// NewRouter builds the text extractor. recognizer may be nil, in which case
// image invoices are rejected as unsupported.
func NewRouter(storage ports.ObjectStorage, layout ports.LayoutReconstructor, recognizer ports.FragmentRecognizer) *Router {
	return &Router{storage: storage, layout: layout, recognizer: recognizer}
}

func (r *Router) Extract(ctx context.Context, inv *domain.Invoice) (string, error) {
	reader, err := r.storage.Open(ctx, inv.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open stored invoice: %w", err)
	}
	defer reader.Close()

	ext := strings.ToLower(filepath.Ext(inv.Filename))
	switch {
	case ext == ".txt":
		return plaintext.Read(reader)
	case ext == ".pdf":
		pages, err := pdftext.Pages(reader)
		if err != nil {
			return "", err
		}
		return r.joinPages(pages)
	case ext == ".json":
		raw, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("read fragment dump: %w", err)
		}
		frags, err := fragments.Decode(raw)
		if err != nil {
			return "", err
		}
		return r.joinPages([][]domain.PositionedFragment{frags})
	case isImage(ext):
		if r.recognizer == nil {
			return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("no recognizer configured for %s", ext))
		}
		frags, err := r.recognizer.Recognize(ctx, inv.Filename, reader)
		if err != nil {
			return "", err
		}
		return r.joinPages([][]domain.PositionedFragment{frags})
	default:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("unsupported extension %q", ext))
	}
}

func (r *Router) joinPages(pages [][]domain.PositionedFragment) (string, error) {
	var lines []string
	for _, page := range pages {
		rows, err := r.layout.Reconstruct(page)
		if err != nil {
			return "", err
		}
		for _, row := range rows {
			lines = append(lines, row.Text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func isImage(ext string) bool {
	_, ok := imageExtensions[ext]
	return ok
}
