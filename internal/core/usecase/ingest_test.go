package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

func TestIngestUploadSuccess(t *testing.T) {
	repo := newInvoiceRepoFake()
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestUseCase(repo, storage, queue)

	inv, err := uc.Upload(context.Background(), "june invoice.pdf", "application/pdf", bytes.NewBufferString("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if inv.ID == "" {
		t.Fatalf("expected invoice id")
	}
	if inv.Status != domain.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", inv.Status)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if len(queue.published) != 1 || queue.published[0] != inv.ID {
		t.Fatalf("expected queued invoice id %s, got %v", inv.ID, queue.published)
	}
	if !strings.HasSuffix(storage.savedKey, "_june_invoice.pdf") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "%PDF-1.4" {
		t.Fatalf("expected saved body, got %q", storage.savedBody)
	}
}

func TestIngestUploadRejectsInput(t *testing.T) {
	uc := NewIngestUseCase(newInvoiceRepoFake(), &storageFake{}, &queueFake{})

	if _, err := uc.Upload(context.Background(), "invoice.docx", "", bytes.NewBufferString("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unsupported extension, got %v", err)
	}
	if _, err := uc.Upload(context.Background(), "invoice.txt", "", bytes.NewBuffer(nil)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty body, got %v", err)
	}
}

func TestIngestUploadQueueError(t *testing.T) {
	uc := NewIngestUseCase(newInvoiceRepoFake(), &storageFake{}, &queueFake{err: errors.New("queue down")})

	_, err := uc.Upload(context.Background(), "invoice.TXT", "text/plain", bytes.NewBufferString("hello"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish upload event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"scan (1).png":     "scan__1_.png",
		"счёт.pdf":         "____.pdf",
		"":                 "invoice.bin",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
