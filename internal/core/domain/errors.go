package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceNotReady    = errors.New("invoice not ready")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrTemporary          = errors.New("temporary failure")
	ErrServiceUnavailable = errors.New("extraction service unavailable")
	ErrMalformedResponse  = errors.New("malformed extraction response")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
