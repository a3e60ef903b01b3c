package plaintext

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read returns the text of an uploaded .txt invoice with line endings normalized.
func Read(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text invoice: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "read text invoice", fmt.Errorf("content is not valid UTF-8"))
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text), nil
}
