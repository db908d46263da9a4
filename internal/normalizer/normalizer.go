package normalizer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/models"
)

var (
	// ErrUnsupportedFormat is returned for any format tag other than text or pdf.
	ErrUnsupportedFormat = errors.New("unsupported submission format")

	// ErrCorruptDocument is returned when a PDF cannot be decoded or yields
	// zero extractable characters.
	ErrCorruptDocument = errors.New("corrupt document: no extractable text")
)

// Normalizer turns raw submission bytes into plain text.
type Normalizer interface {
	Normalize(raw []byte, format models.SourceFormat) (string, error)
}

type normalizer struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) Normalizer {
	return &normalizer{logger: logger}
}

func (n *normalizer) Normalize(raw []byte, format models.SourceFormat) (string, error) {
	switch format {
	case models.SourceFormatText:
		return strings.TrimSpace(string(raw)), nil
	case models.SourceFormatPDF:
		return n.extractPDF(raw)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (n *normalizer) extractPDF(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	var textBuilder strings.Builder

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages may fail to decode; the document only counts as
			// corrupt when nothing at all is extractable.
			n.logger.Warn().Err(err).Int("page", i).Msg("Failed to extract page text")
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			if textBuilder.Len() > 0 {
				textBuilder.WriteString("\n")
			}
			textBuilder.WriteString(text)
		}
	}

	extracted := textBuilder.String()
	if extracted == "" {
		return "", fmt.Errorf("%w: %d pages, no text content", ErrCorruptDocument, numPages)
	}

	n.logger.Debug().
		Int("pages", numPages).
		Int("text_length", len(extracted)).
		Msg("PDF text extracted")

	return extracted, nil
}
