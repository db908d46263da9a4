package normalizer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradecraft/assessment-service/internal/models"
)

func newTestNormalizer() Normalizer {
	return New(zerolog.Nop())
}

func TestNormalize_TextPassthroughAfterTrim(t *testing.T) {
	n := newTestNormalizer()

	text, err := n.Normalize([]byte("  The mitochondria is the powerhouse of the cell.\n"), models.SourceFormatText)
	require.NoError(t, err)
	assert.Equal(t, "The mitochondria is the powerhouse of the cell.", text)
}

func TestNormalize_TextIdempotentOnCleanInput(t *testing.T) {
	n := newTestNormalizer()

	clean := "Already clean text."
	first, err := n.Normalize([]byte(clean), models.SourceFormatText)
	require.NoError(t, err)
	assert.Equal(t, clean, first)

	second, err := n.Normalize([]byte(first), models.SourceFormatText)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalize_UnsupportedFormat(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize([]byte("whatever"), models.SourceFormat("docx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNormalize_CorruptPDF(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize([]byte("this is not a pdf at all"), models.SourceFormatPDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestNormalize_EmptyPDFBytes(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize(nil, models.SourceFormatPDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptDocument)
}
