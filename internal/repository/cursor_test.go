package repository

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailradar/retailradar/internal/models"
)

func TestGenerateCursorFormat(t *testing.T) {
	entry := &models.CatalogEntry{
		DiscountPercentage: 0.25,
		CreatedAt:          time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	cursor := GenerateCursor(entry)

	raw, err := base64.StdEncoding.DecodeString(cursor)
	require.NoError(t, err)
	assert.Equal(t, "0.25|2023-01-01T00:00:00.000Z", string(raw))
}

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2024, 6, 15, 12, 30, 45, 123_000_000, time.UTC)
	entry := &models.CatalogEntry{
		DiscountPercentage: 0.3333,
		CreatedAt:          createdAt,
	}

	discount, parsed, ok := parseCursor(GenerateCursor(entry))
	require.True(t, ok)
	assert.Equal(t, 0.3333, discount)
	assert.True(t, parsed.Equal(createdAt))
}

func TestGenerateCursorNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	entry := &models.CatalogEntry{
		DiscountPercentage: 0.1,
		CreatedAt:          time.Date(2023, 1, 1, 2, 0, 0, 0, loc),
	}

	raw, err := base64.StdEncoding.DecodeString(GenerateCursor(entry))
	require.NoError(t, err)
	assert.Equal(t, "0.1|2023-01-01T00:00:00.000Z", string(raw))
}

func TestParseCursorRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not base64":        "%%%not-base64%%%",
		"missing separator": base64.StdEncoding.EncodeToString([]byte("0.25")),
		"empty discount":    base64.StdEncoding.EncodeToString([]byte("|2023-01-01T00:00:00.000Z")),
		"bad discount":      base64.StdEncoding.EncodeToString([]byte("abc|2023-01-01T00:00:00.000Z")),
		"bad timestamp":     base64.StdEncoding.EncodeToString([]byte("0.25|yesterday")),
	}

	for name, cursor := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, ok := parseCursor(cursor)
			assert.False(t, ok)
		})
	}
}
