package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ID: 42}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, int64(42), out.ID)
}

func TestDecodeEmptyCursorStartsAfterEverything(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.After(time.Now().AddDate(100, 0, 0)))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%not-base64")
	assert.Error(t, err)
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size = NormalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, DefaultPageSize, size)

	_, size = NormalizePage(1, 50)
	assert.Equal(t, 50, size)
}

func TestNewOffsetPageTotalPages(t *testing.T) {
	assert.Equal(t, 3, newOffsetPage(nil, 41, 1, 20).TotalPages)
	assert.Equal(t, 2, newOffsetPage(nil, 40, 1, 20).TotalPages)
	assert.Equal(t, 0, newOffsetPage(nil, 0, 1, 20).TotalPages)
}
