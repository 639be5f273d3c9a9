package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryIDs(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?tests=3,%204,,7", nil)
	ids, err := queryIDs(r, "tests")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 7}, ids)

	r = httptest.NewRequest("GET", "/x", nil)
	ids, err = queryIDs(r, "tests")
	require.NoError(t, err)
	assert.Nil(t, ids)

	r = httptest.NewRequest("GET", "/x?tests=3,-1", nil)
	_, err = queryIDs(r, "tests")
	assert.Error(t, err)
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?from=2026-10-02&to=2026-10-02&at=2026-10-02T10:00:00Z", nil)

	from, err := queryTime(r, "from", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC), *from)

	to, err := queryTime(r, "to", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 2, 23, 59, 59, 999999999, time.UTC), *to)

	at, err := queryTime(r, "at", true)
	require.NoError(t, err)
	assert.Equal(t, 10, at.Hour())

	missing, err := queryTime(r, "until", false)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?page=3&size=big", nil)

	page, err := queryInt(r, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	def, err := queryInt(r, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, def)

	_, err = queryInt(r, "size", 0)
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "ARCH_Tower-B", sanitizeFilename("ARCH Tower-B"))
	assert.Equal(t, "a_b_c", sanitizeFilename("a/b\\c"))
	assert.Equal(t, "model", sanitizeFilename(""))
}
