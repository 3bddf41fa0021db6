package catcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndCategoryOf(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(base, RateLimit, "provider rejected request")
	require.Error(t, wrapped)

	assert.Equal(t, RateLimit, CategoryOf(wrapped))
	assert.ErrorIs(t, wrapped, base)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, Timeout, "should not appear"))
}

func TestCategoryOfUncategorized(t *testing.T) {
	assert.Equal(t, Unknown, CategoryOf(errors.New("plain")))
	assert.Equal(t, Unknown, CategoryOf(nil))
}

func TestCategoryStrings(t *testing.T) {
	cases := map[Category]string{
		Auth:           "Auth",
		RateLimit:      "RateLimit",
		InvalidRequest: "InvalidRequest",
		NotFound:       "NotFound",
		Server:         "Server",
		Network:        "Network",
		Cancelled:      "Cancelled",
		Timeout:        "Timeout",
		Sandbox:        "Sandbox",
		Unknown:        "Unknown",
	}
	for cat, want := range cases {
		assert.Equal(t, want, cat.String())
	}
}

func TestAsRoundTrip(t *testing.T) {
	err := New(NotFound, "model not found")
	ce, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, NotFound, ce.Category())
	assert.Equal(t, "model not found", ce.Error())
}
