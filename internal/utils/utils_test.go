package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID       string  `db:"id"`
	Name     *string `db:"name"`
	Ignored  string  `db:"-"`
	Untagged string
	private  string `db:"private"`
}

func TestStructTagValues(t *testing.T) {
	assert.Equal(t, []string{"id", "name"}, StructTagValues(&row{}))
	assert.Equal(t, []string{"id", "name"}, StructTagValues(row{}))
	assert.Panics(t, func() { StructTagValues("not a struct") })
}

func TestStructToMap(t *testing.T) {
	name := "PM-KISAN"
	got := StructToMap(&row{ID: "abc", Name: &name, Ignored: "x", Untagged: "y", private: "z"})

	require.Len(t, got, 2)
	assert.Equal(t, "abc", got["id"])
	assert.Equal(t, &name, got["name"])
}

func TestErrorWrapOrNil(t *testing.T) {
	assert.NoError(t, ErrorWrapOrNil(nil, "ignored"))

	base := errors.New("boom")
	assert.Same(t, base, ErrorWrapOrNil(base, ""))

	wrapped := ErrorWrapOrNil(base, "failed to create application")
	assert.EqualError(t, wrapped, "failed to create application: boom")
	assert.ErrorIs(t, wrapped, base)
}

func TestTrimmedPtr(t *testing.T) {
	assert.Nil(t, TrimmedPtr("   "))
	require.NotNil(t, TrimmedPtr(" Documents verified "))
	assert.Equal(t, "Documents verified", *TrimmedPtr(" Documents verified "))
	assert.Equal(t, "", PtrString(nil))
}

func TestNanoID(t *testing.T) {
	id := NanoID()
	assert.Len(t, id, IDSize)
	assert.Regexp(t, `^[0-9A-Za-z]+$`, id)
	assert.Len(t, NanoIDSize(8), 8)
	assert.Len(t, NanoIDSize(0), IDSize)
	assert.NotEqual(t, NanoID(), NanoID())
}
