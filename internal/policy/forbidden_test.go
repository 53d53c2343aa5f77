package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesNormalisesBothSides(t *testing.T) {
	f := NewForbiddenNames([]string{" Wals Huren ", "ACME Holding"})

	assert.True(t, f.Matches("wals huren"))
	assert.True(t, f.Matches("  WALS HUREN  "))
	assert.True(t, f.Matches("acme holding"))
	assert.False(t, f.Matches("Wals Huren BV")) // exact match only
	assert.False(t, f.Matches(""))
}

func TestEmptySet(t *testing.T) {
	assert.True(t, NewForbiddenNames(nil).Empty())
	assert.True(t, NewForbiddenNames([]string{"", "  "}).Empty())
	assert.False(t, NewForbiddenNames([]string{"x"}).Empty())

	var nilSet *ForbiddenNames
	assert.True(t, nilSet.Empty())
	assert.False(t, nilSet.Matches("x"))
}
