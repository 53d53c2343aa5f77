package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeEmptyQuery(t *testing.T) {
	assert.Equal(t, "", Sanitize("", "Units"))
}

func TestSanitizeTopClamped(t *testing.T) {
	got := Sanitize("$filter=FinancialYear%20eq%202025&$top=500", "FinancialMutations")
	assert.Equal(t, "?$filter=FinancialYear%20eq%202025&$top=100", got)
}

func TestSanitizeTopWithinCap(t *testing.T) {
	assert.Equal(t, "?$top=50", Sanitize("$top=50", "Units"))
}

func TestSanitizeTopDropped(t *testing.T) {
	for _, raw := range []string{"$top=0", "$top=-5", "$top=abc", "$top=10.5", "$top="} {
		assert.Equal(t, "", Sanitize(raw, "Units"), "raw=%s", raw)
	}
}

func TestSanitizeTopEncodedKey(t *testing.T) {
	// %24top is $top; the original key bytes are preserved.
	assert.Equal(t, "?%24top=100", Sanitize("%24top=500", "FinancialMutations"))
}

func TestSanitizeOrderByDropsInvalidSegment(t *testing.T) {
	got := Sanitize("$orderby=Foo%20desc,UnitId%20asc", "Units")
	assert.Equal(t, "?$orderby=UnitId", got)
}

func TestSanitizeOrderByCanonicalisesCase(t *testing.T) {
	got := Sanitize("$orderby=unitid%20desc", "Units")
	assert.Equal(t, "?$orderby=UnitId%20desc", got)
}

func TestSanitizeOrderByMultipleSurvivors(t *testing.T) {
	got := Sanitize("$orderby=Reference,Surface%20desc", "Units")
	assert.Equal(t, "?$orderby=Reference%2C%20Surface%20desc", got)
}

func TestSanitizeOrderByAllInvalidFallsBackToSafeField(t *testing.T) {
	got := Sanitize("$orderby=Bogus", "Units")
	assert.Equal(t, "?$orderby=UnitId", got)
}

func TestSanitizeOrderByFallbackKeepsDescDirection(t *testing.T) {
	got := Sanitize("$orderby=Bogus%20DESC", "Units")
	assert.Equal(t, "?$orderby=UnitId%20desc", got)
}

func TestSanitizeOrderByUnknownEntityUsesDefaults(t *testing.T) {
	got := Sanitize("$orderby=Reference", "Mystery")
	assert.Equal(t, "?$orderby=Reference", got)
}

func TestSanitizePreservesOtherParamsInOrder(t *testing.T) {
	raw := "$select=UnitId,City&$filter=City%20eq%20'Amsterdam'&$skip=20&$count=true"
	assert.Equal(t, "?"+raw, Sanitize(raw, "Units"))
}

func TestSanitizeKeepsParameterPositions(t *testing.T) {
	got := Sanitize("$skip=5&$top=9999&$count=true", "Units")
	assert.Equal(t, "?$skip=5&$top=500&$count=true", got)
}

func TestSafeFieldPrefersIdThenReference(t *testing.T) {
	assert.Equal(t, "UnitId", safeField([]string{"UnitId", "Reference"}))
	assert.Equal(t, "Reference", safeField([]string{"Name", "Reference"}))
	assert.Equal(t, "Name", safeField([]string{"Name", "City"}))
}
