package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsForIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, FieldsFor("Units"), FieldsFor("units"))
	assert.Equal(t, FieldsFor("Units"), FieldsFor("UNITS"))
}

func TestFieldsForUnknownEntityFallsBack(t *testing.T) {
	assert.Equal(t, []string{"Id", "Reference", "DisplayName", "Name"}, FieldsFor("Mystery"))
}

func TestTopCaps(t *testing.T) {
	assert.Equal(t, 100, TopCapFor("FinancialMutations"))
	assert.Equal(t, 100, TopCapFor("financialmutations"))
	assert.Equal(t, 200, TopCapFor("Invoices"))
	assert.Equal(t, DefaultTopCap, TopCapFor("Units"))
	assert.Equal(t, DefaultTopCap, TopCapFor("Mystery"))
}

func TestRequiresFilter(t *testing.T) {
	assert.True(t, RequiresFilter("FinancialMutations"))
	assert.False(t, RequiresFilter("Units"))
	assert.False(t, RequiresFilter("Mystery"))
}

func TestAliasFor(t *testing.T) {
	for _, segment := range []string{"units", "UNITS", "unit"} {
		canonical, ok := AliasFor(segment)
		require.True(t, ok, "segment=%s", segment)
		assert.Equal(t, "Units", canonical)
	}

	_, ok := AliasFor("$metadata-summary")
	assert.False(t, ok)
	_, ok = AliasFor("nothing")
	assert.False(t, ok)
}

func TestSortableFieldsStartWithKey(t *testing.T) {
	for _, name := range Entities() {
		fields := FieldsFor(name)
		require.NotEmpty(t, fields, "entity=%s", name)
		first := fields[0]
		assert.True(t, first[len(first)-2:] == "Id" || first == "Reference",
			"entity %s first sortable field %s", name, first)
	}
}

func TestBuildMetadataSummary(t *testing.T) {
	doc := BuildMetadataSummary()

	require.Len(t, doc.Entities, len(Entities()))
	fm, ok := doc.Entities["FinancialMutations"]
	require.True(t, ok)
	assert.Equal(t, 100, fm.MaxTop)
	assert.True(t, fm.RequiresFilter)
	assert.NotEmpty(t, fm.FilterExamples)

	assert.NotEmpty(t, doc.CommonJoins)
	assert.NotEmpty(t, doc.EntityLinkTypes)
	assert.Contains(t, doc.QueryParameters, "$filter")
	assert.Contains(t, doc.QueryParameters, "$orderby")
	assert.Contains(t, doc.QueryParameters, "$top")
	assert.NotEmpty(t, doc.AgentRules)
	assert.NotEmpty(t, doc.BusinessInsights)
	assert.NotEmpty(t, doc.CrossEntityInsights)
	assert.NotEmpty(t, doc.OwnerWorkflows)
	assert.NotEmpty(t, doc.CommonFilterIssues)
}
