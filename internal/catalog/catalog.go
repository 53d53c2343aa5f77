package catalog

import "strings"

// Descriptor describes one Bloxs OData entity set: which fields are safe to
// sort on, how many rows a single page may return, and whether the feed is
// too large to query without a $filter.
type Descriptor struct {
	Name           string
	Description    string
	SortableFields []string
	KeyFields      []string
	TopCap         int
	RequiresFilter bool
	FilterExamples []string
	JoinInfo       string
	Note           string
}

// Defaults applied when an entity is not in the catalog.
const DefaultTopCap = 500

var defaultFields = []string{"Id", "Reference", "DisplayName", "Name"}

// descriptors is the curated entity table. Canonical names match the
// upstream spelling; lookups are case-insensitive.
var descriptors = []Descriptor{
	{
		Name:           "Units",
		Description:    "Rentable units (apartments, offices, parking spots) within buildings.",
		SortableFields: []string{"UnitId", "Reference", "DisplayName", "UnitType", "Surface", "City"},
		KeyFields:      []string{"UnitId"},
		FilterExamples: []string{"$filter=City eq 'Amsterdam'", "$filter=UnitType eq 'Apartment' and Surface gt 50"},
		JoinInfo:       "Units.BuildingId -> Buildings.BuildingId; Units.UnitId <- Contracts.UnitId",
		Note:           "DisplayName usually combines street and house number.",
	},
	{
		Name:           "Buildings",
		Description:    "Buildings under administration, grouped into complexes.",
		SortableFields: []string{"BuildingId", "Reference", "DisplayName", "City", "PostalCode"},
		KeyFields:      []string{"BuildingId"},
		FilterExamples: []string{"$filter=City eq 'Rotterdam'"},
		JoinInfo:       "Buildings.ComplexId -> Complexes.ComplexId",
	},
	{
		Name:           "Complexes",
		Description:    "Top-level property complexes owning one or more buildings.",
		SortableFields: []string{"ComplexId", "Reference", "DisplayName", "City"},
		KeyFields:      []string{"ComplexId"},
		FilterExamples: []string{"$filter=startswith(DisplayName,'Park')"},
		JoinInfo:       "Complexes.ComplexId <- Buildings.ComplexId",
	},
	{
		Name:           "Owners",
		Description:    "Property owners the administration acts for.",
		SortableFields: []string{"OwnerId", "Reference", "DisplayName", "Email", "City"},
		KeyFields:      []string{"OwnerId"},
		FilterExamples: []string{"$filter=City eq 'Utrecht'"},
		JoinInfo:       "Owners.OwnerId <- Units.OwnerId",
		Note:           "Owner visibility can be restricted per deployment.",
	},
	{
		Name:           "Tenants",
		Description:    "Tenants with active or historical contracts.",
		SortableFields: []string{"TenantId", "Reference", "DisplayName", "Email", "StartDate"},
		KeyFields:      []string{"TenantId"},
		FilterExamples: []string{"$filter=StartDate ge 2024-01-01"},
		JoinInfo:       "Tenants.TenantId <- Contracts.TenantId",
	},
	{
		Name:           "Contracts",
		Description:    "Rental contracts linking tenants to units.",
		SortableFields: []string{"ContractId", "Reference", "StartDate", "EndDate", "RentAmount"},
		KeyFields:      []string{"ContractId"},
		FilterExamples: []string{"$filter=EndDate eq null", "$filter=RentAmount gt 1000"},
		JoinInfo:       "Contracts.UnitId -> Units.UnitId; Contracts.TenantId -> Tenants.TenantId",
		Note:           "EndDate eq null selects running contracts.",
	},
	{
		Name:           "Invoices",
		Description:    "Outgoing invoices, mostly monthly rent.",
		SortableFields: []string{"InvoiceId", "Reference", "InvoiceDate", "DueDate", "Amount", "Status"},
		KeyFields:      []string{"InvoiceId"},
		TopCap:         200,
		FilterExamples: []string{"$filter=Status eq 'Open'", "$filter=InvoiceDate ge 2025-01-01"},
		JoinInfo:       "Invoices.ContractId -> Contracts.ContractId",
	},
	{
		Name:           "FinancialMutations",
		Description:    "Ledger mutations; the largest feed by far.",
		SortableFields: []string{"FinancialMutationId", "Reference", "Date", "FinancialYear", "Amount", "LedgerCode"},
		KeyFields:      []string{"FinancialMutationId"},
		TopCap:         100,
		RequiresFilter: true,
		FilterExamples: []string{"$filter=FinancialYear eq 2025", "$filter=Date ge 2025-01-01 and Date lt 2025-02-01"},
		JoinInfo:       "FinancialMutations.LedgerCode -> ledger accounts (no feed)",
		Note:           "Unfiltered reads time out upstream; always filter on FinancialYear or a date range.",
	},
	{
		Name:           "Tasks",
		Description:    "Maintenance and administrative tasks.",
		SortableFields: []string{"TaskId", "Reference", "CreatedDate", "DueDate", "Status"},
		KeyFields:      []string{"TaskId"},
		FilterExamples: []string{"$filter=Status ne 'Done'"},
		JoinInfo:       "Tasks.UnitId -> Units.UnitId",
	},
	{
		Name:           "Addresses",
		Description:    "Postal addresses referenced by units and relations.",
		SortableFields: []string{"AddressId", "Reference", "Street", "City", "PostalCode"},
		KeyFields:      []string{"AddressId"},
		FilterExamples: []string{"$filter=PostalCode eq '1011AB'"},
		JoinInfo:       "Addresses.AddressId <- Units.AddressId",
	},
}

var byLower = func() map[string]*Descriptor {
	m := make(map[string]*Descriptor, len(descriptors))
	for i := range descriptors {
		m[strings.ToLower(descriptors[i].Name)] = &descriptors[i]
	}
	return m
}()

// aliases maps lowercased path segments to the canonical upstream spelling.
// Singular forms are common in LLM-generated paths.
var aliases = func() map[string]string {
	m := make(map[string]string, len(descriptors)*2)
	for _, d := range descriptors {
		m[strings.ToLower(d.Name)] = d.Name
	}
	m["unit"] = "Units"
	m["building"] = "Buildings"
	m["complex"] = "Complexes"
	m["owner"] = "Owners"
	m["tenant"] = "Tenants"
	m["contract"] = "Contracts"
	m["invoice"] = "Invoices"
	m["financialmutation"] = "FinancialMutations"
	m["task"] = "Tasks"
	m["address"] = "Addresses"
	return m
}()

// Lookup returns the descriptor for an entity, or nil when unknown.
// Comparison is case-insensitive.
func Lookup(entity string) *Descriptor {
	return byLower[strings.ToLower(entity)]
}

// FieldsFor returns the ordered sortable fields for an entity, falling back
// to the generic default list for unknown entities.
func FieldsFor(entity string) []string {
	if d := Lookup(entity); d != nil {
		return d.SortableFields
	}
	return defaultFields
}

// TopCapFor returns the maximum $top value allowed for an entity.
func TopCapFor(entity string) int {
	if d := Lookup(entity); d != nil && d.TopCap > 0 {
		return d.TopCap
	}
	return DefaultTopCap
}

// RequiresFilter reports whether queries against the entity must carry a
// $filter before being forwarded upstream.
func RequiresFilter(entity string) bool {
	if d := Lookup(entity); d != nil {
		return d.RequiresFilter
	}
	return false
}

// AliasFor resolves a path segment to its canonical spelling. The second
// return is false when the segment has no alias.
func AliasFor(segment string) (string, bool) {
	canonical, ok := aliases[strings.ToLower(segment)]
	return canonical, ok
}

// Entities returns the canonical names of all catalogued entities.
func Entities() []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}
