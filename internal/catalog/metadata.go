package catalog

// EntitySummary is the per-entity block of the metadata summary document.
type EntitySummary struct {
	Description    string   `json:"description"`
	SortableFields []string `json:"sortableFields"`
	FilterExamples []string `json:"filterExamples"`
	JoinInfo       string   `json:"joinInfo"`
	Note           string   `json:"note,omitempty"`
	KeyFields      []string `json:"keyFields"`
	MaxTop         int      `json:"maxTop"`
	RequiresFilter bool     `json:"requiresFilter"`
}

// MetadataSummary is the document served on $metadata-summary. It is an aid
// for LLM agents querying the feed, not a wire-critical schema.
type MetadataSummary struct {
	Service             string                   `json:"service"`
	Entities            map[string]EntitySummary `json:"entities"`
	CommonJoins         []string                 `json:"commonJoins"`
	EntityLinkTypes     map[string]string        `json:"entityLinkTypes"`
	QueryParameters     map[string]string        `json:"queryParameters"`
	AgentRules          []string                 `json:"agentRules"`
	BusinessInsights    []string                 `json:"businessInsights"`
	CrossEntityInsights []string                 `json:"crossEntityInsights"`
	OwnerWorkflows      []string                 `json:"ownerWorkflows"`
	CommonFilterIssues  []string                 `json:"commonFilterIssues"`
}

// BuildMetadataSummary assembles the summary document from the entity table.
func BuildMetadataSummary() *MetadataSummary {
	entities := make(map[string]EntitySummary, len(descriptors))
	for _, d := range descriptors {
		cap := d.TopCap
		if cap == 0 {
			cap = DefaultTopCap
		}
		entities[d.Name] = EntitySummary{
			Description:    d.Description,
			SortableFields: d.SortableFields,
			FilterExamples: d.FilterExamples,
			JoinInfo:       d.JoinInfo,
			Note:           d.Note,
			KeyFields:      d.KeyFields,
			MaxTop:         cap,
			RequiresFilter: d.RequiresFilter,
		}
	}

	return &MetadataSummary{
		Service:  "Bloxs OData proxy",
		Entities: entities,
		CommonJoins: []string{
			"Units -> Buildings via BuildingId",
			"Buildings -> Complexes via ComplexId",
			"Contracts -> Units via UnitId",
			"Contracts -> Tenants via TenantId",
			"Invoices -> Contracts via ContractId",
			"FinancialMutations -> ledger accounts via LedgerCode",
		},
		EntityLinkTypes: map[string]string{
			"Units.BuildingId":    "Buildings",
			"Buildings.ComplexId": "Complexes",
			"Contracts.UnitId":    "Units",
			"Contracts.TenantId":  "Tenants",
			"Invoices.ContractId": "Contracts",
			"Tasks.UnitId":        "Units",
			"Units.AddressId":     "Addresses",
			"Units.OwnerId":       "Owners",
		},
		QueryParameters: map[string]string{
			"$filter":  "OData filter expression (eq, ne, gt, ge, lt, le, and, or, startswith, contains)",
			"$orderby": "Comma-separated sortable fields, each optionally followed by 'desc'; invalid fields are dropped, and a safe default field is used when none remain",
			"$top":     "Page size; capped per entity (see maxTop)",
			"$skip":    "Offset for paging",
			"$select":  "Comma-separated field projection, passed through unchanged",
			"$count":   "Set to true to include @odata.count",
		},
		AgentRules: []string{
			"Always filter FinancialMutations on FinancialYear or a date range; unfiltered requests are rejected.",
			"Use $top to keep result pages small; values above an entity's maxTop are clamped.",
			"Only fields listed in sortableFields may appear in $orderby.",
			"Do not guess field names; request $metadata-summary or $learn-summary first.",
		},
		BusinessInsights: []string{
			"Running contracts have EndDate eq null.",
			"Open receivables are Invoices with Status eq 'Open' past DueDate.",
			"Vacancy is a Unit without a running Contract.",
		},
		CrossEntityInsights: []string{
			"Rent roll: join Contracts to Units and sum RentAmount per Building.",
			"Owner statements combine FinancialMutations filtered on the owner's ledger codes with Invoices.",
		},
		OwnerWorkflows: []string{
			"Monthly statement: FinancialMutations for one FinancialYear, grouped by LedgerCode.",
			"Arrears check: Invoices with Status eq 'Open', ordered by DueDate.",
		},
		CommonFilterIssues: []string{
			"Date literals must be unquoted ISO dates: Date ge 2025-01-01.",
			"String literals use single quotes: City eq 'Amsterdam'.",
			"FinancialYear is numeric: FinancialYear eq 2025, not '2025'.",
		},
	}
}
