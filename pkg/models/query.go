package models

// QueryDescriptor is the declarative nested-relationship descriptor supplied
// by the host as JSON. It is untrusted input and must pass validation before
// any query is built from it.
type QueryDescriptor struct {
	PrimaryEntityLogicalName string             `json:"primaryEntityLogicalName"`
	Expand                   []ExpandDescriptor `json:"expand,omitempty"`
}

// ExpandDescriptor is one relationship traversal in a QueryDescriptor.
type ExpandDescriptor struct {
	PropertyName             string             `json:"propertyName"`
	RelatedEntityLogicalName string             `json:"relatedEntityLogicalName"`
	IsManyToMany             bool               `json:"isManyToMany"`
	Expand                   []ExpandDescriptor `json:"expand,omitempty"`
}

// QueryPlan is a validated QueryDescriptor, safe to serialize into query
// parameters.
type QueryPlan struct {
	PrimaryEntityLogicalName string
	Expansion                []QueryPlanNode
}

// QueryPlanNode is one validated relationship traversal.
type QueryPlanNode struct {
	PropertyName             string
	RelatedEntityLogicalName string
	IsManyToMany             bool
	NestedExpansion          []QueryPlanNode
}
