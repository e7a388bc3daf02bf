// Package query turns declarative nested-relationship descriptors into
// validated query plans and serializes them into upstream query parameters.
package query

import (
	"encoding/json"

	"github.com/ekaya-inc/history-engine/pkg/apperrors"
	"github.com/ekaya-inc/history-engine/pkg/models"
)

// MaxExpansionDepth is the deepest relationship nesting the upstream API
// accepts in a single query.
const MaxExpansionDepth = 4

// treeTraits accumulates the global properties of an expansion tree that the
// mutual-exclusivity rule needs. It is returned up the recursion instead of
// threading shared mutable flags through it.
type treeTraits struct {
	hasManyToMany  bool
	nestsBelowRoot bool
}

func (t treeTraits) merge(other treeTraits) treeTraits {
	return treeTraits{
		hasManyToMany:  t.hasManyToMany || other.hasManyToMany,
		nestsBelowRoot: t.nestsBelowRoot || other.nestsBelowRoot,
	}
}

// Parse decodes and validates a JSON query descriptor, returning the plan to
// build queries from. All failures are ConfigErrors raised before any network
// call, with messages naming the violated rule.
func Parse(descriptor []byte) (*models.QueryPlan, error) {
	var desc models.QueryDescriptor
	if err := json.Unmarshal(descriptor, &desc); err != nil {
		return nil, apperrors.NewConfigError("descriptor is not valid JSON: %v", err)
	}

	if desc.PrimaryEntityLogicalName == "" {
		return nil, apperrors.NewConfigError("primaryEntityLogicalName must be a non-empty string")
	}

	expansion, traits, err := validateExpansion(desc.Expand, 1)
	if err != nil {
		return nil, err
	}

	// The upstream API rejects queries that combine a many-to-many expansion
	// with nesting below the first level, anywhere in the tree. Catch it here
	// so hosts get a descriptive error instead of an opaque query failure.
	if traits.hasManyToMany && traits.nestsBelowRoot {
		return nil, apperrors.NewConfigError(
			"descriptor combines a many-to-many expansion with nesting beyond depth 1; the upstream API cannot serve both in one query")
	}

	return &models.QueryPlan{
		PrimaryEntityLogicalName: desc.PrimaryEntityLogicalName,
		Expansion:                expansion,
	}, nil
}

// validateExpansion checks one level of expansion descriptors and recurses
// into nested levels, collecting tree-wide traits on the way back up.
func validateExpansion(nodes []models.ExpandDescriptor, depth int) ([]models.QueryPlanNode, treeTraits, error) {
	if nodes == nil {
		return nil, treeTraits{}, nil
	}
	if len(nodes) == 0 {
		return nil, treeTraits{}, apperrors.NewConfigError("expand arrays must be non-empty when present (depth %d)", depth)
	}
	if depth > MaxExpansionDepth {
		return nil, treeTraits{}, apperrors.NewConfigError("expansion depth %d exceeds the maximum of %d", depth, MaxExpansionDepth)
	}

	traits := treeTraits{nestsBelowRoot: depth > 1}
	plan := make([]models.QueryPlanNode, 0, len(nodes))

	for _, node := range nodes {
		if node.PropertyName == "" {
			return nil, treeTraits{}, apperrors.NewConfigError("expansion node at depth %d has an empty propertyName", depth)
		}
		if node.RelatedEntityLogicalName == "" {
			return nil, treeTraits{}, apperrors.NewConfigError("expansion node %q has an empty relatedEntityLogicalName", node.PropertyName)
		}

		nested, nestedTraits, err := validateExpansion(node.Expand, depth+1)
		if err != nil {
			return nil, treeTraits{}, err
		}

		traits = traits.merge(nestedTraits)
		traits.hasManyToMany = traits.hasManyToMany || node.IsManyToMany

		plan = append(plan, models.QueryPlanNode{
			PropertyName:             node.PropertyName,
			RelatedEntityLogicalName: node.RelatedEntityLogicalName,
			IsManyToMany:             node.IsManyToMany,
			NestedExpansion:          nested,
		})
	}

	return plan, traits, nil
}
