package query

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/history-engine/pkg/apperrors"
	"github.com/ekaya-inc/history-engine/pkg/models"
)

// Build serializes a validated plan into the $select/$expand query parameters
// the upstream record-fetch API expects. Only the id attribute of each entity
// is selected; everything else the pipeline needs comes from change history
// and metadata fetches.
//
// Depth is re-checked during serialization: plans are normally produced by
// Parse, but Build must not emit an invalid query for a hand-built plan.
func Build(plan *models.QueryPlan) (string, error) {
	if plan == nil || plan.PrimaryEntityLogicalName == "" {
		return "", apperrors.NewConfigError("query plan has no primary entity")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "$select=%sid", plan.PrimaryEntityLogicalName)

	if len(plan.Expansion) > 0 {
		expand, err := buildExpand(plan.Expansion, 1)
		if err != nil {
			return "", err
		}
		sb.WriteString("&$expand=")
		sb.WriteString(expand)
	}

	return sb.String(), nil
}

func buildExpand(nodes []models.QueryPlanNode, depth int) (string, error) {
	if depth > MaxExpansionDepth {
		return "", apperrors.NewConfigError("expansion depth %d exceeds the maximum of %d", depth, MaxExpansionDepth)
	}

	clauses := make([]string, 0, len(nodes))
	for _, node := range nodes {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s($select=%sid", node.PropertyName, node.RelatedEntityLogicalName)

		if len(node.NestedExpansion) > 0 {
			nested, err := buildExpand(node.NestedExpansion, depth+1)
			if err != nil {
				return "", err
			}
			sb.WriteString(";$expand=")
			sb.WriteString(nested)
		}
		sb.WriteString(")")
		clauses = append(clauses, sb.String())
	}

	return strings.Join(clauses, ","), nil
}
