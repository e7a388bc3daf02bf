// Package extract pulls entity references out of fetched record payloads.
package extract

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ekaya-inc/history-engine/pkg/models"
)

// References walks an arbitrary decoded payload tree and yields every entity
// reference it can find, in first-seen order and de-duplicated by
// (logical name, id).
//
// A reference is any key of the form "{logicalTypeName}id" whose value is a
// GUID-shaped string. Arrays and nested objects are recursed into
// unconditionally, so the walk is independent of the query plan that produced
// the payload and tolerates expansion property names that diverge from
// logical type names.
//
// The heuristic depends on the key convention: a "...id" key holding a GUID
// that is not a record id produces a spurious reference, and ids exposed
// under unconventional keys are missed.
func References(payload any) []models.EntityReference {
	seen := make(map[models.EntityReference]struct{})
	var refs []models.EntityReference
	walk(payload, seen, &refs)
	return refs
}

func walk(node any, seen map[models.EntityReference]struct{}, refs *[]models.EntityReference) {
	switch v := node.(type) {
	case map[string]any:
		// Map iteration order is randomized; sort keys so output order is
		// stable across runs.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value := v[key]
			if ref, ok := referenceFromKey(key, value); ok {
				if _, dup := seen[ref]; !dup {
					seen[ref] = struct{}{}
					*refs = append(*refs, ref)
				}
				continue
			}
			walk(value, seen, refs)
		}
	case []any:
		for _, item := range v {
			walk(item, seen, refs)
		}
	}
}

// referenceFromKey matches the "{logicalTypeName}id" + GUID-shape convention.
func referenceFromKey(key string, value any) (models.EntityReference, bool) {
	name, found := strings.CutSuffix(strings.ToLower(key), "id")
	if !found || name == "" {
		return models.EntityReference{}, false
	}

	s, ok := value.(string)
	if !ok {
		return models.EntityReference{}, false
	}
	if _, err := uuid.Parse(s); err != nil {
		return models.EntityReference{}, false
	}

	return models.EntityReference{LogicalName: name, ID: s}, true
}
