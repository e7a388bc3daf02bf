// Package changes converts raw annotated audit entries into structured
// AuditDetailItems.
package changes

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ekaya-inc/history-engine/pkg/apperrors"
	"github.com/ekaya-inc/history-engine/pkg/jsonutil"
	"github.com/ekaya-inc/history-engine/pkg/models"
)

// Annotation suffixes used by the upstream API. A base key "revenue" may be
// shadowed by "revenue@OData.Community.Display.V1.FormattedValue" carrying its
// display text, and lookup attributes additionally carry the target entity's
// logical name.
const (
	FormattedValueAnnotation    = "@OData.Community.Display.V1.FormattedValue"
	LookupLogicalNameAnnotation = "@Microsoft.Dynamics.CRM.lookuplogicalname"
	ODataTypeKey                = "@odata.type"
)

// EmptyValuePlaceholder is the display text for a side of a change that
// carried no value.
const EmptyValuePlaceholder = "-"

// Parse converts one raw audit entry into its structured form. Field-level
// changes and relationship-membership target changes are mutually exclusive:
// associate/disassociate entries produce TargetChanges, everything else
// produces ChangeItems. An entry without value maps yields neither.
func Parse(raw *models.RawAuditEntry) (*models.AuditDetailItem, error) {
	item := &models.AuditDetailItem{
		ID:          raw.ID,
		Timestamp:   raw.Timestamp,
		UserID:      raw.UserID,
		UserName:    raw.UserName,
		ActionCode:  raw.ActionCode,
		ActionLabel: raw.ActionLabel,
		Subject:     raw.Subject,
	}

	switch raw.ActionCode {
	case models.AuditActionAssociate, models.AuditActionDisassociate:
		targets, err := parseTargetChanges(raw)
		if err != nil {
			return nil, err
		}
		item.TargetChanges = targets
	default:
		item.ChangeItems = parseChangeItems(raw.OldValues, raw.NewValues)
	}

	return item, nil
}

// parseChangeItems diffs the old/new annotated maps field by field.
func parseChangeItems(oldValues, newValues models.RawValues) []models.ChangeItem {
	keys := unionBaseKeys(oldValues, newValues)
	if len(keys) == 0 {
		return nil
	}

	items := make([]models.ChangeItem, 0, len(keys))
	for _, key := range keys {
		items = append(items, models.ChangeItem{
			FieldKey: canonicalFieldKey(key),
			OldValue: valueRepresentation(oldValues, key),
			NewValue: valueRepresentation(newValues, key),
		})
	}
	return items
}

// unionBaseKeys collects the sorted union of non-annotation keys across both
// value maps.
func unionBaseKeys(oldValues, newValues models.RawValues) []string {
	set := make(map[string]struct{})
	for key := range oldValues {
		if !isAnnotationKey(key) {
			set[key] = struct{}{}
		}
	}
	for key := range newValues {
		if !isAnnotationKey(key) {
			set[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func isAnnotationKey(key string) bool {
	return strings.Contains(key, "@")
}

// canonicalFieldKey resolves the field identity used for metadata lookups.
// Lookup attributes arrive under wrapped keys of the form "_name_value"; the
// canonical identity is the wrapped name. All other keys are already
// canonical.
func canonicalFieldKey(key string) string {
	if wrapped, ok := unwrapLookupKey(key); ok {
		return wrapped
	}
	return key
}

func unwrapLookupKey(key string) (string, bool) {
	inner, found := strings.CutPrefix(key, "_")
	if !found {
		return "", false
	}
	inner, found = strings.CutSuffix(inner, "_value")
	if !found || inner == "" {
		return "", false
	}
	return inner, true
}

// valueRepresentation resolves one side of a change: prefer the annotated
// formatted value, then the raw value, then the placeholder. A lookup
// annotation attaches the target EntityReference when the raw value is
// GUID-shaped.
func valueRepresentation(values models.RawValues, key string) models.ValueRepresentation {
	rep := models.ValueRepresentation{Text: EmptyValuePlaceholder}
	if values == nil {
		return rep
	}

	raw, hasRaw := values[key]
	if formatted, ok := values[key+FormattedValueAnnotation].(string); ok && formatted != "" {
		rep.Text = formatted
	} else if hasRaw && raw != nil {
		if text := jsonutil.FlexibleString(raw); text != "" {
			rep.Text = text
		}
	}

	if logicalName, ok := values[key+LookupLogicalNameAnnotation].(string); ok && logicalName != "" {
		if id, ok := raw.(string); ok {
			if _, err := uuid.Parse(id); err == nil {
				rep.Lookup = &models.EntityReference{LogicalName: logicalName, ID: id}
			}
		}
	}

	return rep
}

// parseTargetChanges extracts relationship-membership targets from an
// associate or disassociate entry. The event direction decides which side of
// each TargetRecordChange carries the reference.
func parseTargetChanges(raw *models.RawAuditEntry) ([]models.TargetRecordChange, error) {
	source := raw.NewValues
	if raw.ActionCode == models.AuditActionDisassociate {
		source = raw.OldValues
	}
	if source == nil {
		return nil, nil
	}

	var targets []models.TargetRecordChange
	for _, key := range sortedKeys(source) {
		list, ok := source[key].([]any)
		if !ok {
			continue
		}
		for _, element := range list {
			entry, ok := element.(map[string]any)
			if !ok {
				continue
			}

			ref, err := targetReference(entry)
			if err != nil {
				return nil, err
			}

			change := models.TargetRecordChange{
				Target:   ref,
				OldValue: models.ValueRepresentation{Text: EmptyValuePlaceholder},
				NewValue: models.ValueRepresentation{Text: EmptyValuePlaceholder},
			}
			side := models.ValueRepresentation{Text: EmptyValuePlaceholder, Lookup: &ref}
			if raw.ActionCode == models.AuditActionAssociate {
				change.NewValue = side
			} else {
				change.OldValue = side
			}
			targets = append(targets, change)
		}
	}

	return targets, nil
}

// targetReference derives a target's entity reference from a nested item:
// type from the qualified @odata.type string, id from the first base key
// ending in "id". Either one missing is fatal; without them the target's
// identity cannot be recovered.
func targetReference(entry map[string]any) (models.EntityReference, error) {
	qualified, _ := entry[ODataTypeKey].(string)
	logicalName := logicalNameFromQualifiedType(qualified)
	if logicalName == "" {
		return models.EntityReference{}, &apperrors.DataShapeError{Attribute: ODataTypeKey}
	}

	for _, key := range sortedKeys(entry) {
		if isAnnotationKey(key) || !strings.HasSuffix(key, "id") {
			continue
		}
		if id, ok := entry[key].(string); ok && id != "" {
			return models.EntityReference{LogicalName: logicalName, ID: id}, nil
		}
	}

	return models.EntityReference{}, &apperrors.DataShapeError{EntityType: logicalName, Attribute: "id"}
}

// logicalNameFromQualifiedType reduces "#Namespace.Of.The.contact" to
// "contact".
func logicalNameFromQualifiedType(qualified string) string {
	qualified = strings.TrimPrefix(qualified, "#")
	if idx := strings.LastIndex(qualified, "."); idx >= 0 {
		qualified = qualified[idx+1:]
	}
	return qualified
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
