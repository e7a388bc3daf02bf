package models

import (
	"time"
)

// Audit action codes as reported by the upstream change-history API.
// Associate and Disassociate are relationship-membership events; every
// other code describes the record itself.
const (
	AuditActionCreate       = 1
	AuditActionUpdate       = 2
	AuditActionDelete       = 3
	AuditActionAssociate    = 33
	AuditActionDisassociate = 34
)

// EntityReference identifies a single record by logical type name and id.
type EntityReference struct {
	LogicalName string `json:"logical_name"`
	ID          string `json:"id"`
}

// RawValues is an annotated key/value map as returned by the upstream API.
// Base keys carry raw values; suffixed "shadow" keys (formatted value,
// lookup logical name) carry display metadata for the base key. The map has
// no fixed schema and values are loosely typed.
type RawValues map[string]any

// RawAuditEntry is one raw change-log entry for a record, prior to parsing.
// Created per fetch page; OldValues/NewValues may both be nil (e.g. create
// events without attribute detail).
type RawAuditEntry struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	UserID      string          `json:"user_id"`
	UserName    string          `json:"user_name"`
	ActionCode  int             `json:"action_code"`
	ActionLabel string          `json:"action_label"`
	Subject     EntityReference `json:"subject"`
	OldValues   RawValues       `json:"old_values,omitempty"`
	NewValues   RawValues       `json:"new_values,omitempty"`
}

// ValueRepresentation is one side of a change: display text plus an optional
// lookup target when the underlying attribute references another record.
type ValueRepresentation struct {
	Text   string           `json:"text"`
	Lookup *EntityReference `json:"lookup,omitempty"`
}

// ChangeItem is a single field-level diff within an audit entry.
type ChangeItem struct {
	FieldKey string              `json:"field_key"`
	OldValue ValueRepresentation `json:"old_value"`
	NewValue ValueRepresentation `json:"new_value"`
}

// TargetRecordChange describes one record gaining or losing membership in a
// relationship. Exactly one side carries the reference: the new side for
// associate events, the old side for disassociate events.
type TargetRecordChange struct {
	Target   EntityReference     `json:"target"`
	OldValue ValueRepresentation `json:"old_value"`
	NewValue ValueRepresentation `json:"new_value"`
}

// AuditDetailItem is the parsed form of a RawAuditEntry. ChangeItems and
// TargetChanges are mutually exclusive; both nil means the entry carried no
// attribute detail. Items are never mutated after construction.
type AuditDetailItem struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	UserID      string          `json:"user_id"`
	UserName    string          `json:"user_name"`
	ActionCode  int             `json:"action_code"`
	ActionLabel string          `json:"action_label"`
	Subject     EntityReference `json:"subject"`

	ChangeItems   []ChangeItem         `json:"change_items,omitempty"`
	TargetChanges []TargetRecordChange `json:"target_changes,omitempty"`
}

// LabeledChange is a display-ready field diff: the raw field key plus the
// resolved attribute label and plain-text values.
type LabeledChange struct {
	FieldKey string `json:"field_key"`
	Label    string `json:"label"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// LabeledTarget is a display-ready relationship-membership change with the
// target's primary name resolved. The populated side matches the direction
// of the underlying event.
type LabeledTarget struct {
	Target   EntityReference `json:"target"`
	OldValue string          `json:"old_value"`
	NewValue string          `json:"new_value"`
}

// HistoryRow is the final projection of an AuditDetailItem with all labels
// substituted. Rows are what the host renders.
type HistoryRow struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	UserID      string          `json:"user_id"`
	UserName    string          `json:"user_name"`
	ActionCode  int             `json:"action_code"`
	ActionLabel string          `json:"action_label"`
	Subject     EntityReference `json:"subject"`

	Changes []LabeledChange `json:"changes,omitempty"`
	Targets []LabeledTarget `json:"targets,omitempty"`
}
