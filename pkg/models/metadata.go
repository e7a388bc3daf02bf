package models

// AttributeMetadata holds the display metadata for a single attribute of an
// entity type.
type AttributeMetadata struct {
	LogicalName string `json:"logicalName"`
	DisplayName string `json:"displayName"`
}

// EntityMetadata holds the display metadata known for one entity type.
// Attributes is keyed by attribute logical name.
type EntityMetadata struct {
	DisplayName          string                       `json:"displayName"`
	PrimaryNameAttribute string                       `json:"primaryNameAttribute"`
	Attributes           map[string]AttributeMetadata `json:"attributes"`
}
