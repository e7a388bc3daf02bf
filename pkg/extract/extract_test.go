package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/history-engine/pkg/models"
)

const (
	accountID = "7f2504e0-4f89-41d3-9a0c-0305e82c3301"
	contactID = "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
)

func TestReferences_FlatRecord(t *testing.T) {
	payload := map[string]any{
		"accountid": accountID,
		"name":      "Northwind",
		"revenue":   float64(125000),
	}

	refs := References(payload)
	require.Len(t, refs, 1)
	assert.Equal(t, models.EntityReference{LogicalName: "account", ID: accountID}, refs[0])
}

func TestReferences_NestedExpansions(t *testing.T) {
	raw := `{
		"accountid": "` + accountID + `",
		"primary_contact": {
			"contactid": "` + contactID + `",
			"fullname": "Ada Lovelace"
		},
		"opportunities": [
			{"opportunityid": "1caa35be-8f77-43ab-bb4a-8fcb35aa2d11"},
			{"opportunityid": "5511a3a6-66a4-44e4-b73a-f12c01c43d5e"}
		]
	}`

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	refs := References(payload)
	require.Len(t, refs, 4)

	byType := map[string]int{}
	for _, r := range refs {
		byType[r.LogicalName]++
	}
	assert.Equal(t, 1, byType["account"])
	assert.Equal(t, 1, byType["contact"])
	assert.Equal(t, 2, byType["opportunity"])
}

func TestReferences_IgnoresNonGUIDValues(t *testing.T) {
	payload := map[string]any{
		"accountid":  "not-a-guid",
		"externalid": float64(42),
		"paid":       true,
		"valid":      "also not a guid",
	}

	assert.Empty(t, References(payload))
}

func TestReferences_IgnoresBareIDKey(t *testing.T) {
	// "id" alone carries no logical type name.
	payload := map[string]any{"id": accountID}
	assert.Empty(t, References(payload))
}

func TestReferences_Deduplicates(t *testing.T) {
	payload := map[string]any{
		"accountid": accountID,
		"related": []any{
			map[string]any{"accountid": accountID},
			map[string]any{"accountid": accountID},
		},
	}

	refs := References(payload)
	require.Len(t, refs, 1)
	assert.Equal(t, "account", refs[0].LogicalName)
}

func TestReferences_NilAndScalars(t *testing.T) {
	assert.Empty(t, References(nil))
	assert.Empty(t, References("just a string"))
	assert.Empty(t, References([]any{float64(1), "x", nil}))
}
