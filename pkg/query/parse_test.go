package query

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/history-engine/pkg/apperrors"
	"github.com/ekaya-inc/history-engine/pkg/models"
)

func TestParse_ValidDescriptor(t *testing.T) {
	descriptor := []byte(`{
		"primaryEntityLogicalName": "account",
		"expand": [
			{
				"propertyName": "primary_contact",
				"relatedEntityLogicalName": "contact",
				"isManyToMany": false,
				"expand": [
					{"propertyName": "owner", "relatedEntityLogicalName": "systemuser", "isManyToMany": false}
				]
			},
			{"propertyName": "account_leads", "relatedEntityLogicalName": "lead", "isManyToMany": false}
		]
	}`)

	plan, err := Parse(descriptor)
	require.NoError(t, err)
	assert.Equal(t, "account", plan.PrimaryEntityLogicalName)
	require.Len(t, plan.Expansion, 2)
	assert.Equal(t, "primary_contact", plan.Expansion[0].PropertyName)
	require.Len(t, plan.Expansion[0].NestedExpansion, 1)
	assert.Equal(t, "systemuser", plan.Expansion[0].NestedExpansion[0].RelatedEntityLogicalName)
}

func TestParse_NoExpansion(t *testing.T) {
	plan, err := Parse([]byte(`{"primaryEntityLogicalName": "account"}`))
	require.NoError(t, err)
	assert.Empty(t, plan.Expansion)
}

func TestParse_BadJSON(t *testing.T) {
	_, err := Parse([]byte(`{"primaryEntityLogicalName":`))
	requireConfigError(t, err, "valid JSON")
}

func TestParse_MissingPrimaryEntity(t *testing.T) {
	_, err := Parse([]byte(`{"expand": []}`))
	requireConfigError(t, err, "primaryEntityLogicalName")
}

func TestParse_EmptyExpandArray(t *testing.T) {
	_, err := Parse([]byte(`{"primaryEntityLogicalName": "account", "expand": []}`))
	requireConfigError(t, err, "non-empty")
}

func TestParse_EmptyPropertyName(t *testing.T) {
	_, err := Parse([]byte(`{
		"primaryEntityLogicalName": "account",
		"expand": [{"propertyName": "", "relatedEntityLogicalName": "contact", "isManyToMany": false}]
	}`))
	requireConfigError(t, err, "propertyName")
}

func TestParse_EmptyRelatedEntity(t *testing.T) {
	_, err := Parse([]byte(`{
		"primaryEntityLogicalName": "account",
		"expand": [{"propertyName": "p", "relatedEntityLogicalName": "", "isManyToMany": false}]
	}`))
	requireConfigError(t, err, "relatedEntityLogicalName")
}

// A descriptor nested five levels deep always fails with a depth error.
func TestParse_DepthExceeded(t *testing.T) {
	descriptor := []byte(`{"primaryEntityLogicalName": "account", "expand": ` + nestedExpand(5) + `}`)
	_, err := Parse(descriptor)
	requireConfigError(t, err, "depth")
}

func TestParse_DepthAtLimitAccepted(t *testing.T) {
	descriptor := []byte(`{"primaryEntityLogicalName": "account", "expand": ` + nestedExpand(4) + `}`)
	_, err := Parse(descriptor)
	require.NoError(t, err)
}

// One many-to-many node plus any nesting beyond depth 1 is rejected, no
// matter where in the tree the two features appear.
func TestParse_ManyToManyWithDeepNesting(t *testing.T) {
	descriptor := []byte(`{
		"primaryEntityLogicalName": "account",
		"expand": [
			{"propertyName": "account_leads", "relatedEntityLogicalName": "lead", "isManyToMany": true},
			{
				"propertyName": "primary_contact",
				"relatedEntityLogicalName": "contact",
				"isManyToMany": false,
				"expand": [
					{"propertyName": "owner", "relatedEntityLogicalName": "systemuser", "isManyToMany": false}
				]
			}
		]
	}`)

	_, err := Parse(descriptor)
	requireConfigError(t, err, "many-to-many")
}

func TestParse_ManyToManyAtDepthOneAllowed(t *testing.T) {
	descriptor := []byte(`{
		"primaryEntityLogicalName": "account",
		"expand": [
			{"propertyName": "account_leads", "relatedEntityLogicalName": "lead", "isManyToMany": true}
		]
	}`)

	_, err := Parse(descriptor)
	require.NoError(t, err)
}

func TestBuild_SelectAndExpandClauses(t *testing.T) {
	plan, err := Parse([]byte(`{
		"primaryEntityLogicalName": "account",
		"expand": [
			{
				"propertyName": "primary_contact",
				"relatedEntityLogicalName": "contact",
				"isManyToMany": false,
				"expand": [
					{"propertyName": "owner", "relatedEntityLogicalName": "systemuser", "isManyToMany": false}
				]
			}
		]
	}`))
	require.NoError(t, err)

	params, err := Build(plan)
	require.NoError(t, err)
	assert.Equal(t,
		"$select=accountid&$expand=primary_contact($select=contactid;$expand=owner($select=systemuserid))",
		params)
}

func TestBuild_NoExpansion(t *testing.T) {
	params, err := Build(&models.QueryPlan{PrimaryEntityLogicalName: "contact"})
	require.NoError(t, err)
	assert.Equal(t, "$select=contactid", params)
}

// Build re-checks depth so a hand-built plan cannot emit an invalid query.
func TestBuild_RejectsHandBuiltOverDeepPlan(t *testing.T) {
	node := models.QueryPlanNode{PropertyName: "p5", RelatedEntityLogicalName: "e5"}
	for i := 4; i >= 1; i-- {
		node = models.QueryPlanNode{
			PropertyName:             fmt.Sprintf("p%d", i),
			RelatedEntityLogicalName: fmt.Sprintf("e%d", i),
			NestedExpansion:          []models.QueryPlanNode{node},
		}
	}
	plan := &models.QueryPlan{
		PrimaryEntityLogicalName: "account",
		Expansion:                []models.QueryPlanNode{node},
	}

	_, err := Build(plan)
	requireConfigError(t, err, "depth")
}

func TestBuild_NilPlan(t *testing.T) {
	_, err := Build(nil)
	requireConfigError(t, err, "primary entity")
}

// nestedExpand builds a JSON expand array nested `levels` deep.
func nestedExpand(levels int) string {
	inner := ""
	for i := levels; i >= 1; i-- {
		expand := ""
		if inner != "" {
			expand = `, "expand": ` + inner
		}
		inner = fmt.Sprintf(
			`[{"propertyName": "p%d", "relatedEntityLogicalName": "e%d", "isManyToMany": false%s}]`,
			i, i, expand)
	}
	return inner
}

func requireConfigError(t *testing.T, err error, fragment string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfig), "expected a config error, got %T", err)

	var cfgErr *apperrors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, strings.Contains(err.Error(), fragment),
		"error %q should mention %q", err.Error(), fragment)
}
