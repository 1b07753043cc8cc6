package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kitchensync/internal/model"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario_Testdata(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "order_lifecycle.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "order_lifecycle", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "catalog.yaml"), s.Catalog)
	require.Len(t, s.Flow, 3)
	assert.Equal(t, "create_order", s.Flow[0].Action)
	require.NotNil(t, s.Flow[0].Expect)
	assert.Empty(t, s.Flow[0].Expect.Error)
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, model.EntityOrder, s.Assertions[1].EntityType)
	assert.Equal(t, model.OpUpdate, s.Assertions[1].Operation)
	assert.Equal(t, 3, s.Assertions[1].Count)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown field",
			body:    "name: x\ndescription: y\nflw: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			body:    "description: y\nflow: [{action: create_category, args: {name: A}}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			body:    "name: x\nflow: [{action: create_category, args: {name: A}}]\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			body:    "name: x\ndescription: y\nflow: []\n",
			wantErr: "flow list is required",
		},
		{
			name:    "unknown action",
			body:    "name: x\ndescription: y\nflow: [{action: fry_egg, args: {}}]\n",
			wantErr: `unknown action "fry_egg"`,
		},
		{
			name:    "expect in setup",
			body:    "name: x\ndescription: y\nsetup: [{action: create_category, args: {name: A}, expect: {error: validation}}]\nflow: [{action: create_category, args: {name: B}}]\n",
			wantErr: "expect is only allowed in flow",
		},
		{
			name:    "unknown error kind",
			body:    "name: x\ndescription: y\nflow: [{action: create_category, args: {name: A}, expect: {error: boom}}]\n",
			wantErr: `unknown error kind "boom"`,
		},
		{
			name:    "missing catalog",
			body:    "name: x\ndescription: y\ncatalog: nope.yaml\nflow: [{action: create_category, args: {name: A}}]\n",
			wantErr: "catalog file not found",
		},
		{
			name:    "unknown assertion type",
			body:    "name: x\ndescription: y\nflow: [{action: create_category, args: {name: A}}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "count without entity type",
			body:    "name: x\ndescription: y\nflow: [{action: create_category, args: {name: A}}]\nassertions: [{type: envelope_count, count: 1}]\n",
			wantErr: "valid entity_type is required",
		},
		{
			name:    "order without sequence",
			body:    "name: x\ndescription: y\nflow: [{action: create_category, args: {name: A}}]\nassertions: [{type: envelope_order}]\n",
			wantErr: "sequence is required",
		},
		{
			name:    "final state without id",
			body:    "name: x\ndescription: y\nflow: [{action: create_category, args: {name: A}}]\nassertions: [{type: final_state, entity_type: Order, expect: {status: Draft}}]\n",
			wantErr: "id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_SettingsFinalStateNeedsNoID(t *testing.T) {
	body := `
name: settings
description: settings singleton
flow:
  - action: update_settings
    args: {}
assertions:
  - type: final_state
    entity_type: Settings
    expect: {id: settings}
`
	_, err := LoadScenario(writeScenario(t, body))
	require.NoError(t, err)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestActions_Sorted(t *testing.T) {
	names := Actions()
	assert.Contains(t, names, "create_order")
	assert.Contains(t, names, "bulk_update_status")
	assert.IsIncreasing(t, names)
}
