package registry

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activity(id string) Activity {
	return Activity{
		ID:          id,
		DisplayName: id,
		Category:    "search",
		TaskType:    id,
		InputSchema: json.RawMessage(`{"type":"object"}`),
		ErrorCodes:  []string{"INVALID_QUERY_INPUT"},
		Timeout:     "2s",
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg := &ActivityRegistry{Version: "1.0.0", Activities: []Activity{activity("interpret-query")}}

	require.NoError(t, SaveRegistry(reg, path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, loaded.Activities, 1)
	assert.Equal(t, "interpret-query", loaded.Activities[0].TaskType)
	assert.JSONEq(t, `{"type":"object"}`, string(loaded.Activities[0].InputSchema))
}

func TestLoadRegistry_Missing(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ActivityRegistry)
		wantErr string
	}{
		{"valid", func(r *ActivityRegistry) {}, ""},
		{"empty", func(r *ActivityRegistry) { r.Activities = nil }, "no activities"},
		{"missing id", func(r *ActivityRegistry) { r.Activities[0].ID = "" }, "ID"},
		{"missing task type", func(r *ActivityRegistry) { r.Activities[0].TaskType = "" }, "TaskType"},
		{"duplicate id", func(r *ActivityRegistry) { r.Activities[1].ID = "build-cart" }, "duplicate activity ID"},
		{"duplicate task type", func(r *ActivityRegistry) { r.Activities[1].TaskType = "build-cart" }, "duplicate task type"},
		{"bad status", func(r *ActivityRegistry) { r.Activities[0].ImplementationStatus = "shipped" }, "unknown status"},
		{"schema not object", func(r *ActivityRegistry) { r.Activities[0].InputSchema = json.RawMessage(`[1]`) }, "input schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{activity("build-cart"), activity("rerank-results")}}
			tt.mutate(reg)

			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDiff(t *testing.T) {
	want := &ActivityRegistry{Activities: []Activity{activity("build-cart"), activity("rerank-results")}}

	t.Run("whitespace and status do not count", func(t *testing.T) {
		got := &ActivityRegistry{Activities: []Activity{activity("build-cart"), activity("rerank-results")}}
		got.Activities[0].InputSchema = json.RawMessage("{\n  \"type\": \"object\"\n}")
		got.Activities[0].ImplementationStatus = "verified"
		assert.Empty(t, got.Diff(want))
	})

	t.Run("drift is reported", func(t *testing.T) {
		changed := activity("rerank-results")
		changed.Timeout = "5s"
		got := &ActivityRegistry{Activities: []Activity{changed, activity("voice-search")}}

		assert.Equal(t, []string{
			"build-cart: missing",
			"rerank-results: changed",
			"voice-search: unknown",
		}, got.Diff(want))
	})
}
