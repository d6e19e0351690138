// pkg/registry/registry.go
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

var validStatuses = map[string]bool{
	"planned":     true,
	"in-progress": true,
	"completed":   true,
	"verified":    true,
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry writes reg as indented JSON, creating parent directories.
func SaveRegistry(reg *ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the activity serving taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks required fields, unique ids and task types, known
// statuses and that every input schema is a JSON object.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, a := range r.Activities {
		switch {
		case a.ID == "":
			return fmt.Errorf("activity missing required field: ID")
		case a.DisplayName == "":
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		case a.TaskType == "":
			return fmt.Errorf("activity %s missing required field: TaskType", a.ID)
		case a.Category == "":
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		ids[a.ID] = true
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		taskTypes[a.TaskType] = true

		if a.ImplementationStatus != "" && !validStatuses[a.ImplementationStatus] {
			return fmt.Errorf("activity %s has unknown status %q", a.ID, a.ImplementationStatus)
		}
		if len(a.InputSchema) > 0 {
			var obj map[string]interface{}
			if err := json.Unmarshal(a.InputSchema, &obj); err != nil {
				return fmt.Errorf("activity %s input schema is not a JSON object: %w", a.ID, err)
			}
		}
	}
	return nil
}

// Diff lists the task types whose entry in r differs from want, plus the
// ones present on only one side. Versions, statuses and timestamps are
// ignored.
func (r *ActivityRegistry) Diff(want *ActivityRegistry) []string {
	var drift []string
	seen := make(map[string]bool)

	for _, w := range want.Activities {
		seen[w.TaskType] = true
		got, ok := r.Find(w.TaskType)
		if !ok {
			drift = append(drift, w.TaskType+": missing")
			continue
		}
		if !sameContract(*got, w) {
			drift = append(drift, w.TaskType+": changed")
		}
	}
	for _, a := range r.Activities {
		if !seen[a.TaskType] {
			drift = append(drift, a.TaskType+": unknown")
		}
	}

	sort.Strings(drift)
	return drift
}

func sameContract(a, b Activity) bool {
	if a.ID != b.ID || a.Category != b.Category || a.Timeout != b.Timeout || a.Retries != b.Retries {
		return false
	}
	if len(a.ErrorCodes) != len(b.ErrorCodes) {
		return false
	}
	for i := range a.ErrorCodes {
		if a.ErrorCodes[i] != b.ErrorCodes[i] {
			return false
		}
	}
	return jsonEqual(a.InputSchema, b.InputSchema)
}

func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return len(a) == len(b)
	}
	if err := json.Compact(&cb, b); err != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
