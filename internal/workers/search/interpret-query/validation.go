package interpretquery

import "commerce-search-workers/internal/common/validation"

// GetInputSchema describes the job variables accepted by this worker.
func GetInputSchema(maxLength int) validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"text"},
		Properties: map[string]validation.Property{
			"text": {
				Type:        "string",
				Description: "Free-text or transcribed search query",
				MaxLength:   validation.IntPtr(maxLength),
			},
		},
	}
}
