package rerankresults

import "commerce-search-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"candidates"},
		Properties: map[string]validation.Property{
			"candidates": {
				Type: "array",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"id"},
					Properties: map[string]validation.Property{
						"id": {Type: "string"},
					},
				},
			},
			"location": {
				Type:     "object",
				Required: []string{"lat", "lon"},
				Properties: map[string]validation.Property{
					"lat": {Type: "number", Minimum: validation.FloatPtr(-90), Maximum: validation.FloatPtr(90)},
					"lon": {Type: "number", Minimum: validation.FloatPtr(-180), Maximum: validation.FloatPtr(180)},
				},
			},
			"maxPerStore":    {Type: "integer"},
			"maxPerCategory": {Type: "integer"},
		},
	}
}
