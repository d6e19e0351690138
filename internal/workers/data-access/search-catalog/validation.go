package searchcatalog

import "commerce-search-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"text"},
		Properties: map[string]validation.Property{
			"queryType": {Type: "string", Enum: []string{QueryTypeItems, QueryTypeStore}},
			"text":      {Type: "string", MaxLength: validation.IntPtr(500)},
			"size":      {Type: "integer", Minimum: validation.FloatPtr(1), Maximum: validation.FloatPtr(100)},
			"location": {
				Type:     "object",
				Required: []string{"lat", "lon"},
				Properties: map[string]validation.Property{
					"lat": {Type: "number", Minimum: validation.FloatPtr(-90), Maximum: validation.FloatPtr(90)},
					"lon": {Type: "number", Minimum: validation.FloatPtr(-180), Maximum: validation.FloatPtr(180)},
				},
			},
		},
	}
}
