package commercesearch

import "commerce-search-workers/internal/common/validation"

func GetInputSchema(maxLength int) validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"text"},
		Properties: map[string]validation.Property{
			"text":   {Type: "string", MaxLength: validation.IntPtr(maxLength)},
			"userId": {Type: "string"},
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
