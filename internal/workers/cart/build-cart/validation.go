package buildcart

import "commerce-search-workers/internal/common/validation"

// GetInputSchema describes the job variables accepted by build-cart.
func GetInputSchema(maxItems int) validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"items"},
		Properties: map[string]validation.Property{
			"items": {
				Type:     "array",
				MaxItems: validation.IntPtr(maxItems),
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"itemName", "quantity"},
					Properties: map[string]validation.Property{
						"itemName": {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(200)},
						"quantity": {Type: "integer", Minimum: validation.FloatPtr(1)},
					},
				},
			},
			"storeId":   {Type: "string"},
			"storeName": {Type: "string", MaxLength: validation.IntPtr(200)},
			"zoneId":    {Type: "string"},
			"moduleId":  {Type: "string"},
		},
	}
}
