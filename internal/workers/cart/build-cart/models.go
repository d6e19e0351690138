// internal/workers/cart/build-cart/models.go
package buildcart

import "commerce-search-workers/internal/models"

type Input struct {
	Items     []models.NERCartItem `json:"items"`
	StoreID   string               `json:"storeId"`
	StoreName string               `json:"storeName"`
	ZoneID    string               `json:"zoneId"`
	ModuleID  string               `json:"moduleId"`
}

func (in *Input) Options() models.CartOptions {
	return models.CartOptions{
		StoreID:   in.StoreID,
		StoreName: in.StoreName,
		ZoneID:    in.ZoneID,
		ModuleID:  in.ModuleID,
	}
}

type Output struct {
	models.CartResponse
}
