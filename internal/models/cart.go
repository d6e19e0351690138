// internal/models/cart.go
package models

type MatchStatus string

const (
	StatusMatched         MatchStatus = "matched"
	StatusNotFound        MatchStatus = "not_found"
	StatusMultipleMatches MatchStatus = "multiple_matches"
)

type NERCartItem struct {
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

type MatchedCartItem struct {
	NERItem        NERCartItem `json:"nerItem"`
	Quantity       int         `json:"quantity"`
	MatchedProduct *Candidate  `json:"matchedProduct"`
	MatchScore     float64     `json:"matchScore"`
	Subtotal       float64     `json:"subtotal"`
	Status         MatchStatus `json:"status"`
	Alternatives   []Candidate `json:"alternatives,omitempty"`
}

type CartOptions struct {
	StoreID   string `json:"storeId,omitempty"`
	StoreName string `json:"storeName,omitempty"`
	ZoneID    string `json:"zoneId,omitempty"`
	ModuleID  string `json:"moduleId,omitempty"`
}

type BuiltCart struct {
	CartID              string            `json:"cartId"`
	Items               []MatchedCartItem `json:"items"`
	StoreID             string            `json:"storeId,omitempty"`
	StoreName           string            `json:"storeName,omitempty"`
	Subtotal            float64           `json:"subtotal"`
	ItemCount           int               `json:"itemCount"`
	MatchedCount        int               `json:"matchedCount"`
	UnmatchedItems      []string          `json:"unmatchedItems"`
	NeedsClarification  bool              `json:"needsClarification"`
	ClarificationNeeded []string          `json:"clarificationNeeded"`
}

type CartResponse struct {
	Success bool      `json:"success"`
	Cart    BuiltCart `json:"cart"`
	Issues  []string  `json:"issues"`
	Message string    `json:"message"`
}
