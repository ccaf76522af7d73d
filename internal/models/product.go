package models

type Product struct {
	ID       string   `json:"id"`
	SellerID string   `json:"sellerId"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Stock    int      `json:"stock"`
	Images   []string `json:"images,omitempty"`
}
