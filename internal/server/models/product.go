package models

// Product is a catalog item. JSON names match the public wire format.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	InStock     bool    `json:"inStock"`
}
