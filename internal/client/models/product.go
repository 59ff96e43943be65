// Package models defines the client-side view of catalog data.
package models

import "fmt"

// Product mirrors the server's JSON representation.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	InStock     bool    `json:"inStock"`
}

func (p Product) String() string {
	stock := "in stock"
	if !p.InStock {
		stock = "out of stock"
	}
	return fmt.Sprintf("#%d %s  %.2f  (%s)", p.ID, p.Name, p.Price, stock)
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token      string `json:"token"`
	Expiration int64  `json:"expiration"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}

// Identity is what the server reports about the caller's own token.
type Identity struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	Expiration int64  `json:"expiration"`
}

// ImageUpload is a presigned upload target for a product image.
type ImageUpload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
}
