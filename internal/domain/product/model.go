package product

import "time"

// Category values accepted for products.
const (
	CategoryFruit     = "fruit"
	CategoryVegetable = "vegetable"
	CategoryTea       = "tea"
	CategoryProcessed = "processed"
	CategoryGift      = "gift"
)

// Categories lists the accepted product categories.
var Categories = []string{
	CategoryFruit,
	CategoryVegetable,
	CategoryTea,
	CategoryProcessed,
	CategoryGift,
}

// ValidCategory reports whether c is an accepted category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// Product is a catalog entry offered for inquiry.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Images      []string  `json:"images"`
	Inventory   int       `json:"inventory"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows product listings.
type Filter struct {
	Category   string
	ActiveOnly bool
	Search     string
}
