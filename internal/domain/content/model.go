// Package content holds the farm's editorial records: store locations,
// culture items, farm-tour activities and product reviews.
package content

import "time"

// Location is a physical store or farm site.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone,omitempty"`
	Hours     string    `json:"hours,omitempty"`
	Latitude  float64   `json:"latitude,omitempty"`
	Longitude float64   `json:"longitude,omitempty"`
	IsMain    bool      `json:"is_main"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CultureItem is an editorial piece about the farm's history and craft.
type CultureItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FarmTourActivity is a bookable seasonal activity.
type FarmTourActivity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartMonth  int       `json:"start_month"`
	EndMonth    int       `json:"end_month"`
	Price       float64   `json:"price"`
	Capacity    int       `json:"capacity"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InSeason reports whether the activity runs in the given month (1-12).
// Seasons may wrap the year end, e.g. November through February.
func (a FarmTourActivity) InSeason(month time.Month) bool {
	m := int(month)
	if a.StartMonth <= a.EndMonth {
		return m >= a.StartMonth && m <= a.EndMonth
	}
	return m >= a.StartMonth || m <= a.EndMonth
}

// Review is customer feedback on a product. Reviews are hidden until a
// staff member approves them.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body,omitempty"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
