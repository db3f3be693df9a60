package inquiry

import "time"

// Status is the lifecycle state of an inquiry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQuoted    Status = "quoted"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the allow-list of status edges. Terminal states have no
// outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:   {StatusQuoted, StatusCancelled},
	StatusQuoted:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Type distinguishes product quote requests from farm-tour bookings.
type Type string

const (
	TypeProduct  Type = "product"
	TypeFarmTour Type = "farm_tour"
)

// Item is a product line on an inquiry. Name and unit price are snapshots
// taken when the line is added; quoting may adjust the unit price.
type Item struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Inquiry is a customer quote request resolved manually by staff.
type Inquiry struct {
	ID             string    `json:"id"`
	CustomerName   string    `json:"customer_name"`
	CustomerEmail  string    `json:"customer_email"`
	CustomerPhone  string    `json:"customer_phone"`
	Type           Type      `json:"type"`
	Status         Status    `json:"status"`
	Items          []Item    `json:"items,omitempty"`
	TourActivityID string    `json:"tour_activity_id,omitempty"`
	TourDate       time.Time `json:"tour_date,omitempty"`
	TourVisitors   int       `json:"tour_visitors,omitempty"`
	TotalQuoted    float64   `json:"total_quoted"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Total sums quantity times unit price across the items.
func (i Inquiry) Total() float64 {
	var total float64
	for _, item := range i.Items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

// Filter narrows inquiry listings.
type Filter struct {
	Status        Status
	Type          Type
	CustomerEmail string
}
