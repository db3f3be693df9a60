package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aim840912/haode-api/internal/domain/audit"
	"github.com/aim840912/haode-api/internal/domain/content"
	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/domain/order"
	"github.com/aim840912/haode-api/internal/domain/product"
)

// ErrNotFound reports a missing row. Every backend returns it (possibly
// wrapped) so callers can map lookups to HTTP 404 without knowing which
// store is behind the interface.
var ErrNotFound = errors.New("not found")

// ProductStore persists catalog entries.
type ProductStore interface {
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	UpdateProduct(ctx context.Context, p product.Product) (product.Product, error)
	GetProduct(ctx context.Context, id string) (product.Product, error)
	ListProducts(ctx context.Context, filter product.Filter) ([]product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// InquiryStore persists quote requests and farm-tour bookings.
type InquiryStore interface {
	CreateInquiry(ctx context.Context, inq inquiry.Inquiry) (inquiry.Inquiry, error)
	UpdateInquiry(ctx context.Context, inq inquiry.Inquiry) (inquiry.Inquiry, error)
	GetInquiry(ctx context.Context, id string) (inquiry.Inquiry, error)
	ListInquiries(ctx context.Context, filter inquiry.Filter) ([]inquiry.Inquiry, error)
}

// OrderStore persists order headers and snapshot line items.
type OrderStore interface {
	CreateOrder(ctx context.Context, ord order.Order) (order.Order, error)
	UpdateOrder(ctx context.Context, ord order.Order) (order.Order, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
}

// AuditStore persists the append-only admin action trail.
type AuditStore interface {
	CreateAuditEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error)
	ListAuditEntries(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
	// LastAuditEntry returns the newest entry matching actor, action and
	// resource, or an error when none exists. Used by view dedup.
	LastAuditEntry(ctx context.Context, actorID, action, resourceType, resourceID string) (audit.Entry, error)
	// DeleteAuditEntriesBefore removes entries older than the cutoff and
	// returns the number removed.
	DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// LocationStore persists store locations.
type LocationStore interface {
	CreateLocation(ctx context.Context, loc content.Location) (content.Location, error)
	UpdateLocation(ctx context.Context, loc content.Location) (content.Location, error)
	GetLocation(ctx context.Context, id string) (content.Location, error)
	ListLocations(ctx context.Context) ([]content.Location, error)
	DeleteLocation(ctx context.Context, id string) error
}

// CultureStore persists culture items.
type CultureStore interface {
	CreateCultureItem(ctx context.Context, item content.CultureItem) (content.CultureItem, error)
	UpdateCultureItem(ctx context.Context, item content.CultureItem) (content.CultureItem, error)
	GetCultureItem(ctx context.Context, id string) (content.CultureItem, error)
	ListCultureItems(ctx context.Context) ([]content.CultureItem, error)
	DeleteCultureItem(ctx context.Context, id string) error
}

// FarmTourStore persists bookable activities.
type FarmTourStore interface {
	CreateActivity(ctx context.Context, act content.FarmTourActivity) (content.FarmTourActivity, error)
	UpdateActivity(ctx context.Context, act content.FarmTourActivity) (content.FarmTourActivity, error)
	GetActivity(ctx context.Context, id string) (content.FarmTourActivity, error)
	ListActivities(ctx context.Context) ([]content.FarmTourActivity, error)
	DeleteActivity(ctx context.Context, id string) error
}

// ReviewStore persists product reviews.
type ReviewStore interface {
	CreateReview(ctx context.Context, rev content.Review) (content.Review, error)
	UpdateReview(ctx context.Context, rev content.Review) (content.Review, error)
	GetReview(ctx context.Context, id string) (content.Review, error)
	ListReviews(ctx context.Context, productID string, approvedOnly bool) ([]content.Review, error)
}
