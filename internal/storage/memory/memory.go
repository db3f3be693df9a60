package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aim840912/haode-api/internal/domain/audit"
	"github.com/aim840912/haode-api/internal/domain/content"
	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/domain/order"
	"github.com/aim840912/haode-api/internal/domain/product"
	"github.com/aim840912/haode-api/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	products   map[string]product.Product
	inquiries  map[string]inquiry.Inquiry
	orders     map[string]order.Order
	auditLog   []audit.Entry
	locations  map[string]content.Location
	culture    map[string]content.CultureItem
	activities map[string]content.FarmTourActivity
	reviews    map[string]content.Review
}

var _ storage.ProductStore = (*Store)(nil)
var _ storage.InquiryStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)
var _ storage.LocationStore = (*Store)(nil)
var _ storage.CultureStore = (*Store)(nil)
var _ storage.FarmTourStore = (*Store)(nil)
var _ storage.ReviewStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		products:   make(map[string]product.Product),
		inquiries:  make(map[string]inquiry.Inquiry),
		orders:     make(map[string]order.Order),
		locations:  make(map[string]content.Location),
		culture:    make(map[string]content.CultureItem),
		activities: make(map[string]content.FarmTourActivity),
		reviews:    make(map[string]content.Review),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// ProductStore implementation -------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.products[p.ID]; exists {
		return product.Product{}, fmt.Errorf("product %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Images = append([]string(nil), p.Images...)

	s.products[p.ID] = p
	return cloneProduct(p), nil
}

func (s *Store) UpdateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.products[p.ID]
	if !ok {
		return product.Product{}, fmt.Errorf("product %s: %w", p.ID, storage.ErrNotFound)
	}

	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Images = append([]string(nil), p.Images...)

	s.products[p.ID] = p
	return cloneProduct(p), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return product.Product{}, fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	return cloneProduct(p), nil
}

func (s *Store) ListProducts(_ context.Context, filter product.Filter) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]product.Product, 0)
	for _, p := range s.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.Search != "" && !matchesSearch(p, filter.Search) {
			continue
		}
		result = append(result, cloneProduct(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	delete(s.products, id)
	return nil
}

func matchesSearch(p product.Product, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

// InquiryStore implementation -------------------------------------------------

func (s *Store) CreateInquiry(_ context.Context, inq inquiry.Inquiry) (inquiry.Inquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inq.ID == "" {
		inq.ID = s.nextIDLocked()
	} else if _, exists := s.inquiries[inq.ID]; exists {
		return inquiry.Inquiry{}, fmt.Errorf("inquiry %s already exists", inq.ID)
	}

	now := time.Now().UTC()
	inq.CreatedAt = now
	inq.UpdatedAt = now
	inq.Items = append([]inquiry.Item(nil), inq.Items...)

	s.inquiries[inq.ID] = inq
	return cloneInquiry(inq), nil
}

func (s *Store) UpdateInquiry(_ context.Context, inq inquiry.Inquiry) (inquiry.Inquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.inquiries[inq.ID]
	if !ok {
		return inquiry.Inquiry{}, fmt.Errorf("inquiry %s: %w", inq.ID, storage.ErrNotFound)
	}

	inq.CreatedAt = original.CreatedAt
	inq.UpdatedAt = time.Now().UTC()
	inq.Items = append([]inquiry.Item(nil), inq.Items...)

	s.inquiries[inq.ID] = inq
	return cloneInquiry(inq), nil
}

func (s *Store) GetInquiry(_ context.Context, id string) (inquiry.Inquiry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inq, ok := s.inquiries[id]
	if !ok {
		return inquiry.Inquiry{}, fmt.Errorf("inquiry %s: %w", id, storage.ErrNotFound)
	}
	return cloneInquiry(inq), nil
}

func (s *Store) ListInquiries(_ context.Context, filter inquiry.Filter) ([]inquiry.Inquiry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]inquiry.Inquiry, 0)
	for _, inq := range s.inquiries {
		if filter.Status != "" && inq.Status != filter.Status {
			continue
		}
		if filter.Type != "" && inq.Type != filter.Type {
			continue
		}
		if filter.CustomerEmail != "" && !strings.EqualFold(inq.CustomerEmail, filter.CustomerEmail) {
			continue
		}
		result = append(result, cloneInquiry(inq))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// OrderStore implementation ---------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, ord order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ord.ID == "" {
		ord.ID = s.nextIDLocked()
	} else if _, exists := s.orders[ord.ID]; exists {
		return order.Order{}, fmt.Errorf("order %s already exists", ord.ID)
	}

	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.UpdatedAt = now
	ord.Items = append([]order.Item(nil), ord.Items...)

	s.orders[ord.ID] = ord
	return cloneOrder(ord), nil
}

func (s *Store) UpdateOrder(_ context.Context, ord order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.orders[ord.ID]
	if !ok {
		return order.Order{}, fmt.Errorf("order %s: %w", ord.ID, storage.ErrNotFound)
	}

	ord.CreatedAt = original.CreatedAt
	ord.UpdatedAt = time.Now().UTC()
	ord.Items = append([]order.Item(nil), ord.Items...)

	s.orders[ord.ID] = ord
	return cloneOrder(ord), nil
}

func (s *Store) GetOrder(_ context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ord, ok := s.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
	}
	return cloneOrder(ord), nil
}

func (s *Store) ListOrders(_ context.Context) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]order.Order, 0, len(s.orders))
	for _, ord := range s.orders {
		result = append(result, cloneOrder(ord))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// AuditStore implementation ---------------------------------------------------

func (s *Store) CreateAuditEntry(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = s.nextIDLocked()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.auditLog = append(s.auditLog, entry)
	return entry, nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]audit.Entry, 0)
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		entry := s.auditLog[i]
		if filter.ActorID != "" && entry.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && entry.ResourceType != filter.ResourceType {
			continue
		}
		if !filter.Since.IsZero() && entry.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && entry.CreatedAt.After(filter.Until) {
			continue
		}
		result = append(result, entry)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) LastAuditEntry(_ context.Context, actorID, action, resourceType, resourceID string) (audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.auditLog) - 1; i >= 0; i-- {
		entry := s.auditLog[i]
		if entry.ActorID == actorID && entry.Action == action &&
			entry.ResourceType == resourceType && entry.ResourceID == resourceID {
			return entry, nil
		}
	}
	return audit.Entry{}, fmt.Errorf("audit entry for actor %s action %s: %w", actorID, action, storage.ErrNotFound)
}

func (s *Store) DeleteAuditEntriesBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.auditLog[:0]
	removed := 0
	for _, entry := range s.auditLog {
		if entry.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	s.auditLog = kept
	return removed, nil
}

// LocationStore implementation ------------------------------------------------

func (s *Store) CreateLocation(_ context.Context, loc content.Location) (content.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc.ID == "" {
		loc.ID = s.nextIDLocked()
	} else if _, exists := s.locations[loc.ID]; exists {
		return content.Location{}, fmt.Errorf("location %s already exists", loc.ID)
	}

	now := time.Now().UTC()
	loc.CreatedAt = now
	loc.UpdatedAt = now

	s.locations[loc.ID] = loc
	return loc, nil
}

func (s *Store) UpdateLocation(_ context.Context, loc content.Location) (content.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.locations[loc.ID]
	if !ok {
		return content.Location{}, fmt.Errorf("location %s: %w", loc.ID, storage.ErrNotFound)
	}

	loc.CreatedAt = original.CreatedAt
	loc.UpdatedAt = time.Now().UTC()

	s.locations[loc.ID] = loc
	return loc, nil
}

func (s *Store) GetLocation(_ context.Context, id string) (content.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[id]
	if !ok {
		return content.Location{}, fmt.Errorf("location %s: %w", id, storage.ErrNotFound)
	}
	return loc, nil
}

func (s *Store) ListLocations(_ context.Context) ([]content.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]content.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		result = append(result, loc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return fmt.Errorf("location %s: %w", id, storage.ErrNotFound)
	}
	delete(s.locations, id)
	return nil
}

// CultureStore implementation -------------------------------------------------

func (s *Store) CreateCultureItem(_ context.Context, item content.CultureItem) (content.CultureItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = s.nextIDLocked()
	} else if _, exists := s.culture[item.ID]; exists {
		return content.CultureItem{}, fmt.Errorf("culture item %s already exists", item.ID)
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	s.culture[item.ID] = item
	return item, nil
}

func (s *Store) UpdateCultureItem(_ context.Context, item content.CultureItem) (content.CultureItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.culture[item.ID]
	if !ok {
		return content.CultureItem{}, fmt.Errorf("culture item %s: %w", item.ID, storage.ErrNotFound)
	}

	item.CreatedAt = original.CreatedAt
	item.UpdatedAt = time.Now().UTC()

	s.culture[item.ID] = item
	return item, nil
}

func (s *Store) GetCultureItem(_ context.Context, id string) (content.CultureItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.culture[id]
	if !ok {
		return content.CultureItem{}, fmt.Errorf("culture item %s: %w", id, storage.ErrNotFound)
	}
	return item, nil
}

func (s *Store) ListCultureItems(_ context.Context) ([]content.CultureItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]content.CultureItem, 0, len(s.culture))
	for _, item := range s.culture {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteCultureItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.culture[id]; !ok {
		return fmt.Errorf("culture item %s: %w", id, storage.ErrNotFound)
	}
	delete(s.culture, id)
	return nil
}

// FarmTourStore implementation ------------------------------------------------

func (s *Store) CreateActivity(_ context.Context, act content.FarmTourActivity) (content.FarmTourActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if act.ID == "" {
		act.ID = s.nextIDLocked()
	} else if _, exists := s.activities[act.ID]; exists {
		return content.FarmTourActivity{}, fmt.Errorf("activity %s already exists", act.ID)
	}

	now := time.Now().UTC()
	act.CreatedAt = now
	act.UpdatedAt = now

	s.activities[act.ID] = act
	return act, nil
}

func (s *Store) UpdateActivity(_ context.Context, act content.FarmTourActivity) (content.FarmTourActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.activities[act.ID]
	if !ok {
		return content.FarmTourActivity{}, fmt.Errorf("activity %s: %w", act.ID, storage.ErrNotFound)
	}

	act.CreatedAt = original.CreatedAt
	act.UpdatedAt = time.Now().UTC()

	s.activities[act.ID] = act
	return act, nil
}

func (s *Store) GetActivity(_ context.Context, id string) (content.FarmTourActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	act, ok := s.activities[id]
	if !ok {
		return content.FarmTourActivity{}, fmt.Errorf("activity %s: %w", id, storage.ErrNotFound)
	}
	return act, nil
}

func (s *Store) ListActivities(_ context.Context) ([]content.FarmTourActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]content.FarmTourActivity, 0, len(s.activities))
	for _, act := range s.activities {
		result = append(result, act)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteActivity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activities[id]; !ok {
		return fmt.Errorf("activity %s: %w", id, storage.ErrNotFound)
	}
	delete(s.activities, id)
	return nil
}

// ReviewStore implementation --------------------------------------------------

func (s *Store) CreateReview(_ context.Context, rev content.Review) (content.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rev.ID == "" {
		rev.ID = s.nextIDLocked()
	} else if _, exists := s.reviews[rev.ID]; exists {
		return content.Review{}, fmt.Errorf("review %s already exists", rev.ID)
	}

	now := time.Now().UTC()
	rev.CreatedAt = now
	rev.UpdatedAt = now

	s.reviews[rev.ID] = rev
	return rev, nil
}

func (s *Store) UpdateReview(_ context.Context, rev content.Review) (content.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.reviews[rev.ID]
	if !ok {
		return content.Review{}, fmt.Errorf("review %s: %w", rev.ID, storage.ErrNotFound)
	}

	rev.CreatedAt = original.CreatedAt
	rev.UpdatedAt = time.Now().UTC()

	s.reviews[rev.ID] = rev
	return rev, nil
}

func (s *Store) GetReview(_ context.Context, id string) (content.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rev, ok := s.reviews[id]
	if !ok {
		return content.Review{}, fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
	}
	return rev, nil
}

func (s *Store) ListReviews(_ context.Context, productID string, approvedOnly bool) ([]content.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]content.Review, 0)
	for _, rev := range s.reviews {
		if productID != "" && rev.ProductID != productID {
			continue
		}
		if approvedOnly && !rev.Approved {
			continue
		}
		result = append(result, rev)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// Helpers --------------------------------------------------------------------

func cloneProduct(p product.Product) product.Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}

func cloneInquiry(inq inquiry.Inquiry) inquiry.Inquiry {
	inq.Items = append([]inquiry.Item(nil), inq.Items...)
	return inq
}

func cloneOrder(ord order.Order) order.Order {
	ord.Items = append([]order.Item(nil), ord.Items...)
	return ord
}
