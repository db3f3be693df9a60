package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/domain/order"
	"github.com/aim840912/haode-api/internal/storage"
	"github.com/aim840912/haode-api/pkg/logger"
)

// ErrInquiryNotConfirmed is returned when converting an inquiry that has not
// reached confirmed state.
var ErrInquiryNotConfirmed = errors.New("inquiry is not confirmed")

// Service manages orders and their snapshot line items.
type Service struct {
	store     storage.OrderStore
	inquiries storage.InquiryStore
	log       *logger.Logger
}

// New constructs an order service. The inquiry store is required only for
// conversion; it may be nil otherwise.
func New(store storage.OrderStore, inquiries storage.InquiryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	return &Service{store: store, inquiries: inquiries, log: log}
}

// Create registers an order. Line items carry their own snapshot prices; the
// total is recomputed from the lines when not supplied.
func (s *Service) Create(ctx context.Context, ord order.Order) (order.Order, error) {
	ord.CustomerName = strings.TrimSpace(ord.CustomerName)
	if ord.CustomerName == "" {
		return order.Order{}, fmt.Errorf("customer_name is required")
	}
	if len(ord.Items) == 0 {
		return order.Order{}, fmt.Errorf("at least one item is required")
	}
	for i, item := range ord.Items {
		if item.Quantity <= 0 {
			return order.Order{}, fmt.Errorf("item %d: quantity must be positive", i)
		}
		if item.UnitPrice < 0 {
			return order.Order{}, fmt.Errorf("item %d: unit price cannot be negative", i)
		}
	}
	if ord.Status == "" {
		ord.Status = order.StatusPending
	}
	if !order.ValidStatus(ord.Status) {
		return order.Order{}, fmt.Errorf("unknown status %q", ord.Status)
	}
	if ord.Total <= 0 {
		ord.Total = itemTotal(ord.Items)
	}

	created, err := s.store.CreateOrder(ctx, ord)
	if err != nil {
		return order.Order{}, err
	}
	s.log.WithField("order_id", created.ID).
		WithField("total", created.Total).
		Info("order created")
	return created, nil
}

// ConvertInquiry turns a confirmed inquiry into an order with snapshot
// line items, then marks the inquiry completed.
func (s *Service) ConvertInquiry(ctx context.Context, inquiryID string) (order.Order, error) {
	if s.inquiries == nil {
		return order.Order{}, fmt.Errorf("inquiry store not configured")
	}

	inq, err := s.inquiries.GetInquiry(ctx, inquiryID)
	if err != nil {
		return order.Order{}, err
	}
	if inq.Status != inquiry.StatusConfirmed {
		return order.Order{}, fmt.Errorf("inquiry %s is %s: %w", inquiryID, inq.Status, ErrInquiryNotConfirmed)
	}
	if inq.Type != inquiry.TypeProduct {
		return order.Order{}, fmt.Errorf("inquiry %s is a %s booking, not convertible", inquiryID, inq.Type)
	}

	items := make([]order.Item, len(inq.Items))
	for i, line := range inq.Items {
		items[i] = order.Item{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		}
	}

	total := inq.TotalQuoted
	if total <= 0 {
		total = itemTotal(items)
	}

	ord := order.Order{
		InquiryID:     inq.ID,
		CustomerName:  inq.CustomerName,
		CustomerEmail: inq.CustomerEmail,
		CustomerPhone: inq.CustomerPhone,
		Status:        order.StatusPending,
		Items:         items,
		Total:         total,
		Notes:         inq.Notes,
	}
	created, err := s.store.CreateOrder(ctx, ord)
	if err != nil {
		return order.Order{}, err
	}

	inq.Status = inquiry.StatusCompleted
	if _, err := s.inquiries.UpdateInquiry(ctx, inq); err != nil {
		s.log.WithError(err).
			WithField("inquiry_id", inq.ID).
			Warn("order created but inquiry completion failed")
	}

	s.log.WithField("order_id", created.ID).
		WithField("inquiry_id", inq.ID).
		Info("inquiry converted to order")
	return created, nil
}

// SetStatus updates the fulfilment state.
func (s *Service) SetStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	if !order.ValidStatus(status) {
		return order.Order{}, fmt.Errorf("unknown status %q", status)
	}

	ord, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	if ord.Status == status {
		return ord, nil
	}

	ord.Status = status
	updated, err := s.store.UpdateOrder(ctx, ord)
	if err != nil {
		return order.Order{}, err
	}
	s.log.WithField("order_id", updated.ID).
		WithField("status", string(status)).
		Info("order status changed")
	return updated, nil
}

// Get retrieves a single order by identifier.
func (s *Service) Get(ctx context.Context, id string) (order.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]order.Order, error) {
	return s.store.ListOrders(ctx)
}

func itemTotal(items []order.Item) float64 {
	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}
