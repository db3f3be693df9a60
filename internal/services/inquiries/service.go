package inquiries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/storage"
	"github.com/aim840912/haode-api/pkg/logger"
)

// ErrInvalidTransition is returned when a status change is not on the
// allow-list of edges.
var ErrInvalidTransition = errors.New("invalid inquiry status transition")

// Service manages the quote workflow for product inquiries and farm-tour
// bookings.
type Service struct {
	store    storage.InquiryStore
	products storage.ProductStore
	tours    storage.FarmTourStore
	log      *logger.Logger
}

// New constructs an inquiry service. The product and farm-tour stores are
// used to validate references and snapshot prices; either may be nil, which
// skips that validation.
func New(store storage.InquiryStore, products storage.ProductStore, tours storage.FarmTourStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("inquiries")
	}
	return &Service{store: store, products: products, tours: tours, log: log}
}

// Create registers a new inquiry in pending state. Product inquiries snapshot
// the current catalog name and price per line; farm-tour inquiries validate
// the activity, date and visitor count.
func (s *Service) Create(ctx context.Context, inq inquiry.Inquiry) (inquiry.Inquiry, error) {
	inq.CustomerName = strings.TrimSpace(inq.CustomerName)
	inq.CustomerEmail = strings.TrimSpace(inq.CustomerEmail)
	inq.CustomerPhone = strings.TrimSpace(inq.CustomerPhone)

	if inq.CustomerName == "" {
		return inquiry.Inquiry{}, fmt.Errorf("customer_name is required")
	}
	if inq.CustomerEmail == "" && inq.CustomerPhone == "" {
		return inquiry.Inquiry{}, fmt.Errorf("customer_email or customer_phone is required")
	}

	switch inq.Type {
	case inquiry.TypeProduct:
		if len(inq.Items) == 0 {
			return inquiry.Inquiry{}, fmt.Errorf("at least one item is required")
		}
		for i, item := range inq.Items {
			if item.Quantity <= 0 {
				return inquiry.Inquiry{}, fmt.Errorf("item %d: quantity must be positive", i)
			}
			if s.products != nil {
				p, err := s.products.GetProduct(ctx, item.ProductID)
				if err != nil {
					return inquiry.Inquiry{}, fmt.Errorf("item %d: %w", i, err)
				}
				if !p.Active {
					return inquiry.Inquiry{}, fmt.Errorf("item %d: product %s is not available", i, p.ID)
				}
				inq.Items[i].ProductName = p.Name
				inq.Items[i].UnitPrice = p.Price
			}
		}
	case inquiry.TypeFarmTour:
		if inq.TourActivityID == "" {
			return inquiry.Inquiry{}, fmt.Errorf("tour_activity_id is required")
		}
		if inq.TourVisitors <= 0 {
			return inquiry.Inquiry{}, fmt.Errorf("tour_visitors must be positive")
		}
		if inq.TourDate.IsZero() {
			return inquiry.Inquiry{}, fmt.Errorf("tour_date is required")
		}
		if err := ValidateTourDate(inq.TourDate, time.Now().UTC()); err != nil {
			return inquiry.Inquiry{}, err
		}
		if s.tours != nil {
			act, err := s.tours.GetActivity(ctx, inq.TourActivityID)
			if err != nil {
				return inquiry.Inquiry{}, fmt.Errorf("activity validation failed: %w", err)
			}
			if !act.Active {
				return inquiry.Inquiry{}, fmt.Errorf("activity %s is not bookable", act.ID)
			}
			if !act.InSeason(inq.TourDate.Month()) {
				return inquiry.Inquiry{}, fmt.Errorf("activity %s is out of season for %s", act.ID, inq.TourDate.Format("2006-01"))
			}
			if act.Capacity > 0 && inq.TourVisitors > act.Capacity {
				return inquiry.Inquiry{}, fmt.Errorf("visitor count %d exceeds capacity %d", inq.TourVisitors, act.Capacity)
			}
		}
	default:
		return inquiry.Inquiry{}, fmt.Errorf("unknown inquiry type %q", inq.Type)
	}

	inq.Status = inquiry.StatusPending
	inq.TotalQuoted = 0

	created, err := s.store.CreateInquiry(ctx, inq)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	s.log.WithField("inquiry_id", created.ID).
		WithField("type", string(created.Type)).
		Info("inquiry created")
	return created, nil
}

// Quote sets per-line unit prices and the quoted total, then moves the
// inquiry from pending to quoted. Prices may only be set while pending.
func (s *Service) Quote(ctx context.Context, id string, unitPrices map[string]float64, total float64, notes string) (inquiry.Inquiry, error) {
	inq, err := s.store.GetInquiry(ctx, id)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	if inq.Status != inquiry.StatusPending {
		return inquiry.Inquiry{}, fmt.Errorf("inquiry %s is %s: %w", id, inq.Status, ErrInvalidTransition)
	}

	for i, item := range inq.Items {
		if price, ok := unitPrices[item.ProductID]; ok {
			if price < 0 {
				return inquiry.Inquiry{}, fmt.Errorf("unit price for %s cannot be negative", item.ProductID)
			}
			inq.Items[i].UnitPrice = price
		}
	}
	if total <= 0 {
		total = inq.Total()
	}
	inq.TotalQuoted = total
	if notes = strings.TrimSpace(notes); notes != "" {
		inq.Notes = notes
	}
	inq.Status = inquiry.StatusQuoted

	updated, err := s.store.UpdateInquiry(ctx, inq)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	s.log.WithField("inquiry_id", updated.ID).
		WithField("total_quoted", updated.TotalQuoted).
		Info("inquiry quoted")
	return updated, nil
}

// Transition moves an inquiry along the allow-listed status edges.
func (s *Service) Transition(ctx context.Context, id string, to inquiry.Status) (inquiry.Inquiry, error) {
	if !inquiry.ValidStatus(to) {
		return inquiry.Inquiry{}, fmt.Errorf("unknown status %q", to)
	}

	inq, err := s.store.GetInquiry(ctx, id)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	if !inquiry.CanTransition(inq.Status, to) {
		return inquiry.Inquiry{}, fmt.Errorf("%s -> %s: %w", inq.Status, to, ErrInvalidTransition)
	}

	inq.Status = to
	updated, err := s.store.UpdateInquiry(ctx, inq)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	s.log.WithField("inquiry_id", updated.ID).
		WithField("status", string(to)).
		Info("inquiry status changed")
	return updated, nil
}

// UpdateNotes replaces the staff notes on an inquiry.
func (s *Service) UpdateNotes(ctx context.Context, id string, notes string) (inquiry.Inquiry, error) {
	inq, err := s.store.GetInquiry(ctx, id)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	inq.Notes = strings.TrimSpace(notes)
	return s.store.UpdateInquiry(ctx, inq)
}

// Get retrieves a single inquiry by identifier.
func (s *Service) Get(ctx context.Context, id string) (inquiry.Inquiry, error) {
	return s.store.GetInquiry(ctx, id)
}

// List returns inquiries matching the filter.
func (s *Service) List(ctx context.Context, filter inquiry.Filter) ([]inquiry.Inquiry, error) {
	return s.store.ListInquiries(ctx, filter)
}

// TourDateWindow bounds how far out a tour may be booked.
const TourDateWindow = 365 * 24 * time.Hour

// ValidateTourDate rejects dates in the past or more than a year out.
func ValidateTourDate(date time.Time, now time.Time) error {
	if date.Before(now.Truncate(24 * time.Hour)) {
		return fmt.Errorf("tour_date cannot be in the past")
	}
	if date.After(now.Add(TourDateWindow)) {
		return fmt.Errorf("tour_date cannot be more than a year out")
	}
	return nil
}
