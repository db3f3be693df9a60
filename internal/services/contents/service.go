package contents

import (
	"context"
	"fmt"
	"strings"

	"github.com/aim840912/haode-api/internal/domain/content"
	"github.com/aim840912/haode-api/internal/storage"
	"github.com/aim840912/haode-api/pkg/logger"
)

// Service manages the farm's editorial records: locations, culture items,
// farm-tour activities and product reviews.
type Service struct {
	locations storage.LocationStore
	culture   storage.CultureStore
	tours     storage.FarmTourStore
	reviews   storage.ReviewStore
	products  storage.ProductStore
	log       *logger.Logger
}

// New constructs a content service. The product store validates review
// references and may be nil.
func New(locations storage.LocationStore, culture storage.CultureStore, tours storage.FarmTourStore, reviews storage.ReviewStore, products storage.ProductStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("contents")
	}
	return &Service{
		locations: locations,
		culture:   culture,
		tours:     tours,
		reviews:   reviews,
		products:  products,
		log:       log,
	}
}

// Locations -------------------------------------------------------------------

// CreateLocation registers a store or farm site.
func (s *Service) CreateLocation(ctx context.Context, loc content.Location) (content.Location, error) {
	loc.Name = strings.TrimSpace(loc.Name)
	loc.Address = strings.TrimSpace(loc.Address)
	if loc.Name == "" {
		return content.Location{}, fmt.Errorf("name is required")
	}
	if loc.Address == "" {
		return content.Location{}, fmt.Errorf("address is required")
	}

	created, err := s.locations.CreateLocation(ctx, loc)
	if err != nil {
		return content.Location{}, err
	}
	s.log.WithField("location_id", created.ID).Info("location created")
	return created, nil
}

// UpdateLocation replaces mutable fields on a location.
func (s *Service) UpdateLocation(ctx context.Context, id string, loc content.Location) (content.Location, error) {
	existing, err := s.locations.GetLocation(ctx, id)
	if err != nil {
		return content.Location{}, err
	}
	loc.ID = existing.ID
	loc.Name = strings.TrimSpace(loc.Name)
	if loc.Name == "" {
		return content.Location{}, fmt.Errorf("name is required")
	}
	return s.locations.UpdateLocation(ctx, loc)
}

// GetLocation retrieves a single location.
func (s *Service) GetLocation(ctx context.Context, id string) (content.Location, error) {
	return s.locations.GetLocation(ctx, id)
}

// ListLocations returns all locations.
func (s *Service) ListLocations(ctx context.Context) ([]content.Location, error) {
	return s.locations.ListLocations(ctx)
}

// DeleteLocation removes a location.
func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	if err := s.locations.DeleteLocation(ctx, id); err != nil {
		return err
	}
	s.log.WithField("location_id", id).Info("location deleted")
	return nil
}

// Culture items ---------------------------------------------------------------

// CreateCultureItem registers an editorial piece.
func (s *Service) CreateCultureItem(ctx context.Context, item content.CultureItem) (content.CultureItem, error) {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return content.CultureItem{}, fmt.Errorf("title is required")
	}

	created, err := s.culture.CreateCultureItem(ctx, item)
	if err != nil {
		return content.CultureItem{}, err
	}
	s.log.WithField("culture_id", created.ID).Info("culture item created")
	return created, nil
}

// UpdateCultureItem replaces mutable fields on a culture item.
func (s *Service) UpdateCultureItem(ctx context.Context, id string, item content.CultureItem) (content.CultureItem, error) {
	existing, err := s.culture.GetCultureItem(ctx, id)
	if err != nil {
		return content.CultureItem{}, err
	}
	item.ID = existing.ID
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return content.CultureItem{}, fmt.Errorf("title is required")
	}
	return s.culture.UpdateCultureItem(ctx, item)
}

// GetCultureItem retrieves a single culture item.
func (s *Service) GetCultureItem(ctx context.Context, id string) (content.CultureItem, error) {
	return s.culture.GetCultureItem(ctx, id)
}

// ListCultureItems returns all culture items.
func (s *Service) ListCultureItems(ctx context.Context) ([]content.CultureItem, error) {
	return s.culture.ListCultureItems(ctx)
}

// DeleteCultureItem removes a culture item.
func (s *Service) DeleteCultureItem(ctx context.Context, id string) error {
	return s.culture.DeleteCultureItem(ctx, id)
}

// Farm-tour activities --------------------------------------------------------

// CreateActivity registers a bookable seasonal activity.
func (s *Service) CreateActivity(ctx context.Context, act content.FarmTourActivity) (content.FarmTourActivity, error) {
	act.Name = strings.TrimSpace(act.Name)
	if act.Name == "" {
		return content.FarmTourActivity{}, fmt.Errorf("name is required")
	}
	if act.StartMonth < 1 || act.StartMonth > 12 || act.EndMonth < 1 || act.EndMonth > 12 {
		return content.FarmTourActivity{}, fmt.Errorf("months must be between 1 and 12")
	}
	if act.Price < 0 {
		return content.FarmTourActivity{}, fmt.Errorf("price cannot be negative")
	}
	if act.Capacity < 0 {
		return content.FarmTourActivity{}, fmt.Errorf("capacity cannot be negative")
	}

	created, err := s.tours.CreateActivity(ctx, act)
	if err != nil {
		return content.FarmTourActivity{}, err
	}
	s.log.WithField("activity_id", created.ID).Info("farm-tour activity created")
	return created, nil
}

// UpdateActivity replaces mutable fields on an activity.
func (s *Service) UpdateActivity(ctx context.Context, id string, act content.FarmTourActivity) (content.FarmTourActivity, error) {
	existing, err := s.tours.GetActivity(ctx, id)
	if err != nil {
		return content.FarmTourActivity{}, err
	}
	act.ID = existing.ID
	act.Name = strings.TrimSpace(act.Name)
	if act.Name == "" {
		return content.FarmTourActivity{}, fmt.Errorf("name is required")
	}
	if act.StartMonth < 1 || act.StartMonth > 12 || act.EndMonth < 1 || act.EndMonth > 12 {
		return content.FarmTourActivity{}, fmt.Errorf("months must be between 1 and 12")
	}
	return s.tours.UpdateActivity(ctx, act)
}

// GetActivity retrieves a single activity.
func (s *Service) GetActivity(ctx context.Context, id string) (content.FarmTourActivity, error) {
	return s.tours.GetActivity(ctx, id)
}

// ListActivities returns all activities.
func (s *Service) ListActivities(ctx context.Context) ([]content.FarmTourActivity, error) {
	return s.tours.ListActivities(ctx)
}

// DeleteActivity removes an activity.
func (s *Service) DeleteActivity(ctx context.Context, id string) error {
	return s.tours.DeleteActivity(ctx, id)
}

// Reviews ---------------------------------------------------------------------

// CreateReview registers customer feedback. Reviews start unapproved.
func (s *Service) CreateReview(ctx context.Context, rev content.Review) (content.Review, error) {
	rev.Author = strings.TrimSpace(rev.Author)
	if rev.Author == "" {
		return content.Review{}, fmt.Errorf("author is required")
	}
	if rev.Rating < 1 || rev.Rating > 5 {
		return content.Review{}, fmt.Errorf("rating must be between 1 and 5")
	}
	if s.products != nil {
		if _, err := s.products.GetProduct(ctx, rev.ProductID); err != nil {
			return content.Review{}, fmt.Errorf("product validation failed: %w", err)
		}
	}
	rev.Approved = false

	created, err := s.reviews.CreateReview(ctx, rev)
	if err != nil {
		return content.Review{}, err
	}
	s.log.WithField("review_id", created.ID).
		WithField("product_id", created.ProductID).
		Info("review submitted")
	return created, nil
}

// SetReviewApproved toggles review visibility.
func (s *Service) SetReviewApproved(ctx context.Context, id string, approved bool) (content.Review, error) {
	rev, err := s.reviews.GetReview(ctx, id)
	if err != nil {
		return content.Review{}, err
	}
	if rev.Approved == approved {
		return rev, nil
	}
	rev.Approved = approved
	updated, err := s.reviews.UpdateReview(ctx, rev)
	if err != nil {
		return content.Review{}, err
	}
	s.log.WithField("review_id", updated.ID).
		WithField("approved", approved).
		Info("review moderation changed")
	return updated, nil
}

// ListReviews returns reviews, optionally limited to a product and to
// approved entries only.
func (s *Service) ListReviews(ctx context.Context, productID string, approvedOnly bool) ([]content.Review, error) {
	return s.reviews.ListReviews(ctx, productID, approvedOnly)
}
