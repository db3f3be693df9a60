package inquiries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aim840912/haode-api/internal/domain/content"
	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/domain/product"
	"github.com/aim840912/haode-api/internal/storage/memory"
)

func seedProduct(t *testing.T, store *memory.Store) product.Product {
	t.Helper()
	p, err := store.CreateProduct(context.Background(), product.Product{
		Name: "Plum Box", Price: 90, Category: "fruit", Inventory: 20, Active: true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// nextDate returns the upcoming 10th of the given month, always in the
// future and within the booking window.
func nextDate(month time.Month) time.Time {
	now := time.Now().UTC()
	d := time.Date(now.Year(), month, 10, 9, 0, 0, 0, time.UTC)
	if !d.After(now) {
		d = d.AddDate(1, 0, 0)
	}
	return d
}

func TestCreateProductInquiry(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)
	p := seedProduct(t, store)

	created, err := svc.Create(context.Background(), inquiry.Inquiry{
		CustomerName:  "Lin",
		CustomerEmail: "lin@example.com",
		Type:          inquiry.TypeProduct,
		Items:         []inquiry.Item{{ProductID: p.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != inquiry.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if created.Items[0].ProductName != "Plum Box" || created.Items[0].UnitPrice != 90 {
		t.Fatalf("expected item enriched from catalog, got %+v", created.Items[0])
	}
	if created.TotalQuoted != 0 {
		t.Fatalf("new inquiry must not carry a quote, got %v", created.TotalQuoted)
	}
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)

	p, err := store.CreateProduct(context.Background(), product.Product{
		Name: "Gone", Price: 10, Category: "fruit", Active: false,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	_, err = svc.Create(context.Background(), inquiry.Inquiry{
		CustomerName:  "Lin",
		CustomerEmail: "lin@example.com",
		Type:          inquiry.TypeProduct,
		Items:         []inquiry.Item{{ProductID: p.ID, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected error for inactive product")
	}
}

func TestCreateTourInquiryChecksSeason(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)

	act, err := store.CreateActivity(context.Background(), content.FarmTourActivity{
		Name: "Plum Picking", StartMonth: 4, EndMonth: 6, Capacity: 10, Active: true,
	})
	if err != nil {
		t.Fatalf("seed activity: %v", err)
	}

	base := inquiry.Inquiry{
		CustomerName:   "Wu",
		CustomerEmail:  "wu@example.com",
		Type:           inquiry.TypeFarmTour,
		TourActivityID: act.ID,
		TourVisitors:   4,
	}

	inSeason := base
	inSeason.TourDate = nextDate(time.May)
	if _, err := svc.Create(context.Background(), inSeason); err != nil {
		t.Fatalf("in-season create: %v", err)
	}

	offSeason := base
	offSeason.TourDate = nextDate(time.January)
	if _, err := svc.Create(context.Background(), offSeason); err == nil {
		t.Fatal("expected error for out-of-season date")
	}

	tooMany := inSeason
	tooMany.TourVisitors = 11
	if _, err := svc.Create(context.Background(), tooMany); err == nil {
		t.Fatal("expected error when visitors exceed capacity")
	}
}

func TestCreateTourInquiryRejectsDatesOutsideWindow(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)

	act, err := store.CreateActivity(context.Background(), content.FarmTourActivity{
		Name: "Tea Tasting", StartMonth: 1, EndMonth: 12, Capacity: 10, Active: true,
	})
	if err != nil {
		t.Fatalf("seed activity: %v", err)
	}

	base := inquiry.Inquiry{
		CustomerName:   "Wu",
		CustomerEmail:  "wu@example.com",
		Type:           inquiry.TypeFarmTour,
		TourActivityID: act.ID,
		TourVisitors:   2,
	}

	past := base
	past.TourDate = time.Now().UTC().AddDate(0, 0, -7)
	if _, err := svc.Create(context.Background(), past); err == nil {
		t.Fatal("expected error for past tour date")
	}

	tooFar := base
	tooFar.TourDate = time.Now().UTC().Add(TourDateWindow + 48*time.Hour)
	if _, err := svc.Create(context.Background(), tooFar); err == nil {
		t.Fatal("expected error for tour date beyond the booking window")
	}

	ok := base
	ok.TourDate = time.Now().UTC().AddDate(0, 1, 0)
	if _, err := svc.Create(context.Background(), ok); err != nil {
		t.Fatalf("create within window: %v", err)
	}
}

func TestQuoteAndTransitions(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)
	p := seedProduct(t, store)
	ctx := context.Background()

	inq, err := svc.Create(ctx, inquiry.Inquiry{
		CustomerName:  "Lin",
		CustomerEmail: "lin@example.com",
		Type:          inquiry.TypeProduct,
		Items:         []inquiry.Item{{ProductID: p.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	quoted, err := svc.Quote(ctx, inq.ID, map[string]float64{p.ID: 85}, 0, "bulk discount")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quoted.Status != inquiry.StatusQuoted {
		t.Fatalf("expected quoted, got %s", quoted.Status)
	}
	// Zero total falls back to the item sum.
	if quoted.TotalQuoted != 170 {
		t.Fatalf("expected total 170, got %v", quoted.TotalQuoted)
	}

	// Quoting twice is not allowed.
	if _, err := svc.Quote(ctx, inq.ID, nil, 100, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	confirmed, err := svc.Transition(ctx, inq.ID, inquiry.StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != inquiry.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	if _, err := svc.Transition(ctx, inq.ID, inquiry.StatusPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition going backwards, got %v", err)
	}

	if _, err := svc.Transition(ctx, inq.ID, inquiry.Status("bogus")); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestCancelFromAnyOpenState(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)
	p := seedProduct(t, store)
	ctx := context.Background()

	inq, err := svc.Create(ctx, inquiry.Inquiry{
		CustomerName:  "Lin",
		CustomerEmail: "lin@example.com",
		Type:          inquiry.TypeProduct,
		Items:         []inquiry.Item{{ProductID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := svc.Transition(ctx, inq.ID, inquiry.StatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != inquiry.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// Terminal states accept no further edges.
	if _, err := svc.Transition(ctx, inq.ID, inquiry.StatusConfirmed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from cancelled, got %v", err)
	}
}

func TestListByStatusAndEmail(t *testing.T) {
	store := memory.New()
	svc := New(store, store, store, nil)
	p := seedProduct(t, store)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := svc.Create(ctx, inquiry.Inquiry{
			CustomerName:  "Customer",
			CustomerEmail: email,
			Type:          inquiry.TypeProduct,
			Items:         []inquiry.Item{{ProductID: p.ID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("create for %s: %v", email, err)
		}
	}

	mine, err := svc.List(ctx, inquiry.Filter{CustomerEmail: "a@example.com"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 inquiry for a@example.com, got %d", len(mine))
	}

	pending, err := svc.List(ctx, inquiry.Filter{Status: inquiry.StatusPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending inquiries, got %d", len(pending))
	}
}
