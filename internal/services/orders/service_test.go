package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/domain/order"
	"github.com/aim840912/haode-api/internal/storage/memory"
)

func seedConfirmedInquiry(t *testing.T, store *memory.Store, total float64) inquiry.Inquiry {
	t.Helper()
	inq, err := store.CreateInquiry(context.Background(), inquiry.Inquiry{
		CustomerName:  "Lin",
		CustomerEmail: "lin@example.com",
		Type:          inquiry.TypeProduct,
		Status:        inquiry.StatusConfirmed,
		Items:         []inquiry.Item{{ProductID: "p1", ProductName: "Plum Box", Quantity: 2, UnitPrice: 90}},
		TotalQuoted:   total,
	})
	if err != nil {
		t.Fatalf("seed inquiry: %v", err)
	}
	return inq
}

func TestConvertInquiry(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	inq := seedConfirmedInquiry(t, store, 170)

	ord, err := svc.ConvertInquiry(context.Background(), inq.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if ord.InquiryID != inq.ID {
		t.Fatalf("expected order bound to inquiry %s, got %s", inq.ID, ord.InquiryID)
	}
	if ord.Status != order.StatusPending {
		t.Fatalf("expected pending order, got %s", ord.Status)
	}
	if ord.Total != 170 {
		t.Fatalf("expected quoted total carried over, got %v", ord.Total)
	}
	if len(ord.Items) != 1 || ord.Items[0].ProductName != "Plum Box" {
		t.Fatalf("expected items snapshotted, got %+v", ord.Items)
	}
}

func TestConvertFallsBackToItemTotal(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	inq := seedConfirmedInquiry(t, store, 0)

	ord, err := svc.ConvertInquiry(context.Background(), inq.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if ord.Total != 180 {
		t.Fatalf("expected item total 180, got %v", ord.Total)
	}
}

func TestConvertRequiresConfirmedInquiry(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	inq, err := store.CreateInquiry(context.Background(), inquiry.Inquiry{
		CustomerName:  "Lin",
		CustomerEmail: "lin@example.com",
		Type:          inquiry.TypeProduct,
		Status:        inquiry.StatusPending,
		Items:         []inquiry.Item{{ProductID: "p1", Quantity: 1, UnitPrice: 50}},
	})
	if err != nil {
		t.Fatalf("seed inquiry: %v", err)
	}

	if _, err := svc.ConvertInquiry(context.Background(), inq.ID); !errors.Is(err, ErrInquiryNotConfirmed) {
		t.Fatalf("expected ErrInquiryNotConfirmed, got %v", err)
	}
}

func TestConvertRejectsTourInquiry(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	inq, err := store.CreateInquiry(context.Background(), inquiry.Inquiry{
		CustomerName:  "Wu",
		CustomerEmail: "wu@example.com",
		Type:          inquiry.TypeFarmTour,
		Status:        inquiry.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("seed inquiry: %v", err)
	}

	if _, err := svc.ConvertInquiry(context.Background(), inq.ID); err == nil {
		t.Fatal("expected error converting a tour booking")
	}
}

func TestCreateAndSetStatus(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	ord, err := svc.Create(ctx, order.Order{
		CustomerName:  "Lin",
		CustomerEmail: "lin@example.com",
		Items:         []order.Item{{ProductID: "p1", ProductName: "Tea", Quantity: 1, UnitPrice: 600}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ord.Status != order.StatusPending {
		t.Fatalf("expected pending, got %s", ord.Status)
	}
	if ord.Total != 600 {
		t.Fatalf("expected computed total 600, got %v", ord.Total)
	}

	updated, err := svc.SetStatus(ctx, ord.ID, order.StatusPaid)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != order.StatusPaid {
		t.Fatalf("expected paid, got %s", updated.Status)
	}

	if _, err := svc.SetStatus(ctx, ord.ID, order.Status("teleported")); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
