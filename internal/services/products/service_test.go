package products

import (
	"context"
	"testing"

	"github.com/aim840912/haode-api/internal/domain/product"
	"github.com/aim840912/haode-api/internal/storage/memory"
)

func TestServiceLifecycle(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, product.Product{
		Name: "  Plum Vinegar ", Price: 220, Category: "Processed", Inventory: 12, Active: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.Name != "Plum Vinegar" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.Category != "processed" {
		t.Fatalf("expected lowercased category, got %q", created.Category)
	}

	created.Price = 240
	updated, err := svc.Update(ctx, created.ID, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 240 {
		t.Fatalf("expected price 240, got %v", updated.Price)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err == nil {
		t.Fatal("expected error fetching deleted product")
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	cases := []struct {
		name string
		p    product.Product
	}{
		{"empty name", product.Product{Price: 10, Category: "fruit"}},
		{"negative price", product.Product{Name: "x", Price: -1, Category: "fruit"}},
		{"negative inventory", product.Product{Name: "x", Price: 10, Inventory: -1, Category: "fruit"}},
		{"unknown category", product.Product{Name: "x", Price: 10, Category: "electronics"}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.p); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestSetActive(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, product.Product{Name: "Tea", Price: 500, Category: "tea", Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err = svc.SetActive(ctx, p.ID, false)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if p.Active {
		t.Fatal("expected product inactive")
	}

	// Toggling to the current state is a no-op.
	again, err := svc.SetActive(ctx, p.ID, false)
	if err != nil {
		t.Fatalf("repeat deactivate: %v", err)
	}
	if again.UpdatedAt != p.UpdatedAt {
		t.Fatal("no-op toggle must not rewrite the record")
	}
}

func TestAdjustInventory(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, product.Product{Name: "Plums", Price: 80, Category: "fruit", Inventory: 5, Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err = svc.AdjustInventory(ctx, p.ID, -3)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if p.Inventory != 2 {
		t.Fatalf("expected inventory 2, got %d", p.Inventory)
	}

	if _, err := svc.AdjustInventory(ctx, p.ID, -5); err == nil {
		t.Fatal("expected error driving inventory below zero")
	}
}

func TestListFilters(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	seed := []product.Product{
		{Name: "Spring Oolong", Price: 600, Category: "tea", Active: true},
		{Name: "Winter Oolong", Price: 650, Category: "tea", Active: false},
		{Name: "Plum Box", Price: 90, Category: "fruit", Active: true},
	}
	for _, p := range seed {
		if _, err := svc.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.Name, err)
		}
	}

	active, err := svc.List(ctx, product.Filter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active products, got %d", len(active))
	}

	tea, err := svc.List(ctx, product.Filter{Category: "tea"})
	if err != nil {
		t.Fatalf("list tea: %v", err)
	}
	if len(tea) != 2 {
		t.Fatalf("expected 2 tea products, got %d", len(tea))
	}

	oolong, err := svc.List(ctx, product.Filter{Search: "oolong", ActiveOnly: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(oolong) != 1 || oolong[0].Name != "Spring Oolong" {
		t.Fatalf("expected the active oolong, got %+v", oolong)
	}
}
