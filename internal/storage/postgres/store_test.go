package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/domain/order"
	"github.com/aim840912/haode-api/internal/domain/product"
	"github.com/aim840912/haode-api/internal/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func productColumns() []string {
	return []string{"id", "name", "description", "price", "category", "images", "inventory", "active", "created_at", "updated_at"}
}

func TestCreateProduct(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(sqlmock.AnyArg(), "Tea", "", 500.0, "tea", []byte("null"), 10, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := store.CreateProduct(context.Background(), product.Product{
		Name: "Tea", Price: 500, Category: "tea", Inventory: 10, Active: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProduct(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM products").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow("p1", "Tea", "Spring harvest", 500.0, "tea", []byte(`["a.jpg"]`), 10, true, now, now))

	p, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "Tea", p.Name)
	require.Equal(t, []string{"a.jpg"}, p.Images)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM products").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetProduct(context.Background(), "missing")
	require.True(t, errors.Is(err, storage.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProductNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM products").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteProduct(context.Background(), "missing")
	require.True(t, errors.Is(err, storage.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsFilter(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM products").
		WithArgs("tea", true, "oolong").
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow("p1", "Spring Oolong", "", 600.0, "tea", []byte("[]"), 5, true, now, now))

	list, err := store.ListProducts(context.Background(), product.Filter{
		Category: "tea", ActiveOnly: true, Search: "oolong",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Spring Oolong", list[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

// The tour_activity_id and inquiry_id columns are not null with an empty
// default, so inserts must bind empty strings rather than SQL NULL.
func TestCreateInquiryBindsEmptyTourActivity(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO inquiries").
		WithArgs(sqlmock.AnyArg(), "Mei", "mei@example.com", "", "product", "pending", sqlmock.AnyArg(),
			"", nil, 0, 0.0, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := store.CreateInquiry(context.Background(), inquiry.Inquiry{
		CustomerName:  "Mei",
		CustomerEmail: "mei@example.com",
		Type:          inquiry.TypeProduct,
		Status:        inquiry.StatusPending,
		Items:         []inquiry.Item{{ProductID: "p1", ProductName: "Tea", Quantity: 1, UnitPrice: 500}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderBindsEmptyInquiryID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "", "Mei", "mei@example.com", "", "pending", sqlmock.AnyArg(),
			500.0, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := store.CreateOrder(context.Background(), order.Order{
		CustomerName:  "Mei",
		CustomerEmail: "mei@example.com",
		Status:        order.StatusPending,
		Items:         []order.Item{{ProductID: "p1", ProductName: "Tea", Quantity: 1, UnitPrice: 500}},
		Total:         500,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAuditEntriesBefore(t *testing.T) {
	store, mock := newMockStore(t)

	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM audit_logs").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := store.DeleteAuditEntriesBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, 3, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestStoreIntegration runs the round-trip paths against a real database
// when TEST_POSTGRES_DSN is set.
func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, product.Product{
		Name: "Integration Tea", Price: 500, Category: "tea", Inventory: 3, Active: true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	defer store.DeleteProduct(ctx, p.ID)

	inq, err := store.CreateInquiry(ctx, inquiry.Inquiry{
		CustomerName:  "Integration",
		CustomerEmail: "it@example.com",
		Type:          inquiry.TypeProduct,
		Status:        inquiry.StatusPending,
		Items:         []inquiry.Item{{ProductID: p.ID, ProductName: p.Name, Quantity: 1, UnitPrice: p.Price}},
	})
	if err != nil {
		t.Fatalf("create inquiry: %v", err)
	}

	got, err := store.GetInquiry(ctx, inq.ID)
	if err != nil {
		t.Fatalf("get inquiry: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ProductID != p.ID {
		t.Fatalf("expected items round-tripped, got %+v", got.Items)
	}
}
