package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aim840912/haode-api/internal/app"
	"github.com/aim840912/haode-api/internal/middleware"
	"github.com/aim840912/haode-api/pkg/logger"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{}, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	return NewHandler(application, logger.NewDefault("test"))
}

// doReq issues a request against the handler. An empty role means an
// anonymous caller; "admin" or "customer" attach an authenticated user.
func doReq(t *testing.T, h http.Handler, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		ctx := middleware.WithUser(req.Context(), "user-"+role, role+"@example.com", role)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %q", rec.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := doReq(t, h, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var data map[string]any
	decodeData(t, rec, &data)
	if data["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", data["status"])
	}
}

func TestProductLifecycle(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodPost, "/api/products", "admin", map[string]any{
		"name": "Dried Plums", "price": 120.0, "category": "processed", "inventory": 10, "active": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected product id")
	}

	rec = doReq(t, h, http.MethodGet, "/api/products/"+created.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doReq(t, h, http.MethodPut, "/api/products/"+created.ID, "admin", map[string]any{
		"name": "Dried Plums", "price": 150.0, "category": "processed", "inventory": 10, "active": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var updated struct {
		Price float64 `json:"price"`
	}
	decodeData(t, rec, &updated)
	if updated.Price != 150.0 {
		t.Fatalf("expected updated price 150, got %v", updated.Price)
	}

	rec = doReq(t, h, http.MethodDelete, "/api/products/"+created.ID, "admin", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = doReq(t, h, http.MethodGet, "/api/products/"+created.ID, "admin", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestProductListHidesInactiveFromPublic(t *testing.T) {
	h := newTestHandler(t)

	for i, active := range []bool{true, false} {
		rec := doReq(t, h, http.MethodPost, "/api/products", "admin", map[string]any{
			"name": fmt.Sprintf("Item %d", i), "price": 10.0, "category": "fruit", "active": active,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d: expected 201, got %d (%s)", i, rec.Code, rec.Body.String())
		}
	}

	rec := doReq(t, h, http.MethodGet, "/api/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public list: expected 200, got %d", rec.Code)
	}
	var publicList []struct {
		Active bool `json:"active"`
	}
	decodeData(t, rec, &publicList)
	if len(publicList) != 1 || !publicList[0].Active {
		t.Fatalf("expected only the active product, got %+v", publicList)
	}

	rec = doReq(t, h, http.MethodGet, "/api/products", "admin", nil)
	var adminList []struct {
		Active bool `json:"active"`
	}
	decodeData(t, rec, &adminList)
	if len(adminList) != 2 {
		t.Fatalf("expected admin to see both products, got %d", len(adminList))
	}
}

func TestProductMutationsRequireAdmin(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodPost, "/api/products", "", map[string]any{"name": "x", "price": 1.0})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: expected 401, got %d", rec.Code)
	}
	rec = doReq(t, h, http.MethodPost, "/api/products", "customer", map[string]any{"name": "x", "price": 1.0})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer create: expected 403, got %d", rec.Code)
	}
}

func TestInquiryWorkflow(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodPost, "/api/products", "admin", map[string]any{
		"name": "Honey", "price": 300.0, "category": "processed", "inventory": 5, "active": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var prod struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &prod)

	rec = doReq(t, h, http.MethodPost, "/api/inquiries", "", map[string]any{
		"customer_name":  "Lin",
		"customer_email": "lin@example.com",
		"type":           "product",
		"items":          []map[string]any{{"product_id": prod.ID, "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create inquiry: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var inq struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, rec, &inq)
	if inq.Status != "pending" {
		t.Fatalf("expected pending inquiry, got %q", inq.Status)
	}

	// Converting before confirmation must be rejected.
	rec = doReq(t, h, http.MethodPost, "/api/inquiries/"+inq.ID+"/convert", "admin", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("convert pending: expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doReq(t, h, http.MethodPatch, "/api/inquiries/"+inq.ID, "admin", map[string]any{
		"unit_prices":  map[string]float64{prod.ID: 280.0},
		"total_quoted": 560.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("quote: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var quoted struct {
		Status      string  `json:"status"`
		TotalQuoted float64 `json:"total_quoted"`
	}
	decodeData(t, rec, &quoted)
	if quoted.Status != "quoted" || quoted.TotalQuoted != 560.0 {
		t.Fatalf("expected quoted inquiry with total 560, got %+v", quoted)
	}

	rec = doReq(t, h, http.MethodPost, "/api/inquiries/"+inq.ID+"/status", "admin", map[string]any{"status": "confirmed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	// A confirmed inquiry cannot go back to pending.
	rec = doReq(t, h, http.MethodPost, "/api/inquiries/"+inq.ID+"/status", "admin", map[string]any{"status": "pending"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("backwards transition: expected 409, got %d", rec.Code)
	}

	rec = doReq(t, h, http.MethodPost, "/api/inquiries/"+inq.ID+"/convert", "admin", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("convert: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var ord struct {
		ID        string  `json:"id"`
		InquiryID string  `json:"inquiry_id"`
		Total     float64 `json:"total"`
	}
	decodeData(t, rec, &ord)
	if ord.InquiryID != inq.ID {
		t.Fatalf("expected order linked to inquiry %s, got %s", inq.ID, ord.InquiryID)
	}
	if ord.Total != 560.0 {
		t.Fatalf("expected order total 560, got %v", ord.Total)
	}
}

func TestInquiryListScopedToCustomer(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodPost, "/api/products", "admin", map[string]any{
		"name": "Plum Box", "price": 90.0, "category": "fruit", "inventory": 8, "active": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var prod struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &prod)

	rec = doReq(t, h, http.MethodPost, "/api/inquiries", "customer", map[string]any{
		"customer_name":  "Customer",
		"customer_email": "customer@example.com",
		"type":           "product",
		"items":          []map[string]any{{"product_id": prod.ID, "quantity": 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create inquiry: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec = doReq(t, h, http.MethodPost, "/api/inquiries", "", map[string]any{
		"customer_name":  "Someone Else",
		"customer_email": "other@example.com",
		"type":           "product",
		"items":          []map[string]any{{"product_id": prod.ID, "quantity": 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create second inquiry: expected 201, got %d", rec.Code)
	}

	rec = doReq(t, h, http.MethodGet, "/api/inquiries", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: expected 401, got %d", rec.Code)
	}

	rec = doReq(t, h, http.MethodGet, "/api/inquiries", "customer", nil)
	var mine []struct {
		CustomerEmail string `json:"customer_email"`
	}
	decodeData(t, rec, &mine)
	if len(mine) != 1 || mine[0].CustomerEmail != "customer@example.com" {
		t.Fatalf("expected only own inquiries, got %+v", mine)
	}

	rec = doReq(t, h, http.MethodGet, "/api/inquiries", "admin", nil)
	var all []json.RawMessage
	decodeData(t, rec, &all)
	if len(all) != 2 {
		t.Fatalf("expected admin to see both inquiries, got %d", len(all))
	}
}

func TestOrdersRequireAdmin(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodGet, "/api/orders", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}
	rec = doReq(t, h, http.MethodGet, "/api/orders", "customer", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403, got %d", rec.Code)
	}
	rec = doReq(t, h, http.MethodGet, "/api/orders", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
}

func TestReviewModeration(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodPost, "/api/reviews", "", map[string]any{
		"author": "Wu", "rating": 5, "body": "Great plums",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create review: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var rev struct {
		ID       string `json:"id"`
		Approved bool   `json:"approved"`
	}
	decodeData(t, rec, &rev)
	if rev.Approved {
		t.Fatal("new review must start unapproved")
	}

	rec = doReq(t, h, http.MethodGet, "/api/reviews", "", nil)
	var visible []json.RawMessage
	decodeData(t, rec, &visible)
	if len(visible) != 0 {
		t.Fatalf("unapproved review must be hidden from public, got %d", len(visible))
	}

	rec = doReq(t, h, http.MethodPatch, "/api/reviews/"+rev.ID, "admin", map[string]any{"approved": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doReq(t, h, http.MethodGet, "/api/reviews", "", nil)
	decodeData(t, rec, &visible)
	if len(visible) != 1 {
		t.Fatalf("approved review must be public, got %d", len(visible))
	}
}

func TestLocationsCRUD(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodPost, "/api/locations", "admin", map[string]any{
		"name": "Main Farm", "address": "1 Orchard Rd", "is_main": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var loc struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &loc)

	rec = doReq(t, h, http.MethodGet, "/api/locations", "", nil)
	var list []json.RawMessage
	decodeData(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 location, got %d", len(list))
	}

	rec = doReq(t, h, http.MethodDelete, "/api/locations/"+loc.ID, "admin", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
}

// Missing rows must answer 404 regardless of the storage backend.
func TestMissingResourcesAnswer404(t *testing.T) {
	h := newTestHandler(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/products/nope"},
		{http.MethodDelete, "/api/products/nope"},
		{http.MethodGet, "/api/inquiries/nope"},
		{http.MethodGet, "/api/orders/nope"},
		{http.MethodDelete, "/api/locations/nope"},
		{http.MethodDelete, "/api/culture/nope"},
		{http.MethodDelete, "/api/farm-tour/nope"},
	}
	for _, tc := range paths {
		rec := doReq(t, h, tc.method, tc.path, "admin", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d (%s)", tc.method, tc.path, rec.Code, rec.Body.String())
		}
	}

	rec := doReq(t, h, http.MethodPatch, "/api/reviews/nope", "admin", map[string]any{"approved": true})
	if rec.Code != http.StatusNotFound {
		t.Errorf("moderating a missing review: expected 404, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestAuditLogsRecordAdminActions(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodPost, "/api/products", "admin", map[string]any{
		"name": "Tea", "price": 200.0, "category": "tea", "active": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d", rec.Code)
	}

	rec = doReq(t, h, http.MethodGet, "/api/admin/audit-logs", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit list: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var entries []struct {
		Action       string `json:"action"`
		ResourceType string `json:"resource_type"`
		ActorEmail   string `json:"actor_email"`
	}
	decodeData(t, rec, &entries)
	if len(entries) == 0 {
		t.Fatal("expected at least one audit entry")
	}
	found := false
	for _, e := range entries {
		if e.Action == "create" && e.ResourceType == "products" {
			found = true
			if e.ActorEmail != "admin@example.com" {
				t.Fatalf("expected actor email recorded, got %q", e.ActorEmail)
			}
		}
	}
	if !found {
		t.Fatalf("expected product create in audit trail, got %+v", entries)
	}

	rec = doReq(t, h, http.MethodGet, "/api/admin/audit-logs/stats", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit stats: expected 200, got %d", rec.Code)
	}
	var stats struct {
		Total    int            `json:"total"`
		ByAction map[string]int `json:"by_action"`
	}
	decodeData(t, rec, &stats)
	if stats.Total == 0 || stats.ByAction["create"] == 0 {
		t.Fatalf("expected create counted in stats, got %+v", stats)
	}

	rec = doReq(t, h, http.MethodGet, "/api/admin/audit-logs", "customer", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer audit list: expected 403, got %d", rec.Code)
	}
}

func TestCacheEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := doReq(t, h, http.MethodPost, "/api/cache/warmup", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("warmup: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var result struct {
		Primed int `json:"primed"`
	}
	decodeData(t, rec, &result)
	if result.Primed == 0 {
		t.Fatal("expected warm-up to prime at least one key")
	}

	rec = doReq(t, h, http.MethodGet, "/api/cache/stats", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var stats struct {
		Sets int64 `json:"sets"`
	}
	decodeData(t, rec, &stats)
	if stats.Sets == 0 {
		t.Fatal("expected cache sets after warm-up")
	}

	rec = doReq(t, h, http.MethodGet, "/api/cache/stats", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous stats: expected 401, got %d", rec.Code)
	}
}

func TestErrorEnvelopeCarriesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, fmt.Errorf("create inquiry: %w", errors.New("quantity must be positive")))

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Fatal("expected success=false")
	}
	if body.Error != "create inquiry: quantity must be positive" {
		t.Fatalf("unexpected error message %q", body.Error)
	}
	if body.Details != "quantity must be positive" {
		t.Fatalf("unexpected details %q", body.Details)
	}

	rec = httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, errors.New("plain failure"))
	if strings.Contains(rec.Body.String(), "details") {
		t.Fatalf("expected details omitted for unwrapped errors, got %s", rec.Body.String())
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	h := newTestHandler(t)
	rec := doReq(t, h, http.MethodPost, "/api/products", "admin", map[string]any{
		"name": "x", "price": 1.0, "bogus": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
