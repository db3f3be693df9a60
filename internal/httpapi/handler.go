// Package httpapi exposes the REST surface of the farm storefront API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aim840912/haode-api/internal/app"
	"github.com/aim840912/haode-api/internal/cache"
	"github.com/aim840912/haode-api/internal/domain/audit"
	"github.com/aim840912/haode-api/internal/domain/content"
	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/domain/order"
	"github.com/aim840912/haode-api/internal/domain/product"
	"github.com/aim840912/haode-api/internal/middleware"
	"github.com/aim840912/haode-api/internal/services/inquiries"
	"github.com/aim840912/haode-api/internal/services/orders"
	"github.com/aim840912/haode-api/internal/storage"
	"github.com/aim840912/haode-api/pkg/logger"
)

// cacheTTL is how long cached list and row responses live.
const cacheTTL = 5 * time.Minute

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a mux exposing the REST API under /api.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/products", h.products)
	mux.HandleFunc("/api/products/", h.productResource)
	mux.HandleFunc("/api/inquiries", h.inquiries)
	mux.HandleFunc("/api/inquiries/", h.inquiryResource)
	mux.HandleFunc("/api/orders", h.orders)
	mux.HandleFunc("/api/orders/", h.orderResource)
	mux.HandleFunc("/api/locations", h.locations)
	mux.HandleFunc("/api/locations/", h.locationResource)
	mux.HandleFunc("/api/culture", h.culture)
	mux.HandleFunc("/api/culture/", h.cultureResource)
	mux.HandleFunc("/api/farm-tour", h.farmTour)
	mux.HandleFunc("/api/farm-tour/", h.farmTourResource)
	mux.HandleFunc("/api/reviews", h.reviews)
	mux.HandleFunc("/api/reviews/", h.reviewResource)
	mux.HandleFunc("/api/admin/audit-logs", h.auditLogs)
	mux.HandleFunc("/api/admin/audit-logs/stats", h.auditStats)
	mux.HandleFunc("/api/images", h.images)
	mux.HandleFunc("/api/health", h.health)
	mux.HandleFunc("/api/cache/stats", h.cacheStats)
	mux.HandleFunc("/api/cache/warmup", h.cacheWarmup)
	return mux
}

// Products --------------------------------------------------------------------

func (h *handler) products(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		admin := isAdmin(r)
		filter := product.Filter{
			Category: r.URL.Query().Get("category"),
			Search:   r.URL.Query().Get("search"),
		}
		// Non-staff callers only ever see the active catalog.
		if !admin {
			filter.ActiveOnly = true
		} else if r.URL.Query().Get("active") == "true" {
			filter.ActiveOnly = true
		}

		key := cache.ListKey("products", filter.Category, filter.Search, strconv.FormatBool(filter.ActiveOnly))
		if !admin {
			var cached []product.Product
			if ok, _ := h.app.Cache.GetJSON(r.Context(), key, &cached); ok {
				writeJSON(w, http.StatusOK, cached)
				return
			}
		}

		list, err := h.app.Products.List(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !admin {
			_ = h.app.Cache.SetJSON(r.Context(), key, list, cacheTTL)
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		if !h.requireAdmin(w, r) {
			return
		}
		var payload product.Product
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Products.Create(r.Context(), payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.invalidate(r, "products")
		h.audit(r, "create", "products", created.ID, nil, toMap(created))
		writeJSON(w, http.StatusCreated, created)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) productResource(w http.ResponseWriter, r *http.Request) {
	id, rest := splitPath(r.URL.Path, "/api/products")
	if id == "" || len(rest) > 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		key := cache.Key("products", id)
		var cached product.Product
		if ok, _ := h.app.Cache.GetJSON(r.Context(), key, &cached); ok {
			if cached.Active || isAdmin(r) {
				writeJSON(w, http.StatusOK, cached)
				return
			}
		}
		p, err := h.app.Products.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if !p.Active && !isAdmin(r) {
			writeError(w, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		_ = h.app.Cache.SetJSON(r.Context(), key, p, cacheTTL)
		writeJSON(w, http.StatusOK, p)

	case http.MethodPut:
		if !h.requireAdmin(w, r) {
			return
		}
		before, err := h.app.Products.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		var payload product.Product
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Products.Update(r.Context(), id, payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.invalidate(r, "products")
		h.audit(r, "update", "products", id, toMap(before), toMap(updated))
		writeJSON(w, http.StatusOK, updated)

	case http.MethodPatch:
		if !h.requireAdmin(w, r) {
			return
		}
		var payload struct {
			Active         *bool `json:"active"`
			InventoryDelta *int  `json:"inventory_delta"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p, err := h.app.Products.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		before := toMap(p)
		if payload.Active != nil {
			p, err = h.app.Products.SetActive(r.Context(), id, *payload.Active)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		if payload.InventoryDelta != nil {
			p, err = h.app.Products.AdjustInventory(r.Context(), id, *payload.InventoryDelta)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		h.invalidate(r, "products")
		h.audit(r, "update", "products", id, before, toMap(p))
		writeJSON(w, http.StatusOK, p)

	case http.MethodDelete:
		if !h.requireAdmin(w, r) {
			return
		}
		before, err := h.app.Products.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err := h.app.Products.Delete(r.Context(), id); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		h.invalidate(r, "products")
		h.audit(r, "delete", "products", id, toMap(before), nil)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Inquiries -------------------------------------------------------------------

func (h *handler) inquiries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			CustomerName   string         `json:"customer_name"`
			CustomerEmail  string         `json:"customer_email"`
			CustomerPhone  string         `json:"customer_phone"`
			Type           string         `json:"type"`
			Items          []inquiry.Item `json:"items"`
			TourActivityID string         `json:"tour_activity_id"`
			TourDate       string         `json:"tour_date"`
			TourVisitors   int            `json:"tour_visitors"`
			Notes          string         `json:"notes"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		inq := inquiry.Inquiry{
			CustomerName:   payload.CustomerName,
			CustomerEmail:  payload.CustomerEmail,
			CustomerPhone:  payload.CustomerPhone,
			Type:           inquiry.Type(payload.Type),
			Items:          payload.Items,
			TourActivityID: payload.TourActivityID,
			TourVisitors:   payload.TourVisitors,
			Notes:          payload.Notes,
		}
		if strings.TrimSpace(payload.TourDate) != "" {
			parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(payload.TourDate))
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("tour_date must be RFC3339 timestamp"))
				return
			}
			inq.TourDate = parsed
		}

		created, err := h.app.Inquiries.Create(r.Context(), inq)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		email := middleware.GetUserEmail(r.Context())
		if middleware.GetUserID(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
			return
		}

		filter := inquiry.Filter{
			Status: inquiry.Status(r.URL.Query().Get("status")),
			Type:   inquiry.Type(r.URL.Query().Get("type")),
		}
		if isAdmin(r) {
			filter.CustomerEmail = r.URL.Query().Get("email")
			h.audit(r, "list", "inquiries", "", nil, nil)
		} else {
			// Customers only see their own inquiries.
			filter.CustomerEmail = email
		}

		list, err := h.app.Inquiries.List(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) inquiryResource(w http.ResponseWriter, r *http.Request) {
	id, rest := splitPath(r.URL.Path, "/api/inquiries")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(rest) == 1 {
		switch rest[0] {
		case "status":
			h.inquiryStatus(w, r, id)
		case "convert":
			h.inquiryConvert(w, r, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
		return
	}
	if len(rest) > 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		inq, err := h.app.Inquiries.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if !isAdmin(r) && inq.CustomerEmail != middleware.GetUserEmail(r.Context()) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if isAdmin(r) {
			h.audit(r, "view", "inquiries", id, nil, nil)
		}
		writeJSON(w, http.StatusOK, inq)

	case http.MethodPatch:
		if !h.requireAdmin(w, r) {
			return
		}
		var payload struct {
			UnitPrices  map[string]float64 `json:"unit_prices"`
			TotalQuoted *float64           `json:"total_quoted"`
			Notes       *string            `json:"notes"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		before, err := h.app.Inquiries.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}

		updated := before
		if payload.UnitPrices != nil || payload.TotalQuoted != nil {
			total := 0.0
			if payload.TotalQuoted != nil {
				total = *payload.TotalQuoted
			}
			notes := before.Notes
			if payload.Notes != nil {
				notes = *payload.Notes
			}
			updated, err = h.app.Inquiries.Quote(r.Context(), id, payload.UnitPrices, total, notes)
			if err != nil {
				writeError(w, quoteStatus(err), err)
				return
			}
		} else if payload.Notes != nil {
			updated, err = h.app.Inquiries.UpdateNotes(r.Context(), id, *payload.Notes)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		h.audit(r, "update", "inquiries", id, toMap(before), toMap(updated))
		writeJSON(w, http.StatusOK, updated)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) inquiryStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	before, err := h.app.Inquiries.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	updated, err := h.app.Inquiries.Transition(r.Context(), id, inquiry.Status(payload.Status))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, inquiries.ErrInvalidTransition) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	h.audit(r, "status_change", "inquiries", id,
		map[string]any{"status": before.Status},
		map[string]any{"status": updated.Status})
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) inquiryConvert(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	ord, err := h.app.Orders.ConvertInquiry(r.Context(), id)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, storage.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, orders.ErrInquiryNotConfirmed):
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	h.audit(r, "convert", "inquiries", id, nil, toMap(ord))
	writeJSON(w, http.StatusCreated, ord)
}

// Orders ----------------------------------------------------------------------

func (h *handler) orders(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.audit(r, "list", "orders", "", nil, nil)
		list, err := h.app.Orders.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var payload order.Order
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Orders.Create(r.Context(), payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.audit(r, "create", "orders", created.ID, nil, toMap(created))
		writeJSON(w, http.StatusCreated, created)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) orderResource(w http.ResponseWriter, r *http.Request) {
	id, rest := splitPath(r.URL.Path, "/api/orders")
	if id == "" || len(rest) > 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		ord, err := h.app.Orders.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.audit(r, "view", "orders", id, nil, nil)
		writeJSON(w, http.StatusOK, ord)

	case http.MethodPatch:
		var payload struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		before, err := h.app.Orders.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		updated, err := h.app.Orders.SetStatus(r.Context(), id, order.Status(payload.Status))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.audit(r, "status_change", "orders", id,
			map[string]any{"status": before.Status},
			map[string]any{"status": updated.Status})
		writeJSON(w, http.StatusOK, updated)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Content ---------------------------------------------------------------------

func (h *handler) locations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		key := cache.ListKey("locations", "all")
		var cached []content.Location
		if ok, _ := h.app.Cache.GetJSON(r.Context(), key, &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		list, err := h.app.Contents.ListLocations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		_ = h.app.Cache.SetJSON(r.Context(), key, list, cacheTTL)
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		if !h.requireAdmin(w, r) {
			return
		}
		var payload content.Location
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Contents.CreateLocation(r.Context(), payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.invalidate(r, "locations")
		h.audit(r, "create", "locations", created.ID, nil, toMap(created))
		writeJSON(w, http.StatusCreated, created)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) locationResource(w http.ResponseWriter, r *http.Request) {
	id, rest := splitPath(r.URL.Path, "/api/locations")
	if id == "" || len(rest) > 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		loc, err := h.app.Contents.GetLocation(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, loc)

	case http.MethodPut:
		if !h.requireAdmin(w, r) {
			return
		}
		before, err := h.app.Contents.GetLocation(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		var payload content.Location
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Contents.UpdateLocation(r.Context(), id, payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.invalidate(r, "locations")
		h.audit(r, "update", "locations", id, toMap(before), toMap(updated))
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if !h.requireAdmin(w, r) {
			return
		}
		if err := h.app.Contents.DeleteLocation(r.Context(), id); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		h.invalidate(r, "locations")
		h.audit(r, "delete", "locations", id, nil, nil)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) culture(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		key := cache.ListKey("culture", "all")
		var cached []content.CultureItem
		if ok, _ := h.app.Cache.GetJSON(r.Context(), key, &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		list, err := h.app.Contents.ListCultureItems(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		_ = h.app.Cache.SetJSON(r.Context(), key, list, cacheTTL)
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		if !h.requireAdmin(w, r) {
			return
		}
		var payload content.CultureItem
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Contents.CreateCultureItem(r.Context(), payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.invalidate(r, "culture")
		h.audit(r, "create", "culture", created.ID, nil, toMap(created))
		writeJSON(w, http.StatusCreated, created)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) cultureResource(w http.ResponseWriter, r *http.Request) {
	id, rest := splitPath(r.URL.Path, "/api/culture")
	if id == "" || len(rest) > 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := h.app.Contents.GetCultureItem(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case http.MethodPut:
		if !h.requireAdmin(w, r) {
			return
		}
		before, err := h.app.Contents.GetCultureItem(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		var payload content.CultureItem
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Contents.UpdateCultureItem(r.Context(), id, payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.invalidate(r, "culture")
		h.audit(r, "update", "culture", id, toMap(before), toMap(updated))
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if !h.requireAdmin(w, r) {
			return
		}
		if err := h.app.Contents.DeleteCultureItem(r.Context(), id); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		h.invalidate(r, "culture")
		h.audit(r, "delete", "culture", id, nil, nil)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) farmTour(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		key := cache.ListKey("farm-tour", "all")
		var cached []content.FarmTourActivity
		if ok, _ := h.app.Cache.GetJSON(r.Context(), key, &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		list, err := h.app.Contents.ListActivities(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		_ = h.app.Cache.SetJSON(r.Context(), key, list, cacheTTL)
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		if !h.requireAdmin(w, r) {
			return
		}
		var payload content.FarmTourActivity
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Contents.CreateActivity(r.Context(), payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.invalidate(r, "farm-tour")
		h.audit(r, "create", "farm-tour", created.ID, nil, toMap(created))
		writeJSON(w, http.StatusCreated, created)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) farmTourResource(w http.ResponseWriter, r *http.Request) {
	id, rest := splitPath(r.URL.Path, "/api/farm-tour")
	if id == "" || len(rest) > 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		act, err := h.app.Contents.GetActivity(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, act)

	case http.MethodPut:
		if !h.requireAdmin(w, r) {
			return
		}
		before, err := h.app.Contents.GetActivity(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		var payload content.FarmTourActivity
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Contents.UpdateActivity(r.Context(), id, payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.invalidate(r, "farm-tour")
		h.audit(r, "update", "farm-tour", id, toMap(before), toMap(updated))
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if !h.requireAdmin(w, r) {
			return
		}
		if err := h.app.Contents.DeleteActivity(r.Context(), id); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		h.invalidate(r, "farm-tour")
		h.audit(r, "delete", "farm-tour", id, nil, nil)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Reviews ---------------------------------------------------------------------

func (h *handler) reviews(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		productID := r.URL.Query().Get("product_id")
		approvedOnly := !isAdmin(r)
		list, err := h.app.Contents.ListReviews(r.Context(), productID, approvedOnly)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var payload content.Review
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Contents.CreateReview(r.Context(), payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) reviewResource(w http.ResponseWriter, r *http.Request) {
	id, rest := splitPath(r.URL.Path, "/api/reviews")
	if id == "" || len(rest) > 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	var payload struct {
		Approved *bool `json:"approved"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Approved == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("approved is required"))
		return
	}

	updated, err := h.app.Contents.SetReviewApproved(r.Context(), id, *payload.Approved)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	h.audit(r, "moderate", "reviews", id, nil, map[string]any{"approved": *payload.Approved})
	writeJSON(w, http.StatusOK, updated)
}

// Audit logs ------------------------------------------------------------------

func (h *handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	filter := audit.Filter{
		ActorID:      r.URL.Query().Get("actor"),
		Action:       r.URL.Query().Get("action"),
		ResourceType: r.URL.Query().Get("resource_type"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}
	var err error
	if filter.Since, err = parseTimeParam(r, "since"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Until, err = parseTimeParam(r, "until"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := h.app.Audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) auditStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	since, err := parseTimeParam(r, "since")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	until, err := parseTimeParam(r, "until")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := h.app.Audit.Stats(r.Context(), since, until)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Images ----------------------------------------------------------------------

func (h *handler) images(w http.ResponseWriter, r *http.Request) {
	if h.app.Images == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("image storage not configured"))
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := r.ParseMultipartForm(2 * int64(imagesMaxMemory)); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("file field is required"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read file: %w", err))
			return
		}

		contentType := header.Header.Get("Content-Type")
		entity := r.FormValue("entity")
		path, url, err := h.app.Images.Upload(r.Context(), entity, data, contentType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.audit(r, "upload", "images", path, nil, map[string]any{"url": url, "bytes": len(data)})
		writeJSON(w, http.StatusCreated, map[string]string{"path": path, "url": url})

	case http.MethodDelete:
		var payload struct {
			Paths []string `json:"paths"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(payload.Paths) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("paths is required"))
			return
		}
		for _, p := range payload.Paths {
			if err := h.app.Images.Delete(r.Context(), p); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			h.audit(r, "delete", "images", p, nil, nil)
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

const imagesMaxMemory = 5 << 20

// Operational endpoints -------------------------------------------------------

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, h.app.Cache.Stats())
}

func (h *handler) cacheWarmup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}
	primed := h.app.WarmUpCache(r.Context(), cacheTTL)
	h.audit(r, "warmup", "cache", "", nil, map[string]any{"primed": primed})
	writeJSON(w, http.StatusOK, map[string]int{"primed": primed})
}

// Helpers ---------------------------------------------------------------------

func (h *handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if middleware.GetUserID(r.Context()) == "" {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return false
	}
	if !isAdmin(r) {
		writeError(w, http.StatusForbidden, fmt.Errorf("admin access required"))
		return false
	}
	return true
}

// audit records an admin action. Failures are logged, never surfaced:
// the audit trail must not break request flow.
func (h *handler) audit(r *http.Request, action, resourceType, resourceID string, before, after map[string]any) {
	entry := audit.Entry{
		ActorID:      middleware.GetUserID(r.Context()),
		ActorEmail:   middleware.GetUserEmail(r.Context()),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Before:       before,
		After:        after,
		RemoteAddr:   r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}
	if _, _, err := h.app.Audit.Record(r.Context(), entry); err != nil {
		h.log.WithError(err).WithField("action", action).Warnf("audit record failed")
		return
	}
	if h.app.Metrics != nil {
		h.app.Metrics.AuditEntries.WithLabelValues(action).Inc()
	}
}

func (h *handler) invalidate(r *http.Request, entity string) {
	if err := h.app.Cache.InvalidateEntity(r.Context(), entity); err != nil {
		h.log.WithError(err).WithField("entity", entity).Warnf("cache invalidation failed")
	}
}

func isAdmin(r *http.Request) bool {
	return middleware.GetUserRole(r.Context()) == middleware.RoleAdmin
}

func quoteStatus(err error) int {
	if errors.Is(err, inquiries.ErrInvalidTransition) {
		return http.StatusConflict
	}
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// splitPath strips the prefix and returns the first segment plus the rest.
func splitPath(path, prefix string) (string, []string) {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return "", nil
	}
	parts := strings.Split(trimmed, "/")
	return parts[0], parts[1:]
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339 timestamp", name)
	}
	return parsed, nil
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": false, "error": err.Error()}
	// Surface the underlying cause separately when the message wraps one.
	if cause := errors.Unwrap(err); cause != nil {
		body["details"] = cause.Error()
	}
	_ = json.NewEncoder(w).Encode(body)
}

// toMap renders a domain value as a generic payload for audit entries.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
