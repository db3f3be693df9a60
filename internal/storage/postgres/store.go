package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aim840912/haode-api/internal/domain/audit"
	"github.com/aim840912/haode-api/internal/domain/content"
	"github.com/aim840912/haode-api/internal/domain/inquiry"
	"github.com/aim840912/haode-api/internal/domain/order"
	"github.com/aim840912/haode-api/internal/domain/product"
	"github.com/aim840912/haode-api/internal/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.ProductStore = (*Store)(nil)
var _ storage.InquiryStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)
var _ storage.LocationStore = (*Store)(nil)
var _ storage.CultureStore = (*Store)(nil)
var _ storage.FarmTourStore = (*Store)(nil)
var _ storage.ReviewStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- ProductStore -----------------------------------------------------------

func (s *Store) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return product.Product{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, category, images, inventory, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.Name, p.Description, p.Price, p.Category, imagesJSON, p.Inventory, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	existing, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		return product.Product{}, err
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return product.Product{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, images = $6, inventory = $7, active = $8, updated_at = $9
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.Category, imagesJSON, p.Inventory, p.Active, p.UpdatedAt)
	if err != nil {
		return product.Product{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return product.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (product.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, category, images, inventory, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	return p, notFound(err)
}

func (s *Store) ListProducts(ctx context.Context, filter product.Filter) ([]product.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, category, images, inventory, active, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR category = $1)
		  AND (NOT $2 OR active)
		  AND ($3 = '' OR name ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
		ORDER BY created_at
	`, filter.Category, filter.ActiveOnly, filter.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (product.Product, error) {
	var (
		p         product.Product
		imagesRaw []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &imagesRaw, &p.Inventory, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return product.Product{}, err
	}
	if len(imagesRaw) > 0 {
		_ = json.Unmarshal(imagesRaw, &p.Images)
	}
	return p, nil
}

// --- InquiryStore -----------------------------------------------------------

func (s *Store) CreateInquiry(ctx context.Context, inq inquiry.Inquiry) (inquiry.Inquiry, error) {
	if inq.ID == "" {
		inq.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inq.CreatedAt = now
	inq.UpdatedAt = now

	itemsJSON, err := json.Marshal(inq.Items)
	if err != nil {
		return inquiry.Inquiry{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inquiries (id, customer_name, customer_email, customer_phone, type, status, items, tour_activity_id, tour_date, tour_visitors, total_quoted, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, inq.ID, inq.CustomerName, inq.CustomerEmail, inq.CustomerPhone, string(inq.Type), string(inq.Status), itemsJSON,
		inq.TourActivityID, toNullTime(inq.TourDate), inq.TourVisitors, inq.TotalQuoted, inq.Notes, inq.CreatedAt, inq.UpdatedAt)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	return inq, nil
}

func (s *Store) UpdateInquiry(ctx context.Context, inq inquiry.Inquiry) (inquiry.Inquiry, error) {
	existing, err := s.GetInquiry(ctx, inq.ID)
	if err != nil {
		return inquiry.Inquiry{}, err
	}

	inq.CreatedAt = existing.CreatedAt
	inq.UpdatedAt = time.Now().UTC()

	itemsJSON, err := json.Marshal(inq.Items)
	if err != nil {
		return inquiry.Inquiry{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE inquiries
		SET customer_name = $2, customer_email = $3, customer_phone = $4, status = $5, items = $6, total_quoted = $7, notes = $8, updated_at = $9
		WHERE id = $1
	`, inq.ID, inq.CustomerName, inq.CustomerEmail, inq.CustomerPhone, string(inq.Status), itemsJSON, inq.TotalQuoted, inq.Notes, inq.UpdatedAt)
	if err != nil {
		return inquiry.Inquiry{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return inquiry.Inquiry{}, storage.ErrNotFound
	}
	return inq, nil
}

func (s *Store) GetInquiry(ctx context.Context, id string) (inquiry.Inquiry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, customer_email, customer_phone, type, status, items, tour_activity_id, tour_date, tour_visitors, total_quoted, notes, created_at, updated_at
		FROM inquiries
		WHERE id = $1
	`, id)
	inq, err := scanInquiry(row)
	return inq, notFound(err)
}

func (s *Store) ListInquiries(ctx context.Context, filter inquiry.Filter) ([]inquiry.Inquiry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, customer_email, customer_phone, type, status, items, tour_activity_id, tour_date, tour_visitors, total_quoted, notes, created_at, updated_at
		FROM inquiries
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR type = $2)
		  AND ($3 = '' OR lower(customer_email) = lower($3))
		ORDER BY created_at DESC
	`, string(filter.Status), string(filter.Type), filter.CustomerEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inquiry.Inquiry
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inq)
	}
	return result, rows.Err()
}

func scanInquiry(row rowScanner) (inquiry.Inquiry, error) {
	var (
		inq       inquiry.Inquiry
		inqType   string
		inqStatus string
		itemsRaw  []byte
		tourDate  sql.NullTime
	)
	if err := row.Scan(&inq.ID, &inq.CustomerName, &inq.CustomerEmail, &inq.CustomerPhone, &inqType, &inqStatus, &itemsRaw,
		&inq.TourActivityID, &tourDate, &inq.TourVisitors, &inq.TotalQuoted, &inq.Notes, &inq.CreatedAt, &inq.UpdatedAt); err != nil {
		return inquiry.Inquiry{}, err
	}
	inq.Type = inquiry.Type(inqType)
	inq.Status = inquiry.Status(inqStatus)
	if len(itemsRaw) > 0 {
		_ = json.Unmarshal(itemsRaw, &inq.Items)
	}
	if tourDate.Valid {
		inq.TourDate = tourDate.Time.UTC()
	}
	return inq, nil
}

// --- OrderStore -------------------------------------------------------------

func (s *Store) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	if ord.ID == "" {
		ord.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.UpdatedAt = now

	itemsJSON, err := json.Marshal(ord.Items)
	if err != nil {
		return order.Order{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, inquiry_id, customer_name, customer_email, customer_phone, status, items, total, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, ord.ID, ord.InquiryID, ord.CustomerName, ord.CustomerEmail, ord.CustomerPhone, string(ord.Status), itemsJSON, ord.Total, ord.Notes, ord.CreatedAt, ord.UpdatedAt)
	if err != nil {
		return order.Order{}, err
	}
	return ord, nil
}

func (s *Store) UpdateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	existing, err := s.GetOrder(ctx, ord.ID)
	if err != nil {
		return order.Order{}, err
	}

	ord.InquiryID = existing.InquiryID
	ord.CreatedAt = existing.CreatedAt
	ord.UpdatedAt = time.Now().UTC()

	itemsJSON, err := json.Marshal(ord.Items)
	if err != nil {
		return order.Order{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, items = $3, total = $4, notes = $5, updated_at = $6
		WHERE id = $1
	`, ord.ID, string(ord.Status), itemsJSON, ord.Total, ord.Notes, ord.UpdatedAt)
	if err != nil {
		return order.Order{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return order.Order{}, storage.ErrNotFound
	}
	return ord, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, inquiry_id, customer_name, customer_email, customer_phone, status, items, total, notes, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id)
	ord, err := scanOrder(row)
	return ord, notFound(err)
}

func (s *Store) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inquiry_id, customer_name, customer_email, customer_phone, status, items, total, notes, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ord)
	}
	return result, rows.Err()
}

func scanOrder(row rowScanner) (order.Order, error) {
	var (
		ord      order.Order
		status   string
		itemsRaw []byte
	)
	if err := row.Scan(&ord.ID, &ord.InquiryID, &ord.CustomerName, &ord.CustomerEmail, &ord.CustomerPhone, &status, &itemsRaw, &ord.Total, &ord.Notes, &ord.CreatedAt, &ord.UpdatedAt); err != nil {
		return order.Order{}, err
	}
	ord.Status = order.Status(status)
	if len(itemsRaw) > 0 {
		_ = json.Unmarshal(itemsRaw, &ord.Items)
	}
	return ord, nil
}

// --- AuditStore -------------------------------------------------------------

func (s *Store) CreateAuditEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	beforeJSON, err := json.Marshal(entry.Before)
	if err != nil {
		return audit.Entry{}, err
	}
	afterJSON, err := json.Marshal(entry.After)
	if err != nil {
		return audit.Entry{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, actor_email, action, resource_type, resource_id, before, after, remote_addr, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, entry.ID, entry.ActorID, entry.ActorEmail, entry.Action, entry.ResourceType, entry.ResourceID, beforeJSON, afterJSON, entry.RemoteAddr, entry.UserAgent, entry.CreatedAt)
	if err != nil {
		return audit.Entry{}, err
	}
	return entry, nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_email, action, resource_type, resource_id, before, after, remote_addr, user_agent, created_at
		FROM audit_logs
		WHERE ($1 = '' OR actor_id = $1)
		  AND ($2 = '' OR action = $2)
		  AND ($3 = '' OR resource_type = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at <= $5)
		ORDER BY created_at DESC
		LIMIT $6
	`, filter.ActorID, filter.Action, filter.ResourceType, toNullTime(filter.Since), toNullTime(filter.Until), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Entry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (s *Store) LastAuditEntry(ctx context.Context, actorID, action, resourceType, resourceID string) (audit.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, actor_id, actor_email, action, resource_type, resource_id, before, after, remote_addr, user_agent, created_at
		FROM audit_logs
		WHERE actor_id = $1 AND action = $2 AND resource_type = $3 AND resource_id = $4
		ORDER BY created_at DESC
		LIMIT 1
	`, actorID, action, resourceType, resourceID)
	entry, err := scanAuditEntry(row)
	return entry, notFound(err)
}

func (s *Store) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

func scanAuditEntry(row rowScanner) (audit.Entry, error) {
	var (
		entry     audit.Entry
		beforeRaw []byte
		afterRaw  []byte
	)
	if err := row.Scan(&entry.ID, &entry.ActorID, &entry.ActorEmail, &entry.Action, &entry.ResourceType, &entry.ResourceID,
		&beforeRaw, &afterRaw, &entry.RemoteAddr, &entry.UserAgent, &entry.CreatedAt); err != nil {
		return audit.Entry{}, err
	}
	if len(beforeRaw) > 0 {
		_ = json.Unmarshal(beforeRaw, &entry.Before)
	}
	if len(afterRaw) > 0 {
		_ = json.Unmarshal(afterRaw, &entry.After)
	}
	return entry, nil
}

// --- LocationStore ----------------------------------------------------------

func (s *Store) CreateLocation(ctx context.Context, loc content.Location) (content.Location, error) {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	loc.CreatedAt = now
	loc.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, address, phone, hours, latitude, longitude, is_main, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, loc.ID, loc.Name, loc.Address, loc.Phone, loc.Hours, loc.Latitude, loc.Longitude, loc.IsMain, loc.CreatedAt, loc.UpdatedAt)
	if err != nil {
		return content.Location{}, err
	}
	return loc, nil
}

func (s *Store) UpdateLocation(ctx context.Context, loc content.Location) (content.Location, error) {
	existing, err := s.GetLocation(ctx, loc.ID)
	if err != nil {
		return content.Location{}, err
	}

	loc.CreatedAt = existing.CreatedAt
	loc.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE locations
		SET name = $2, address = $3, phone = $4, hours = $5, latitude = $6, longitude = $7, is_main = $8, updated_at = $9
		WHERE id = $1
	`, loc.ID, loc.Name, loc.Address, loc.Phone, loc.Hours, loc.Latitude, loc.Longitude, loc.IsMain, loc.UpdatedAt)
	if err != nil {
		return content.Location{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return content.Location{}, storage.ErrNotFound
	}
	return loc, nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (content.Location, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, phone, hours, latitude, longitude, is_main, created_at, updated_at
		FROM locations
		WHERE id = $1
	`, id)

	var loc content.Location
	if err := row.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.Phone, &loc.Hours, &loc.Latitude, &loc.Longitude, &loc.IsMain, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
		return content.Location{}, notFound(err)
	}
	return loc, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]content.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, phone, hours, latitude, longitude, is_main, created_at, updated_at
		FROM locations
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []content.Location
	for rows.Next() {
		var loc content.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.Phone, &loc.Hours, &loc.Latitude, &loc.Longitude, &loc.IsMain, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, loc)
	}
	return result, rows.Err()
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- CultureStore -----------------------------------------------------------

func (s *Store) CreateCultureItem(ctx context.Context, item content.CultureItem) (content.CultureItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO culture_items (id, title, description, category, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.Title, item.Description, item.Category, item.ImageURL, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return content.CultureItem{}, err
	}
	return item, nil
}

func (s *Store) UpdateCultureItem(ctx context.Context, item content.CultureItem) (content.CultureItem, error) {
	existing, err := s.GetCultureItem(ctx, item.ID)
	if err != nil {
		return content.CultureItem{}, err
	}

	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE culture_items
		SET title = $2, description = $3, category = $4, image_url = $5, updated_at = $6
		WHERE id = $1
	`, item.ID, item.Title, item.Description, item.Category, item.ImageURL, item.UpdatedAt)
	if err != nil {
		return content.CultureItem{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return content.CultureItem{}, storage.ErrNotFound
	}
	return item, nil
}

func (s *Store) GetCultureItem(ctx context.Context, id string) (content.CultureItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, category, image_url, created_at, updated_at
		FROM culture_items
		WHERE id = $1
	`, id)

	var item content.CultureItem
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Category, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return content.CultureItem{}, notFound(err)
	}
	return item, nil
}

func (s *Store) ListCultureItems(ctx context.Context) ([]content.CultureItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, category, image_url, created_at, updated_at
		FROM culture_items
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []content.CultureItem
	for rows.Next() {
		var item content.CultureItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Category, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (s *Store) DeleteCultureItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM culture_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- FarmTourStore ----------------------------------------------------------

func (s *Store) CreateActivity(ctx context.Context, act content.FarmTourActivity) (content.FarmTourActivity, error) {
	if act.ID == "" {
		act.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	act.CreatedAt = now
	act.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO farm_tour_activities (id, name, description, start_month, end_month, price, capacity, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, act.ID, act.Name, act.Description, act.StartMonth, act.EndMonth, act.Price, act.Capacity, act.Active, act.CreatedAt, act.UpdatedAt)
	if err != nil {
		return content.FarmTourActivity{}, err
	}
	return act, nil
}

func (s *Store) UpdateActivity(ctx context.Context, act content.FarmTourActivity) (content.FarmTourActivity, error) {
	existing, err := s.GetActivity(ctx, act.ID)
	if err != nil {
		return content.FarmTourActivity{}, err
	}

	act.CreatedAt = existing.CreatedAt
	act.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE farm_tour_activities
		SET name = $2, description = $3, start_month = $4, end_month = $5, price = $6, capacity = $7, active = $8, updated_at = $9
		WHERE id = $1
	`, act.ID, act.Name, act.Description, act.StartMonth, act.EndMonth, act.Price, act.Capacity, act.Active, act.UpdatedAt)
	if err != nil {
		return content.FarmTourActivity{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return content.FarmTourActivity{}, storage.ErrNotFound
	}
	return act, nil
}

func (s *Store) GetActivity(ctx context.Context, id string) (content.FarmTourActivity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, start_month, end_month, price, capacity, active, created_at, updated_at
		FROM farm_tour_activities
		WHERE id = $1
	`, id)

	var act content.FarmTourActivity
	if err := row.Scan(&act.ID, &act.Name, &act.Description, &act.StartMonth, &act.EndMonth, &act.Price, &act.Capacity, &act.Active, &act.CreatedAt, &act.UpdatedAt); err != nil {
		return content.FarmTourActivity{}, notFound(err)
	}
	return act, nil
}

func (s *Store) ListActivities(ctx context.Context) ([]content.FarmTourActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, start_month, end_month, price, capacity, active, created_at, updated_at
		FROM farm_tour_activities
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []content.FarmTourActivity
	for rows.Next() {
		var act content.FarmTourActivity
		if err := rows.Scan(&act.ID, &act.Name, &act.Description, &act.StartMonth, &act.EndMonth, &act.Price, &act.Capacity, &act.Active, &act.CreatedAt, &act.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, act)
	}
	return result, rows.Err()
}

func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM farm_tour_activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- ReviewStore ------------------------------------------------------------

func (s *Store) CreateReview(ctx context.Context, rev content.Review) (content.Review, error) {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rev.CreatedAt = now
	rev.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, product_id, author, rating, body, approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rev.ID, rev.ProductID, rev.Author, rev.Rating, rev.Body, rev.Approved, rev.CreatedAt, rev.UpdatedAt)
	if err != nil {
		return content.Review{}, err
	}
	return rev, nil
}

func (s *Store) UpdateReview(ctx context.Context, rev content.Review) (content.Review, error) {
	existing, err := s.GetReview(ctx, rev.ID)
	if err != nil {
		return content.Review{}, err
	}

	rev.ProductID = existing.ProductID
	rev.CreatedAt = existing.CreatedAt
	rev.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE reviews
		SET author = $2, rating = $3, body = $4, approved = $5, updated_at = $6
		WHERE id = $1
	`, rev.ID, rev.Author, rev.Rating, rev.Body, rev.Approved, rev.UpdatedAt)
	if err != nil {
		return content.Review{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return content.Review{}, storage.ErrNotFound
	}
	return rev, nil
}

func (s *Store) GetReview(ctx context.Context, id string) (content.Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, author, rating, body, approved, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`, id)

	var rev content.Review
	if err := row.Scan(&rev.ID, &rev.ProductID, &rev.Author, &rev.Rating, &rev.Body, &rev.Approved, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
		return content.Review{}, notFound(err)
	}
	return rev, nil
}

func (s *Store) ListReviews(ctx context.Context, productID string, approvedOnly bool) ([]content.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, author, rating, body, approved, created_at, updated_at
		FROM reviews
		WHERE ($1 = '' OR product_id = $1)
		  AND (NOT $2 OR approved)
		ORDER BY created_at DESC
	`, productID, approvedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []content.Review
	for rows.Next() {
		var rev content.Review
		if err := rows.Scan(&rev.ID, &rev.ProductID, &rev.Author, &rev.Rating, &rev.Body, &rev.Approved, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, rev)
	}
	return result, rows.Err()
}

// Helpers --------------------------------------------------------------------

// notFound translates the driver's empty-result error into the
// backend-independent sentinel. Passes every other error through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
