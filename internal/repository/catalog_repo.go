package repository

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/retailradar/retailradar/internal/models"
)

// cursorTimeLayout renders created_at with millisecond precision, matching
// the wire format consumed by clients.
const cursorTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// CatalogRepository handles data access for the product catalog.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindBelowRetail returns the brand's below-retail entries ordered by
// discount descending, creation time descending, with optional filters and
// cursor pagination. An unparseable cursor is ignored.
func (r *CatalogRepository) FindBelowRetail(brand string, q *models.BrandQuery) ([]models.CatalogEntry, error) {
	where, args := belowRetailWhere(brand, q)
	argIdx := len(args) + 1

	if q.Cursor != "" {
		if discount, createdAt, ok := parseCursor(q.Cursor); ok {
			where += fmt.Sprintf(
				" AND (discount_percentage < $%d OR (discount_percentage = $%d AND created_at < $%d))",
				argIdx, argIdx, argIdx+1)
			args = append(args, discount, createdAt)
			argIdx += 2
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT * FROM products ` + where +
		fmt.Sprintf(` ORDER BY discount_percentage DESC, created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limit)

	var entries []models.CatalogEntry
	if err := r.db.Select(&entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountBelowRetail returns the number of below-retail entries matching the
// brand and filters, ignoring pagination.
func (r *CatalogRepository) CountBelowRetail(brand string, q *models.BrandQuery) (int, error) {
	where, args := belowRetailWhere(brand, q)

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM products `+where, args...); err != nil {
		return 0, err
	}
	return total, nil
}

// belowRetailWhere builds the shared WHERE clause for below-retail queries.
func belowRetailWhere(brand string, q *models.BrandQuery) (string, []interface{}) {
	where := `WHERE brand = $1 AND current_price < retail_price`
	args := []interface{}{brand}
	argIdx := 2

	if q.MinDiscount != nil {
		where += fmt.Sprintf(" AND discount_percentage >= $%d", argIdx)
		args = append(args, *q.MinDiscount)
		argIdx++
	}
	if q.MaxPrice != nil {
		where += fmt.Sprintf(" AND current_price <= $%d", argIdx)
		args = append(args, *q.MaxPrice)
		argIdx++
	}
	if q.Size != "" {
		where += fmt.Sprintf(" AND size = $%d", argIdx)
		args = append(args, q.Size)
		argIdx++
	}
	return where, args
}

// FindByURL returns the catalog entry with the given source URL, or nil when
// absent.
func (r *CatalogRepository) FindByURL(stockxURL string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := r.db.Get(&entry, `SELECT * FROM products WHERE stockx_url = $1 LIMIT 1`, stockxURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Save inserts a new catalog entry and populates its generated fields.
func (r *CatalogRepository) Save(entry *models.CatalogEntry) error {
	const q = `
        INSERT INTO products (name, brand, colorway, retail_price, current_price, discount_percentage, size, sku, image_url, stockx_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q,
		entry.Name,
		entry.Brand,
		entry.Colorway,
		entry.RetailPrice,
		entry.CurrentPrice,
		entry.DiscountPercentage,
		entry.Size,
		entry.SKU,
		entry.ImageURL,
		entry.StockxURL,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

// UpdatePrice updates the mutable price fields of an existing entry.
// Name, brand, and imagery are immutable once recorded.
func (r *CatalogRepository) UpdatePrice(id string, currentPrice, discountPercentage float64) error {
	const q = `
        UPDATE products
        SET current_price = $2, discount_percentage = $3, updated_at = NOW()
        WHERE id = $1`
	_, err := r.db.Exec(q, id, currentPrice, discountPercentage)
	return err
}

// Upsert inserts the entry or, when its stockx_url already exists, updates
// only the price fields. The on-conflict form keeps concurrent refreshes of
// the same brand from racing a find-then-insert into duplicate rows.
func (r *CatalogRepository) Upsert(entry *models.CatalogEntry) error {
	const q = `
        INSERT INTO products (name, brand, colorway, retail_price, current_price, discount_percentage, size, sku, image_url, stockx_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (stockx_url) DO UPDATE SET
            current_price = EXCLUDED.current_price,
            discount_percentage = EXCLUDED.discount_percentage,
            updated_at = NOW()
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q,
		entry.Name,
		entry.Brand,
		entry.Colorway,
		entry.RetailPrice,
		entry.CurrentPrice,
		entry.DiscountPercentage,
		entry.Size,
		entry.SKU,
		entry.ImageURL,
		entry.StockxURL,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

// GenerateCursor encodes an entry's pagination position as an opaque string.
func GenerateCursor(entry *models.CatalogEntry) string {
	raw := fmt.Sprintf("%s|%s",
		strconv.FormatFloat(entry.DiscountPercentage, 'f', -1, 64),
		entry.CreatedAt.UTC().Format(cursorTimeLayout))
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// parseCursor decodes a cursor back into its (discount, createdAt) pair.
// Returns ok=false for malformed input.
func parseCursor(cursor string) (float64, time.Time, bool) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, time.Time{}, false
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return 0, time.Time{}, false
	}

	discount, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	createdAt, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return 0, time.Time{}, false
	}
	return discount, createdAt, true
}
