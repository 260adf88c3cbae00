package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/planwatch/planwatch_api/internal/models"
)

// ProductRepository handles data access for products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetDueForExtraction returns active products that were never extracted or
// whose last extraction is older than the staleness window, oldest first,
// capped at limit. The predicate is idempotent: re-running it without an
// intervening successful extraction returns the same candidate set.
func (r *ProductRepository) GetDueForExtraction(staleness time.Duration, limit int) ([]models.Product, error) {
	const q = `
        SELECT * FROM products
        WHERE is_active = true
        AND (last_extracted_at IS NULL OR last_extracted_at < $1)
        ORDER BY last_extracted_at ASC NULLS FIRST, slug
        LIMIT $2`

	cutoff := time.Now().UTC().Add(-staleness)

	var products []models.Product
	if err := r.db.Select(&products, q, cutoff, limit); err != nil {
		return nil, err
	}
	return products, nil
}

// GetBySlug returns a single product by slug.
func (r *ProductRepository) GetBySlug(slug string) (*models.Product, error) {
	const q = `SELECT * FROM products WHERE slug = $1 LIMIT 1`

	var p models.Product
	if err := r.db.Get(&p, q, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &p, nil
}

// GetByID returns a single product by id.
func (r *ProductRepository) GetByID(id string) (*models.Product, error) {
	const q = `SELECT * FROM products WHERE id = $1 LIMIT 1`

	var p models.Product
	if err := r.db.Get(&p, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &p, nil
}

// GetAllPaged returns active products with filters and pagination and also
// returns total count. Filters: category (exact), search (ILIKE on name).
// If a filter is empty it will be ignored. Page begins at 1.
func (r *ProductRepository) GetAllPaged(category, search string, page, limit int) ([]models.Product, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	offset := (page - 1) * limit

	const baseWhere = `WHERE ($1 = '' OR category = $1)
        AND ($2 = '' OR name ILIKE '%' || $2 || '%')
        AND is_active = true`

	countQuery := `SELECT COUNT(1) FROM products ` + baseWhere
	var total int
	if err := r.db.Get(&total, countQuery, category, search); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT * FROM products ` + baseWhere + `
        ORDER BY category, name LIMIT $3 OFFSET $4`
	var products []models.Product
	if err := r.db.Select(&products, listQuery, category, search, limit, offset); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// SetExtractionStatus updates a product's extraction status. When
// touchExtractedAt is true, last_extracted_at is set to now; terminal
// outcomes (success/failed) touch it so the staleness window restarts.
func (r *ProductRepository) SetExtractionStatus(id string, status models.ExtractionStatus, touchExtractedAt bool) error {
	if touchExtractedAt {
		const q = `
            UPDATE products
            SET extraction_status = $2, last_extracted_at = NOW(), updated_at = NOW()
            WHERE id = $1`
		_, err := r.db.Exec(q, id, status)
		return err
	}

	const q = `
        UPDATE products
        SET extraction_status = $2, updated_at = NOW()
        WHERE id = $1`
	_, err := r.db.Exec(q, id, status)
	return err
}

// Create inserts a new product (administrative path).
func (r *ProductRepository) Create(p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	const q = `
        INSERT INTO products (id, slug, name, description, website_url, source_url, category, logo_url, is_active, extraction_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(q,
		p.ID, p.Slug, p.Name, p.Description, p.WebsiteURL,
		p.SourceURL, p.Category, p.LogoURL, p.IsActive, models.ExtractionPending,
	)
	return err
}

// Update modifies an existing product's administrative fields.
func (r *ProductRepository) Update(p *models.Product) error {
	const q = `
        UPDATE products
        SET name = $2, description = $3, website_url = $4, source_url = $5,
            category = $6, logo_url = $7, is_active = $8, updated_at = NOW()
        WHERE id = $1`

	_, err := r.db.Exec(q,
		p.ID, p.Name, p.Description, p.WebsiteURL, p.SourceURL,
		p.Category, p.LogoURL, p.IsActive,
	)
	return err
}
