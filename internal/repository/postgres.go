package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/Adams521/everything-gift/internal/model"
)

const productColumns = `
	id, name, price, image_url, platform, platform_url, category_id, description,
	brand, rating, sales_count, style, suitable_gender, suitable_age_range,
	tags, suitable_scenes, crawl_at, created_at, updated_at`

const categoryColumns = `id, name, description, icon, created_at, updated_at`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// FindProducts runs a compiled recommendation query
func (r *PostgresRepository) FindProducts(ctx context.Context, q *model.ProductQuery) ([]model.Product, error) {
	query, args := buildProductQuery(q)

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

// buildProductQuery renders q as SQL with $N placeholders.
// Predicates are AND-combined in a fixed order; NULLs sort last in every ordering term.
func buildProductQuery(q *model.ProductQuery) (string, []interface{}) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if q.PriceMin != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *q.PriceMin)
		argIndex++
	}
	if q.PriceMax != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *q.PriceMax)
		argIndex++
	}
	if q.Gender != nil {
		whereClauses = append(whereClauses,
			fmt.Sprintf("(suitable_gender = $%d OR suitable_gender = '%s' OR suitable_gender IS NULL)", argIndex, model.GenderUnisex))
		args = append(args, *q.Gender)
		argIndex++
	}
	if q.AgeRange != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("(suitable_age_range = $%d OR suitable_age_range IS NULL)", argIndex))
		args = append(args, *q.AgeRange)
		argIndex++
	}
	if q.Style != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("(style = $%d OR style IS NULL)", argIndex))
		args = append(args, *q.Style)
		argIndex++
	}
	if len(q.CategoryIDs) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("category_id = ANY($%d)", argIndex))
		args = append(args, pq.Array(q.CategoryIDs))
		argIndex++
	}

	orderTerms := make([]string, 0, 4)
	for _, term := range q.OrderBy() {
		dir := "ASC"
		if term.Desc {
			dir = "DESC"
		}
		orderTerms = append(orderTerms, fmt.Sprintf("%s %s NULLS LAST", term.Field, dir))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE %s
		ORDER BY %s
		LIMIT $%d
	`, productColumns, strings.Join(whereClauses, " AND "), strings.Join(orderTerms, ", "), argIndex)

	return query, args
}

// CategoriesMatching returns categories whose name contains any keyword (case-sensitive)
func (r *PostgresRepository) CategoriesMatching(ctx context.Context, keywords []string) ([]model.Category, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	conds := make([]string, len(keywords))
	args := make([]interface{}, len(keywords))
	for i, kw := range keywords {
		conds[i] = fmt.Sprintf("strpos(name, $%d) > 0", i+1)
		args[i] = kw
	}

	query := fmt.Sprintf(`SELECT %s FROM gift_categories WHERE %s ORDER BY id`,
		categoryColumns, strings.Join(conds, " OR "))

	var categories []model.Category
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("failed to match categories: %w", err)
	}
	return categories, nil
}

// ListProducts returns a page of products by id
func (r *PostgresRepository) ListProducts(ctx context.Context, opts model.ProductListOptions) ([]model.Product, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if opts.CategoryID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *opts.CategoryID)
		argIndex++
	}
	if opts.Platform != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("platform = $%d", argIndex))
		args = append(args, *opts.Platform)
		argIndex++
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		productColumns, strings.Join(whereClauses, " AND "), argIndex, argIndex+1)
	args = append(args, opts.Limit, opts.Skip)

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProductByID retrieves a single product; nil when it does not exist
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// ListCategories returns the whole taxonomy by id
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	query := fmt.Sprintf(`SELECT %s FROM gift_categories ORDER BY id`, categoryColumns)
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryByID retrieves a single category; nil when it does not exist
func (r *PostgresRepository) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	query := fmt.Sprintf(`SELECT %s FROM gift_categories WHERE id = $1`, categoryColumns)
	err := r.db.GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

// BatchUpdateEmbeddings updates embeddings for multiple products
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errs
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE products SET embedding = $1, updated_at = NOW() WHERE id = $2`)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errs
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		res, err := stmt.ExecContext(ctx, vec, item.ProductID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("product_id %d: %v", item.ProductID, err))
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			errs = append(errs, fmt.Sprintf("product_id %d: not found", item.ProductID))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}

	return success, errs
}

// LogRecommendation stores the audit record of a finished recommendation
func (r *PostgresRepository) LogRecommendation(ctx context.Context, entry *model.RecommendationLog) error {
	var intentJSON []byte
	sortBy := string(model.SortRelevance)
	if entry.Intent != nil {
		data, err := json.Marshal(entry.Intent)
		if err != nil {
			return fmt.Errorf("failed to marshal intent: %w", err)
		}
		intentJSON = data
		sortBy = string(entry.Intent.SortBy)
	}

	query := `
		INSERT INTO recommendation_logs (recommendation_id, digest, intent, sort_by, product_ids, degraded, took_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.RecommendationID, entry.Digest, intentJSON, sortBy,
		pq.Array(entry.ProductIDs), entry.Degraded, entry.TookMs)
	if err != nil {
		return fmt.Errorf("failed to log recommendation: %w", err)
	}
	return nil
}

// LogFeedback logs user feedback/action
func (r *PostgresRepository) LogFeedback(ctx context.Context, recommendationID string, productID int64, action string) error {
	query := `
		INSERT INTO recommendation_feedback (recommendation_id, product_id, action)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, recommendationID, productID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}
