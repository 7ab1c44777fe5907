package catalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteSource serves the bundled product list.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens dbPath (":memory:" is accepted) and applies the embedded migrations.
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteSource{db: db}
	if err := s.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSource) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

const productColumns = `id, name, description, category, price, original_price, images, in_stock, tag, created_at`

func (s *SQLiteSource) Get(ctx context.Context, id int64) (domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *SQLiteSource) List(ctx context.Context, q Query) (Page, error) {
	products, err := s.all(ctx)
	if err != nil {
		return Page{}, err
	}
	return Apply(products, q), nil
}

func (s *SQLiteSource) Categories(ctx context.Context, lang string) ([]string, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return categoryNames(products, domain.NormalizeLanguage(lang)), nil
}

func (s *SQLiteSource) all(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (domain.Product, error) {
	var (
		p                            domain.Product
		name, desc, category, images string
		price, tag, createdAt        string
		originalPrice                sql.NullString
		inStock                      int
	)
	if err := row.Scan(&p.ID, &name, &desc, &category, &price, &originalPrice, &images, &inStock, &tag, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan product: %w", err)
	}

	for _, f := range []struct {
		raw string
		dst any
	}{
		{name, &p.Name},
		{desc, &p.Description},
		{category, &p.Category},
		{images, &p.Images},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return p, fmt.Errorf("product %d: decode column failed: %w", p.ID, err)
		}
	}

	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return p, fmt.Errorf("product %d: bad price: %w", p.ID, err)
	}
	if originalPrice.Valid {
		op, err := decimal.NewFromString(originalPrice.String)
		if err != nil {
			return p, fmt.Errorf("product %d: bad original price: %w", p.ID, err)
		}
		p.OriginalPrice = &op
	}
	p.InStock = inStock != 0
	p.Tag = domain.ProductTag(tag)
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return p, fmt.Errorf("product %d: bad created_at: %w", p.ID, err)
	}
	return p, nil
}
