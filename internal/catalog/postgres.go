package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/promo"
)

const schema = `
CREATE TABLE IF NOT EXISTS promo_codes (
	code                  TEXT PRIMARY KEY,
	type                  TEXT NOT NULL,
	value                 BIGINT NOT NULL DEFAULT 0,
	description           TEXT NOT NULL DEFAULT '',
	min_purchase          BIGINT NOT NULL DEFAULT 0,
	max_discount          BIGINT NOT NULL DEFAULT 0,
	usage_limit           INT NOT NULL DEFAULT 0,
	usage_count           INT NOT NULL DEFAULT 0,
	per_user_limit        INT NOT NULL DEFAULT 0,
	starts_at             TIMESTAMPTZ,
	expires_at            TIMESTAMPTZ,
	is_active             BOOLEAN NOT NULL DEFAULT TRUE,
	applicable_products   TEXT[] NOT NULL DEFAULT '{}',
	applicable_categories TEXT[] NOT NULL DEFAULT '{}',
	excluded_products     TEXT[] NOT NULL DEFAULT '{}',
	position              SERIAL
);

CREATE TABLE IF NOT EXISTS bundles (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	discount_type  TEXT NOT NULL,
	discount_value BIGINT NOT NULL DEFAULT 0,
	min_products   INT NOT NULL DEFAULT 0,
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	starts_at      TIMESTAMPTZ,
	expires_at     TIMESTAMPTZ,
	position       SERIAL
);

CREATE TABLE IF NOT EXISTS bundle_products (
	bundle_id  TEXT NOT NULL REFERENCES bundles(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	price      BIGINT NOT NULL DEFAULT 0,
	required   BOOLEAN NOT NULL DEFAULT FALSE,
	position   INT NOT NULL DEFAULT 0,
	PRIMARY KEY (bundle_id, product_id)
);
`

// PostgresSource loads the catalog from PostgreSQL.
type PostgresSource struct {
	db    *sql.DB
	clock clock.Clock
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewPostgresSource creates a source reading from db.
func NewPostgresSource(db *sql.DB, c clock.Clock) *PostgresSource {
	if c == nil {
		c = clock.NewReal()
	}
	return &PostgresSource{db: db, clock: c}
}

// Migrate creates the catalog tables if they do not exist.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

// Load implements Source.
func (s *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	codes, err := s.loadPromoCodes(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := s.loadBundles(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return NewSnapshot(Document{
		Version:    "postgres@" + now.UTC().Format(time.RFC3339),
		PromoCodes: codes,
		Bundles:    bundles,
	}, now)
}

func (s *PostgresSource) loadPromoCodes(ctx context.Context) ([]promo.Code, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, type, value, description, min_purchase, max_discount,
		       usage_limit, usage_count, per_user_limit, starts_at, expires_at,
		       is_active, applicable_products, applicable_categories, excluded_products
		FROM promo_codes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying promo codes: %w", err)
	}
	defer rows.Close()

	var out []promo.Code
	for rows.Next() {
		var (
			c               promo.Code
			typ             string
			starts, expires sql.NullTime
		)
		if err := rows.Scan(&c.Code, &typ, &c.Value, &c.Description, &c.MinPurchase, &c.MaxDiscount,
			&c.UsageLimit, &c.UsageCount, &c.PerUserLimit, &starts, &expires, &c.IsActive,
			pq.Array(&c.ApplicableProducts), pq.Array(&c.ApplicableCategories), pq.Array(&c.ExcludedProducts),
		); err != nil {
			return nil, fmt.Errorf("scanning promo code: %w", err)
		}
		c.Type = promo.Type(typ)
		c.StartsAt = nullTime(starts)
		c.ExpiresAt = nullTime(expires)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading promo codes: %w", err)
	}
	return out, nil
}

func (s *PostgresSource) loadBundles(ctx context.Context) ([]bundle.Bundle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, discount_type, discount_value, min_products,
		       is_active, starts_at, expires_at
		FROM bundles ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying bundles: %w", err)
	}
	defer rows.Close()

	var out []bundle.Bundle
	index := make(map[string]int)
	for rows.Next() {
		var (
			b               bundle.Bundle
			typ             string
			starts, expires sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &typ, &b.DiscountValue, &b.MinProducts,
			&b.IsActive, &starts, &expires); err != nil {
			return nil, fmt.Errorf("scanning bundle: %w", err)
		}
		b.DiscountType = bundle.DiscountType(typ)
		b.StartsAt = nullTime(starts)
		b.ExpiresAt = nullTime(expires)
		index[b.ID] = len(out)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading bundles: %w", err)
	}

	prows, err := s.db.QueryContext(ctx, `
		SELECT bundle_id, product_id, name, price, required
		FROM bundle_products ORDER BY bundle_id, position`)
	if err != nil {
		return nil, fmt.Errorf("querying bundle products: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var (
			bundleID string
			p        bundle.Product
		)
		if err := prows.Scan(&bundleID, &p.ProductID, &p.Name, &p.Price, &p.Required); err != nil {
			return nil, fmt.Errorf("scanning bundle product: %w", err)
		}
		i, ok := index[bundleID]
		if !ok {
			continue
		}
		out[i].Products = append(out[i].Products, p)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("reading bundle products: %w", err)
	}
	return out, nil
}

// Import replaces the stored catalog with doc in a single transaction.
// doc is validated first so a bad file never reaches the database.
func (s *PostgresSource) Import(ctx context.Context, doc Document) error {
	if _, err := NewSnapshot(doc, s.clock.Now()); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{"DELETE FROM bundle_products", "DELETE FROM bundles", "DELETE FROM promo_codes"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing catalog: %w", err)
		}
	}

	for _, c := range doc.PromoCodes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO promo_codes (code, type, value, description, min_purchase, max_discount,
				usage_limit, usage_count, per_user_limit, starts_at, expires_at, is_active,
				applicable_products, applicable_categories, excluded_products)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			promo.Normalize(c.Code), string(c.Type), c.Value, c.Description, c.MinPurchase, c.MaxDiscount,
			c.UsageLimit, c.UsageCount, c.PerUserLimit, sqlTime(c.StartsAt), sqlTime(c.ExpiresAt), c.IsActive,
			pq.Array(nonNil(c.ApplicableProducts)), pq.Array(nonNil(c.ApplicableCategories)), pq.Array(nonNil(c.ExcludedProducts)),
		)
		if err != nil {
			return fmt.Errorf("inserting promo code %s: %w", c.Code, err)
		}
	}

	for _, b := range doc.Bundles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bundles (id, name, description, discount_type, discount_value, min_products,
				is_active, starts_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			b.ID, b.Name, b.Description, string(b.DiscountType), b.DiscountValue, b.MinProducts,
			b.IsActive, sqlTime(b.StartsAt), sqlTime(b.ExpiresAt),
		)
		if err != nil {
			return fmt.Errorf("inserting bundle %s: %w", b.ID, err)
		}
		for i, p := range b.Products {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO bundle_products (bundle_id, product_id, name, price, required, position)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				b.ID, p.ProductID, p.Name, p.Price, p.Required, i,
			)
			if err != nil {
				return fmt.Errorf("inserting product %s of bundle %s: %w", p.ProductID, b.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

func nullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

func sqlTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
