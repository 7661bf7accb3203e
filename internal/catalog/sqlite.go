package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SQLiteRepository stores rows in a local sqlite database.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository wraps an open, migrated sqlite handle.
func NewSQLiteRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type sqliteRow struct {
	ID        int64          `db:"id"`
	Name      string         `db:"nome"`
	Price     sql.NullString `db:"preco"`
	ImageRef  string         `db:"caminho"`
	CreatedAt string         `db:"created_at"`
}

// sqliteTimeLayouts covers the driver's own time encoding and what
// database/sql produces when it converts a time.Time into a string.
var sqliteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (r sqliteRow) item() (Item, error) {
	createdAt, err := parseSQLiteTime(r.CreatedAt)
	if err != nil {
		return Item{}, err
	}
	it := Item{ID: r.ID, Name: r.Name, ImageRef: r.ImageRef, CreatedAt: createdAt}
	if r.Price.Valid {
		p, err := parsePrice(&r.Price.String)
		if err != nil {
			return Item{}, fmt.Errorf("parse preco %q: %w", r.Price.String, err)
		}
		it.Price = p
	}
	return it, nil
}

// Create inserts a row and returns the created record.
func (r *SQLiteRepository) Create(ctx context.Context, name string, price *decimal.Decimal, imageRef string) (*Item, error) {
	createdAt := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO roupas (nome, preco, caminho, created_at) VALUES (?, ?, ?, ?)`,
		name, formatPrice(price), imageRef, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert roupa: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert roupa: %w", err)
	}
	return &Item{ID: id, Name: name, Price: price, ImageRef: imageRef, CreatedAt: createdAt}, nil
}

// List returns all rows ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Item, error) {
	var rows []sqliteRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, nome, preco, caminho, created_at FROM roupas ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list roupas: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		it, err := row.item()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
