package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository stores rows in PostgreSQL through a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository with the given connection pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a row and returns the created record.
func (r *PostgresRepository) Create(ctx context.Context, name string, price *decimal.Decimal, imageRef string) (*Item, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO roupas (nome, preco, caminho)
		 VALUES ($1, $2, $3)
		 RETURNING id, nome, preco::text, caminho, created_at`,
		name, formatPrice(price), imageRef,
	)
	it, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("insert roupa: %w", err)
	}
	return it, nil
}

// List returns all rows ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, nome, preco::text, caminho, created_at
		 FROM roupas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roupas: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roupa: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list roupas: %w", err)
	}
	return items, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var (
		it    Item
		price *string
	)
	if err := row.Scan(&it.ID, &it.Name, &price, &it.ImageRef, &it.CreatedAt); err != nil {
		return nil, err
	}
	p, err := parsePrice(price)
	if err != nil {
		return nil, fmt.Errorf("parse preco %q: %w", *price, err)
	}
	it.Price = p
	return &it, nil
}
