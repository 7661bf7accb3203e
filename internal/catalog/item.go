// Package catalog manages clothing items: their images, rows and HTTP surface.
package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item is one row of the roupas table.
type Item struct {
	ID        int64            `json:"id"`
	Name      string           `json:"nome"`
	Price     *decimal.Decimal `json:"preco"`
	ImageRef  string           `json:"caminho"`
	CreatedAt time.Time        `json:"created_at"`
}

// Variant selects the per-deployment rules of the create operation.
type Variant string

const (
	// VariantDisk keeps images under their original name and makes price optional.
	VariantDisk Variant = "disk"
	// VariantObject stores timestamp-prefixed objects in a bucket and requires a price.
	VariantObject Variant = "object"
)

// ValidationError is a client mistake; Message is safe to return verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StorageError wraps any file system, object store or database failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
