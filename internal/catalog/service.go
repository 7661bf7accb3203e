package catalog

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitrine/catalog/internal/storage"
)

// objectKeyPrefix is where the object variant puts uploaded photos.
const objectKeyPrefix = "fotos/"

// Validation messages returned to clients.
const (
	msgNameAndPhoto      = "Nome e foto são necessários."
	msgNamePriceAndPhoto = "Nome, preço e foto são necessários."
	msgInvalidPrice      = "Preço inválido."
)

// maxPrice is the first value that no longer fits numeric(10,2).
var maxPrice = decimal.New(1, 8)

// Photo is an uploaded image awaiting storage.
type Photo struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// NewItem is the input of Service.Create. Price is the raw form value.
type NewItem struct {
	Name  string
	Price string
	Photo *Photo
}

// Service contains the create/list logic shared by both deployment variants.
type Service struct {
	repo    Repository
	store   storage.Storage
	variant Variant
	log     *zap.Logger
	now     func() time.Time
}

// NewService creates a catalog Service.
func NewService(repo Repository, store storage.Storage, variant Variant, log *zap.Logger) *Service {
	return &Service{repo: repo, store: store, variant: variant, log: log, now: time.Now}
}

// Variant reports the deployment rules this service applies.
func (s *Service) Variant() Variant {
	return s.variant
}

// Create stores the photo, then records the row. If the insert fails the
// photo is removed again unless it replaced a file that was already there.
func (s *Service) Create(ctx context.Context, in NewItem) (*Item, error) {
	name := strings.TrimSpace(in.Name)
	priceRaw := strings.TrimSpace(in.Price)

	if name == "" || in.Photo == nil || (s.variant == VariantObject && priceRaw == "") {
		return nil, &ValidationError{Message: s.missingFieldsMessage()}
	}

	price, err := parsePriceInput(priceRaw)
	if err != nil {
		return nil, &ValidationError{Message: msgInvalidPrice}
	}

	key := s.keyFor(in.Photo.Filename)
	if key == "" {
		return nil, &ValidationError{Message: s.missingFieldsMessage()}
	}

	existed, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "stat image", Err: err}
	}

	if err := s.store.Upload(ctx, key, in.Photo.Body, in.Photo.Size, in.Photo.ContentType); err != nil {
		return nil, &StorageError{Op: "upload image", Err: err}
	}

	item, err := s.repo.Create(ctx, name, price, s.store.Reference(key))
	if err != nil {
		if !existed {
			s.discard(key)
		}
		return nil, &StorageError{Op: "insert item", Err: err}
	}

	s.log.Info("item created",
		zap.Int64("id", item.ID),
		zap.String("key", key),
		zap.Bool("replaced", existed),
	)
	return item, nil
}

// List returns every catalog row.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list items", Err: err}
	}
	return items, nil
}

// discard runs detached from the request context: the request may already be
// cancelled, which is often why the insert failed.
func (s *Service) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("orphaned image left for reconciliation", zap.String("key", key), zap.Error(err))
		return
	}
	s.log.Info("removed image after failed insert", zap.String("key", key))
}

func (s *Service) missingFieldsMessage() string {
	if s.variant == VariantObject {
		return msgNamePriceAndPhoto
	}
	return msgNameAndPhoto
}

// keyFor derives the storage key from the client's file name, or "" when the
// name is unusable. Leading dots are dropped so stored images are never dot
// files. The disk variant keeps the name otherwise; the object variant
// prefixes a millisecond timestamp.
func (s *Service) keyFor(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	base = strings.TrimLeft(base, ".")
	if storage.ValidateName(base) != nil {
		return ""
	}
	if s.variant == VariantObject {
		return fmt.Sprintf("%s%d_%s", objectKeyPrefix, s.now().UnixMilli(), base)
	}
	return base
}

// keyPrefix is the part of the key space owned by this variant.
func (s *Service) keyPrefix() string {
	if s.variant == VariantObject {
		return objectKeyPrefix
	}
	return ""
}

// parsePriceInput accepts "49.90", "49,90" or "50"; empty means no price.
func parsePriceInput(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil {
		return nil, err
	}
	if d.IsNegative() || d.GreaterThanOrEqual(maxPrice) || !d.Equal(d.Round(2)) {
		return nil, fmt.Errorf("price %q out of range", raw)
	}
	return &d, nil
}
