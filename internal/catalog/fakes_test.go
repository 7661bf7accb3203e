package catalog

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitrine/catalog/internal/storage"
)

var errBoom = errors.New("boom: connection refused on 10.0.0.5:5432")

type memRepo struct {
	mu        sync.Mutex
	items     []Item
	createErr error
	listErr   error
}

func (r *memRepo) Create(_ context.Context, name string, price *decimal.Decimal, imageRef string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	it := Item{
		ID:        int64(len(r.items) + 1),
		Name:      name,
		Price:     price,
		ImageRef:  imageRef,
		CreatedAt: time.Now().UTC(),
	}
	r.items = append(r.items, it)
	return &it, nil
}

func (r *memRepo) List(context.Context) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]Item{}, r.items...), nil
}

type memObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// memStore mimics MinioStorage references when publicBase is set and
// DiskStorage references otherwise.
type memStore struct {
	mu         sync.Mutex
	publicBase string
	objects    map[string]memObject
	uploadErr  error
	deleteErr  error
	deleted    []string
}

func newMemStore(publicBase string) *memStore {
	return &memStore{publicBase: publicBase, objects: map[string]memObject{}}
}

func (s *memStore) Upload(_ context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memObject{data: data, contentType: contentType, lastModified: time.Now()}
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStore) List(_ context.Context, prefix string) ([]storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Object
	for k, o := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.Object{Key: k, Size: int64(len(o.data)), LastModified: o.lastModified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memStore) Reference(key string) string {
	if s.publicBase == "" {
		return key
	}
	return s.publicBase + "/" + key
}

func (s *memStore) KeyOf(ref string) (string, bool) {
	if s.publicBase == "" {
		return ref, true
	}
	return strings.CutPrefix(ref, s.publicBase+"/")
}

func (s *memStore) object(key string) (memObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
