package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrUnresolvedReference is returned by a non dry-run Reconcile when some row
// points at an image the store cannot map back to a key, e.g. after the public
// base URL changed. Deleting in that state could remove live images.
var ErrUnresolvedReference = errors.New("catalog: image reference not recognised by store")

// ReconcileResult lists the stored images no row refers to.
type ReconcileResult struct {
	Scanned int
	Orphans []string
	Removed []string
	// Unresolved holds row references the store did not recognise.
	Unresolved []string
}

// Reconcile finds images that no catalog row references, typically left
// behind by a crash between upload and insert, and deletes those older than
// olderThan. Younger objects may belong to a create still in flight. With
// dryRun nothing is deleted. If any row's reference cannot be mapped to a key
// it refuses to delete and returns ErrUnresolvedReference; a dry run reports
// those references in the result instead.
func (s *Service) Reconcile(ctx context.Context, olderThan time.Duration, dryRun bool) (*ReconcileResult, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list items", Err: err}
	}
	referenced := make(map[string]struct{}, len(items))
	var unresolved []string
	for _, it := range items {
		key, ok := s.store.KeyOf(it.ImageRef)
		if !ok {
			unresolved = append(unresolved, it.ImageRef)
			continue
		}
		referenced[key] = struct{}{}
	}
	if len(unresolved) > 0 {
		s.log.Warn("rows reference images outside the store",
			zap.Int("count", len(unresolved)),
			zap.String("first", unresolved[0]),
		)
		if !dryRun {
			return nil, fmt.Errorf("%w: %d rows, first %q", ErrUnresolvedReference, len(unresolved), unresolved[0])
		}
	}

	objects, err := s.store.List(ctx, s.keyPrefix())
	if err != nil {
		return nil, &StorageError{Op: "list images", Err: err}
	}

	cutoff := s.now().Add(-olderThan)
	res := &ReconcileResult{Scanned: len(objects), Unresolved: unresolved}
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok || obj.LastModified.After(cutoff) {
			continue
		}
		res.Orphans = append(res.Orphans, obj.Key)
		if dryRun {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			s.log.Warn("could not remove orphaned image", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		res.Removed = append(res.Removed, obj.Key)
	}

	s.log.Info("reconciliation finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("orphans", len(res.Orphans)),
		zap.Int("removed", len(res.Removed)),
		zap.Bool("dry_run", dryRun),
	)
	return res, nil
}
