package repositories

import (
	"context"
	"dropoff-route-service/internal/domain"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// boltBound is the stored record; the instance name is also the key.
type boltBound struct {
	Instance  string
	Cost      float64
	Optimal   bool
	UpdatedAt time.Time
	RunID     string
}

// Local-file implementation of the BoundStore port on bbolt via bolthold.
// Upserts run inside one bbolt write transaction.
type BoltBoundStore struct {
	store *bolthold.Store
}

func OpenBoltBoundStore(path string) (*BoltBoundStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open bolt bound store: create dir: %w", err)
		}
	}

	store, err := bolthold.Open(path, 0o644, &bolthold.Options{
		Encoder: json.Marshal,
		Decoder: json.Unmarshal,
		Options: &bbolt.Options{
			Timeout:      5 * time.Second,
			NoGrowSync:   bbolt.DefaultOptions.NoGrowSync,
			FreelistType: bbolt.DefaultOptions.FreelistType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt bound store %q: %w", path, err)
	}
	return &BoltBoundStore{store: store}, nil
}

func (s *BoltBoundStore) Get(_ context.Context, instance string) (*domain.Bound, error) {
	if s.store == nil {
		return nil, errors.New("bolt bound store: db is nil")
	}

	var rec boltBound
	if err := s.store.Get(instance, &rec); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bound %s: %w", instance, err)
	}
	b := rec.toDomain()
	return &b, nil
}

func (s *BoltBoundStore) Upsert(_ context.Context, b domain.Bound) (bool, error) {
	if s.store == nil {
		return false, errors.New("bolt bound store: db is nil")
	}

	updated := false
	err := s.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var stored *domain.Bound
		var rec boltBound
		switch err := s.store.TxGet(tx, b.Instance, &rec); {
		case err == nil:
			cur := rec.toDomain()
			stored = &cur
		case !errors.Is(err, bolthold.ErrNotFound):
			return err
		}

		if !domain.ShouldReplace(stored, b.Cost, b.Optimal) {
			return nil
		}
		updated = true
		return s.store.TxUpsert(tx, b.Instance, fromDomain(b))
	})
	if err != nil {
		return false, fmt.Errorf("upsert bound %s: %w", b.Instance, err)
	}
	return updated, nil
}

func (s *BoltBoundStore) MarkSuboptimal(_ context.Context, instance string) error {
	if s.store == nil {
		return errors.New("bolt bound store: db is nil")
	}

	err := s.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var rec boltBound
		if err := s.store.TxGet(tx, instance, &rec); err != nil {
			if errors.Is(err, bolthold.ErrNotFound) {
				return nil
			}
			return err
		}
		rec.Optimal = false
		return s.store.TxUpdate(tx, instance, rec)
	})
	if err != nil {
		return fmt.Errorf("mark suboptimal %s: %w", instance, err)
	}
	return nil
}

func (s *BoltBoundStore) List(_ context.Context) ([]domain.Bound, error) {
	if s.store == nil {
		return nil, errors.New("bolt bound store: db is nil")
	}

	var recs []boltBound
	if err := s.store.Find(&recs, nil); err != nil {
		return nil, fmt.Errorf("list bounds: %w", err)
	}

	out := make([]domain.Bound, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out, nil
}

func (s *BoltBoundStore) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (r boltBound) toDomain() domain.Bound {
	return domain.Bound{
		Instance:  r.Instance,
		Cost:      r.Cost,
		Optimal:   r.Optimal,
		UpdatedAt: r.UpdatedAt,
		RunID:     r.RunID,
	}
}

func fromDomain(b domain.Bound) boltBound {
	return boltBound{
		Instance:  b.Instance,
		Cost:      b.Cost,
		Optimal:   b.Optimal,
		UpdatedAt: b.UpdatedAt,
		RunID:     b.RunID,
	}
}
