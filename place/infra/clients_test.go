package infra

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pixelplace/place/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisClientStore(t *testing.T) (*RedisClientStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisClientStore(rdb, WithClientPrefix("test")), mr
}

func newSQLiteClientStore(t *testing.T) *SQLiteClientStore {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewSQLiteClientStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	return s
}

func clientStores(t *testing.T) map[string]domain.ClientStore {
	fs, err := NewFileClientStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	rs, _ := newRedisClientStore(t)
	return map[string]domain.ClientStore{
		"file":   fs,
		"redis":  rs,
		"sqlite": newSQLiteClientStore(t),
	}
}

func TestClientStores_DefaultRecord(t *testing.T) {
	for name, s := range clientStores(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.Get(context.Background(), domain.Identify("1.2.3.4"))
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if rec.Color != domain.Black || !rec.LastPlacement.Equal(domain.Epoch) {
				t.Fatalf("expected default record, got %+v", rec)
			}
		})
	}
}

func TestClientStores_FieldUpdatesPreserveTheOther(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

	for name, s := range clientStores(t) {
		t.Run(name, func(t *testing.T) {
			id := domain.Identify("10.0.0.1")

			if err := domain.SetColor(ctx, s, id, domain.RGB{R: 255, B: 1}); err != nil {
				t.Fatalf("set color: %v", err)
			}
			if err := domain.SetPlacementTime(ctx, s, id, at); err != nil {
				t.Fatalf("set time: %v", err)
			}
			rec, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if rec.Color != (domain.RGB{R: 255, B: 1}) {
				t.Fatalf("expected color preserved, got %v", rec.Color)
			}
			if !rec.LastPlacement.Equal(at) {
				t.Fatalf("expected %v, got %v", at, rec.LastPlacement)
			}

			if err := domain.SetColor(ctx, s, id, domain.RGB{G: 7}); err != nil {
				t.Fatalf("set color: %v", err)
			}
			rec, _ = s.Get(ctx, id)
			if rec.Color != (domain.RGB{G: 7}) || !rec.LastPlacement.Equal(at) {
				t.Fatalf("expected new color and old time, got %+v", rec)
			}

			// outro cliente não é afetado
			other, _ := s.Get(ctx, domain.Identify("10.0.0.2"))
			if other.Color != domain.Black {
				t.Fatalf("expected other client untouched")
			}
		})
	}
}

func TestClientStores_ConcurrentUpdatesSameClient(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range clientStores(t) {
		t.Run(name, func(t *testing.T) {
			id := domain.Identify("nat")
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(2)
				go func(i int) {
					defer wg.Done()
					if err := domain.SetColor(ctx, s, id, domain.RGB{R: uint8(i + 1)}); err != nil {
						t.Errorf("set color: %v", err)
					}
				}(i)
				go func(i int) {
					defer wg.Done()
					if err := domain.SetPlacementTime(ctx, s, id, at.Add(time.Duration(i)*time.Second)); err != nil {
						t.Errorf("set time: %v", err)
					}
				}(i)
			}
			wg.Wait()

			rec, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			// nenhuma escrita pode ter apagado o campo da outra
			if rec.Color == domain.Black {
				t.Fatalf("expected color to survive concurrent time updates")
			}
			if rec.LastPlacement.Before(at) {
				t.Fatalf("expected time to survive concurrent color updates, got %v", rec.LastPlacement)
			}
		})
	}
}

func TestFileClientStore_LayoutAndLegacyRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileClientStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	id := domain.Identify("10.0.0.1")
	at := time.Unix(1700000000, 500000000).UTC()
	if err := s.Update(context.Background(), id, func(r *domain.ClientRecord) {
		r.Color = domain.RGB{R: 1, G: 2, B: 3}
		r.LastPlacement = at
	}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, string(id)+".txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1,2,3;1700000000.500000000" {
		t.Fatalf("unexpected record %q", data)
	}

	// registro antigo: float com menos casas e sem timestamp
	legacy := domain.Identify("legacy")
	_ = os.WriteFile(filepath.Join(dir, string(legacy)+".txt"), []byte("9,8,7"), 0o644)
	rec, err := s.Get(context.Background(), legacy)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Color != (domain.RGB{R: 9, G: 8, B: 7}) || !rec.LastPlacement.Equal(domain.Epoch) {
		t.Fatalf("unexpected legacy record %+v", rec)
	}
}

func TestFileClientStore_RejectsPathLikeIDs(t *testing.T) {
	s, err := NewFileClientStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(context.Background(), "../etc/passwd"); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestFileClientStore_CorruptRecordIsStorageError(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileClientStore(dir)
	id := domain.Identify("x")
	_ = os.WriteFile(filepath.Join(dir, string(id)+".txt"), []byte("garbage"), 0o644)

	if _, err := s.Get(context.Background(), id); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestRedisClientStore_HashLayout(t *testing.T) {
	s, mr := newRedisClientStore(t)
	id := domain.Identify("10.0.0.1")
	if err := domain.SetColor(context.Background(), s, id, domain.RGB{R: 255}); err != nil {
		t.Fatal(err)
	}
	if got := mr.HGet("test:client:"+string(id), "color"); got != "255,0,0" {
		t.Fatalf("unexpected color field %q", got)
	}
	if got := mr.HGet("test:client:"+string(id), "at"); got != "0.000000000" {
		t.Fatalf("unexpected at field %q", got)
	}
}

func TestRedisClientStore_ServerDownIsStorageError(t *testing.T) {
	s, mr := newRedisClientStore(t)
	mr.Close()

	if _, err := s.Get(context.Background(), "abc"); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if err := domain.SetColor(context.Background(), s, "abc", domain.RGB{}); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
