package properties

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"ifcserver/config"
	"ifcserver/db"
	"ifcserver/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	instance, err := db.OpenSQLite(filepath.Join(t.TempDir(), "properties.db"))
	require.NoError(t, err)
	require.NoError(t, instance.AutoMigrate(&models.PropertyRecord{}))
	sqlDB, err := instance.DB()
	require.NoError(t, err)
	// A single connection serializes writers on SQLite
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return instance
}

// testStores runs fn against every Store implementation
func testStores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("db", func(t *testing.T) { fn(t, NewDBStore(openTestDB(t))) })
}

func attrs(id int64, name string) models.Attributes {
	return models.Attributes{
		"expressID": models.Int(id),
		"type":      models.String("IFCWALL"),
		"Name":      models.String(name),
	}
}

func TestStore_PutGet(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, 1, 42, attrs(42, "Wall")))

		rec, err := s.Get(ctx, 1, 42)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), rec.ModelID)
		assert.Equal(t, int64(42), rec.ExpressID)
		assert.True(t, attrs(42, "Wall").Equal(rec.Properties))
		assert.NotZero(t, rec.ID)
		assert.NotZero(t, rec.CreatedAt)

		_, err = s.Get(ctx, 1, 43)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, 2, 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_IdempotentUpsert(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, 1, 7, attrs(7, "Old")))
		first, err := s.Get(ctx, 1, 7)
		require.NoError(t, err)

		require.NoError(t, s.Put(ctx, 1, 7, attrs(7, "New")))
		require.NoError(t, s.Put(ctx, 1, 7, attrs(7, "New")))

		rec, err := s.Get(ctx, 1, 7)
		require.NoError(t, err)
		assert.True(t, attrs(7, "New").Equal(rec.Properties))

		list, err := s.ListByModel(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, first.ID, list[0].ID, "an upsert keeps the row")
	})
}

func TestStore_BatchEquivalence(t *testing.T) {
	batch := []models.PropertyRecord{
		{ModelID: 1, ExpressID: 3, Properties: attrs(3, "a")},
		{ModelID: 1, ExpressID: 1, Properties: attrs(1, "b")},
		{ModelID: 1, ExpressID: 3, Properties: attrs(3, "c")},
		{ModelID: 2, ExpressID: 1, Properties: attrs(1, "d")},
	}
	collect := func(t *testing.T, s Store) map[string]models.Attributes {
		result := map[string]models.Attributes{}
		for _, modelID := range []uint64{1, 2} {
			list, err := s.ListByModel(context.Background(), modelID)
			require.NoError(t, err)
			for _, rec := range list {
				result[rec.Key()] = rec.Properties
			}
		}
		return result
	}

	testStores(t, func(t *testing.T, batched Store) {
		sequential := NewMemoryStore()
		for _, rec := range batch {
			require.NoError(t, sequential.Put(context.Background(), rec.ModelID, rec.ExpressID, rec.Properties))
		}
		require.NoError(t, batched.PutBatch(context.Background(), batch))

		want := collect(t, sequential)
		got := collect(t, batched)
		require.Len(t, got, 3)
		for key, props := range want {
			assert.True(t, props.Equal(got[key]), key)
		}
		assert.Equal(t, models.String("c"), got["1-3"]["Name"], "last write wins")
	})
}

func TestStore_EmptyBatch(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.PutBatch(context.Background(), nil))
		require.NoError(t, s.Put(context.Background(), 1, 1, nil))
		rec, err := s.Get(context.Background(), 1, 1)
		require.NoError(t, err)
		assert.Empty(t, rec.Properties)
	})
}

func TestStore_LargeBatch(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, n := range []int{249, 250, 1000} {
			records := make([]models.PropertyRecord, n)
			for i := range records {
				records[i] = models.PropertyRecord{ModelID: uint64(n), ExpressID: int64(i + 1), Properties: attrs(int64(i+1), "wall")}
			}
			require.NoError(t, s.PutBatch(ctx, records), "batch of %d", n)
			list, err := s.ListByModel(ctx, uint64(n))
			require.NoError(t, err)
			assert.Len(t, list, n)
		}
	})
}

func TestDBStore_chunkSize(t *testing.T) {
	s := NewDBStore(openTestDB(t))
	assert.Equal(t, 249, s.chunkSize())
	assert.LessOrEqual(t, s.chunkSize()*recordColumns, sqliteMaxVariables)
}

func TestStore_ListAndDeleteByModel(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, id := range []int64{30, 10, 20} {
			require.NoError(t, s.Put(ctx, 1, id, attrs(id, "m1")))
		}
		require.NoError(t, s.Put(ctx, 2, 10, attrs(10, "m2")))

		list, err := s.ListByModel(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []int64{10, 20, 30}, []int64{list[0].ExpressID, list[1].ExpressID, list[2].ExpressID})

		require.NoError(t, s.DeleteByModel(ctx, 1))
		list, err = s.ListByModel(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, list)
		_, err = s.Get(ctx, 1, 10)
		assert.ErrorIs(t, err, ErrNotFound)

		rec, err := s.Get(ctx, 2, 10)
		require.NoError(t, err, "other models are untouched")
		assert.Equal(t, models.String("m2"), rec.Properties["Name"])

		require.NoError(t, s.DeleteByModel(ctx, 1), "deleting nothing is fine")
		require.NoError(t, s.DeleteByModel(ctx, 99))
	})
}

func TestStore_ConcurrentPut(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := int64(0); i < 25; i++ {
					// Every writer also hits the shared ids 0..4
					id := i
					if i >= 5 {
						id = int64(w*100) + i
					}
					assert.NoError(t, s.Put(ctx, 1, id, attrs(id, fmt.Sprintf("w%d", w))))
				}
			}(w)
		}
		wg.Wait()

		list, err := s.ListByModel(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, list, 5+8*20)
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	original := attrs(1, "Wall")
	require.NoError(t, s.Put(ctx, 1, 1, original))
	original["Name"] = models.String("changed")

	rec, err := s.Get(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.String("Wall"), rec.Properties["Name"])
	rec.Properties["Name"] = models.String("changed again")

	rec, err = s.Get(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.String("Wall"), rec.Properties["Name"])
}

func TestNew(t *testing.T) {
	s, err := New(config.PropertyStoreMemory, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(config.PropertyStoreDB, openTestDB(t))
	require.NoError(t, err)
	assert.IsType(t, &DBStore{}, s)

	_, err = New(config.PropertyStoreDB, nil)
	assert.Error(t, err)
	_, err = New("redis", nil)
	assert.Error(t, err)
}

func Test_dedupe(t *testing.T) {
	in := []models.PropertyRecord{
		{ModelID: 1, ExpressID: 1, Properties: attrs(1, "a")},
		{ModelID: 1, ExpressID: 2, Properties: attrs(2, "b")},
		{ModelID: 1, ExpressID: 1, Properties: attrs(1, "c")},
	}
	out := dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ExpressID)
	assert.Equal(t, models.String("c"), out[0].Properties["Name"])
	assert.Equal(t, int64(2), out[1].ExpressID)
}
