package history

import (
	"context"
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"myfuelportal-backend/lib/sqliteutil"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr[T any](value T) *T {
	return &value
}

func openTestStore(t testing.TB) Store {
	store, db, err := Open(context.Background(), sqliteutil.Database{File: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return store
}

func TestPushPull(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	full := fuelportal.Reading{
		Time:  time.Unix(1736150400, 0),
		Level: ptr(49),
		Tank: fuelportal.Tank{
			TankSize:      ptr(240),
			FuelRemaining: ptr(118),
			Price:         ptr(3.809),
			DeliveryMode:  ptr(fuelportal.DeliveryMonitored),
			LastDelivery:  &fuelportal.Date{Year: 2024, Month: time.December, Day: 22},
			NextDelivery:  &fuelportal.Date{Year: 2025, Month: time.February, Day: 1},
			DataLastRead:  &fuelportal.Date{Year: 2025, Month: time.January, Day: 5},
		},
	}
	sparse := fuelportal.Reading{
		Time: time.Unix(1736236800, 0),
		Tank: fuelportal.Tank{
			FuelRemaining: ptr(110),
		},
	}
	require.NoError(t, store.Push(ctx, full))
	require.NoError(t, store.Push(ctx, sparse))

	readings, err := store.Pull(ctx, 0)
	require.NoError(t, err)
	diff := cmp.Diff([]fuelportal.Reading{sparse, full}, readings)
	if diff != "" {
		t.Fatal(diff)
	}

	readings, err = store.Pull(ctx, 1)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	require.Equal(t, sparse.Time, readings[0].Time)
	require.Nil(t, readings[0].Level)
	require.Equal(t, []string{
		"tank_size",
		"price",
		"delivery_mode",
		"last_delivery",
		"next_delivery",
		"data_last_read",
	}, readings[0].Tank.Missing())
}

func TestLatestAndPrune(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, ok, err := store.Latest(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	base := time.Unix(1736150400, 0)
	for i := 0; i < 5; i++ {
		err := store.Push(ctx, fuelportal.Reading{
			Time:  base.Add(time.Duration(i) * time.Hour),
			Level: ptr(50 - i),
		})
		require.NoError(t, err)
	}

	latest, ok, err := store.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ptr(46), latest.Level)

	deleted, err := store.Prune(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	readings, err := store.Pull(ctx, 0)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	require.Equal(t, ptr(48), readings[2].Level)
}
