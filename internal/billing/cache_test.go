package billing

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/arogya-his/arogya-his/internal/tariff"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.GetBreakdown(ctx, "P1")
	require.NoError(t, err)
	require.False(t, ok)

	want := Breakdown{WardCharges: 1600, PharmacyCharges: 500, TotalCharges: 2100}
	require.NoError(t, cache.SetBreakdown(ctx, "P1", want))

	got, ok, err := cache.GetBreakdown(ctx, "P1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)

	require.NoError(t, cache.Invalidate(ctx, "P1"))
	_, ok, err = cache.GetBreakdown(ctx, "P1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetBreakdownServedFromCacheUntilInvalidated(t *testing.T) {
	repo := newMemoryBillingRepo()
	rates := &fakeRates{rates: map[tariff.Category]float64{tariff.CategoryWardGeneral: 800}}
	cache := newTestCache(t)
	svc := NewService(repo, rates, nil, cache, Config{NABHLocationID: 2}, nil)
	svc.WithNow(func() time.Time { return testNow })
	patient := seedPatient(repo, "P1", 1, "")
	repo.stays["P1"] = []WardStay{
		{PatientID: "P1", WardType: "General", TariffStandardID: 1, InDate: patient.AdmissionDate, OutDate: patient.DischargeDate},
	}

	first, err := svc.GetBreakdown(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, 1600.0, first.WardCharges)

	// Source rows change, but the cached snapshot is still served.
	repo.stays["P1"] = nil
	cached, err := svc.GetBreakdown(context.Background(), "P1")
	require.NoError(t, err)
	require.Equal(t, first, cached)

	require.NoError(t, cache.Invalidate(context.Background(), "P1"))
	fresh, err := svc.GetBreakdown(context.Background(), "P1")
	require.NoError(t, err)
	require.Zero(t, fresh.WardCharges)
}
