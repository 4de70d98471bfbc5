package partition

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/state"
)

var testKey = state.ChannelKey{DeviceID: "dev", Sensor: "imu", Channel: "accel_x"}

type fakeLister struct {
	calls map[format.StreamKind]int
	parts map[format.StreamKind]map[string]series.Partition
	err   map[format.StreamKind]error
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		calls: make(map[format.StreamKind]int),
		parts: make(map[format.StreamKind]map[string]series.Partition),
		err:   make(map[format.StreamKind]error),
	}
}

func (l *fakeLister) add(p series.Partition) {
	if l.parts[p.Kind] == nil {
		l.parts[p.Kind] = make(map[string]series.Partition)
	}
	l.parts[p.Kind][p.Descriptor] = p
}

func (l *fakeLister) ListPartitions(_ context.Context, kind format.StreamKind) (map[string]series.Partition, error) {
	l.calls[kind]++
	if err := l.err[kind]; err != nil {
		return nil, err
	}

	out := make(map[string]series.Partition)
	for d, p := range l.parts[kind] {
		out[d] = p
	}

	return out, nil
}

func notFound(code string) error {
	return &errs.APIError{Op: "list partitions", StatusCode: http.StatusNotFound, Code: code}
}

func timeSeriesPartition(rate series.SampleRate, start, end uint64) series.Partition {
	return series.Partition{
		Kind:       format.StreamTimeSeries,
		Descriptor: series.TimeSeriesDescriptor(rate),
		SampleRate: rate,
		Start:      start,
		End:        end,
	}
}

func TestTracker_RecordAvoidsRequery(t *testing.T) {
	lister := newFakeLister()
	rate := series.Hertz(10)
	lister.add(timeSeriesPartition(rate, 100, 12345))

	tr, err := NewTracker(testKey, lister)
	require.NoError(t, err)

	filter := series.Filter{Kind: format.StreamTimeSeries, SampleRate: &rate}
	ts, known, err := tr.LastTimestamp(context.Background(), filter)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, uint64(12345), ts)

	require.NoError(t, tr.Record(format.StreamTimeSeries, rate.String(), rate, series.HistogramShape{}, 20000, 99999))

	ts, known, err = tr.LastTimestamp(context.Background(), filter)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, uint64(99999), ts)

	assert.Equal(t, 1, lister.calls[format.StreamTimeSeries])
}

func TestTracker_LastTimestampFilters(t *testing.T) {
	lister := newFakeLister()
	lister.add(timeSeriesPartition(series.Hertz(10), 100, 500))
	lister.add(timeSeriesPartition(series.Seconds(1), 50, 900))
	shape := series.HistogramShape{BinStart: 0, BinSize: 1, NumBins: 4}
	lister.add(series.Partition{
		Kind:       format.StreamHistogram,
		Descriptor: series.HistogramDescriptor(series.Hertz(1), shape),
		SampleRate: series.Hertz(1),
		Shape:      shape,
		Start:      10,
		End:        2000,
	})

	tr, err := NewTracker(testKey, lister)
	require.NoError(t, err)
	ctx := context.Background()

	hz10 := series.Hertz(10)
	ts, known, err := tr.LastTimestamp(ctx, series.Filter{Kind: format.StreamTimeSeries, SampleRate: &hz10})
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, uint64(500), ts)

	ts, _, err = tr.LastTimestamp(ctx, series.Filter{Kind: format.StreamTimeSeries})
	require.NoError(t, err)
	assert.Equal(t, uint64(900), ts)

	ts, _, err = tr.LastTimestamp(ctx, series.Filter{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), ts)

	first, ok, err := tr.FirstTimestamp(ctx, series.Filter{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), first)

	other := series.HistogramShape{BinStart: 0, BinSize: 2, NumBins: 4}
	ts, known, err = tr.LastTimestamp(ctx, series.Filter{Kind: format.StreamHistogram, Shape: &other})
	require.NoError(t, err)
	assert.True(t, known)
	assert.Zero(t, ts)

	_, ok, err = tr.FirstTimestamp(ctx, series.Filter{Kind: format.StreamHistogram, Shape: &other})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, lister.calls[format.StreamTimeSeries])
	assert.Equal(t, 1, lister.calls[format.StreamHistogram])
}

func TestTracker_MissingChannelIsUnknown(t *testing.T) {
	for _, code := range []string{errs.CodeSensorNotFound, errs.CodeChannelNotFound} {
		t.Run(code, func(t *testing.T) {
			lister := newFakeLister()
			lister.err[format.StreamTimeSeries] = notFound(code)

			tr, err := NewTracker(testKey, lister)
			require.NoError(t, err)

			ts, known, err := tr.LastTimestamp(context.Background(), series.Filter{Kind: format.StreamTimeSeries})
			require.NoError(t, err)
			assert.False(t, known)
			assert.Zero(t, ts)

			// existence is re-checked on the next query
			_, _, err = tr.LastTimestamp(context.Background(), series.Filter{Kind: format.StreamTimeSeries})
			require.NoError(t, err)
			assert.Equal(t, 2, lister.calls[format.StreamTimeSeries])
		})
	}
}

func TestTracker_EmptyStreamIsKnown(t *testing.T) {
	lister := newFakeLister()
	lister.err[format.StreamTimeSeries] = notFound(errs.CodeTimeSeriesNotFound)
	lister.err[format.StreamHistogram] = notFound(errs.CodeHistogramNotFound)

	tr, err := NewTracker(testKey, lister)
	require.NoError(t, err)

	ts, known, err := tr.LastTimestamp(context.Background(), series.Filter{})
	require.NoError(t, err)
	assert.True(t, known)
	assert.Zero(t, ts)

	_, _, err = tr.LastTimestamp(context.Background(), series.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls[format.StreamTimeSeries])
	assert.Equal(t, 1, lister.calls[format.StreamHistogram])
}

func TestTracker_ListingErrorSurfaces(t *testing.T) {
	lister := newFakeLister()
	boom := &errs.APIError{Op: "list partitions", StatusCode: http.StatusBadGateway}
	lister.err[format.StreamTimeSeries] = boom

	tr, err := NewTracker(testKey, lister)
	require.NoError(t, err)

	_, _, err = tr.LastTimestamp(context.Background(), series.Filter{Kind: format.StreamTimeSeries})
	require.ErrorIs(t, err, errs.ErrServer)
}

func TestTracker_SeedsFromStore(t *testing.T) {
	store := state.NewMemoryStore()
	rate := series.Hertz(100)
	require.NoError(t, store.ReplacePartitions(testKey, format.StreamTimeSeries, map[string]state.PartitionRange{
		rate.String(): {Start: 1, End: 777},
		"garbage":     {Start: 1, End: 999999},
	}))

	lister := newFakeLister()
	tr, err := NewTracker(testKey, lister, WithStore(store))
	require.NoError(t, err)

	ts, known, err := tr.LastTimestamp(context.Background(), series.Filter{Kind: format.StreamTimeSeries, SampleRate: &rate})
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, uint64(777), ts)
	assert.Zero(t, lister.calls[format.StreamTimeSeries])
}

func TestTracker_MergesLocalRecordsIntoListing(t *testing.T) {
	store := state.NewMemoryStore()
	rate := series.Hertz(10)
	lister := newFakeLister()
	lister.add(timeSeriesPartition(rate, 100, 500))

	tr, err := NewTracker(testKey, lister, WithStore(store))
	require.NoError(t, err)

	// recorded before the first listing, e.g. the server listing lags
	require.NoError(t, tr.Record(format.StreamTimeSeries, rate.String(), rate, series.HistogramShape{}, 600, 800))

	ts, known, err := tr.LastTimestamp(context.Background(), series.Filter{Kind: format.StreamTimeSeries})
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, uint64(800), ts)

	parts, complete, err := store.Partitions(testKey, format.StreamTimeSeries)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, state.PartitionRange{Start: 100, End: 800}, parts[rate.String()])
}

func TestTracker_RecordMirrorsStore(t *testing.T) {
	store := state.NewMemoryStore()
	tr, err := NewTracker(testKey, newFakeLister(), WithStore(store))
	require.NoError(t, err)

	shape := series.HistogramShape{BinStart: -1, BinSize: 0.5, NumBins: 8}
	descriptor := series.HistogramDescriptor(series.Seconds(60), shape)
	require.NoError(t, tr.Record(format.StreamHistogram, descriptor, series.Seconds(60), shape, 300, 100))
	require.NoError(t, tr.Record(format.StreamHistogram, descriptor, series.Seconds(60), shape, 400, 500))

	parts, complete, err := store.Partitions(testKey, format.StreamHistogram)
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, state.PartitionRange{Start: 100, End: 500}, parts[descriptor])
}

func TestTracker_InvalidateForcesListing(t *testing.T) {
	store := state.NewMemoryStore()
	rate := series.Hertz(1)
	lister := newFakeLister()
	lister.add(timeSeriesPartition(rate, 1, 10))

	tr, err := NewTracker(testKey, lister, WithStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = tr.LastTimestamp(ctx, series.Filter{Kind: format.StreamTimeSeries})
	require.NoError(t, err)

	lister.add(timeSeriesPartition(rate, 1, 50))
	ts, _, err := tr.LastTimestamp(ctx, series.Filter{Kind: format.StreamTimeSeries})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), ts)

	require.NoError(t, tr.Invalidate())
	_, complete, err := store.Partitions(testKey, format.StreamTimeSeries)
	require.NoError(t, err)
	assert.False(t, complete)

	ts, _, err = tr.LastTimestamp(ctx, series.Filter{Kind: format.StreamTimeSeries})
	require.NoError(t, err)
	assert.Equal(t, uint64(50), ts)
	assert.Equal(t, 2, lister.calls[format.StreamTimeSeries])
}

func TestTracker_Partitions(t *testing.T) {
	lister := newFakeLister()
	lister.add(timeSeriesPartition(series.Seconds(5), 1, 2))
	lister.add(timeSeriesPartition(series.Hertz(10), 3, 4))

	tr, err := NewTracker(testKey, lister)
	require.NoError(t, err)

	parts, err := tr.Partitions(context.Background(), format.StreamTimeSeries)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "10 hertz", parts[0].Descriptor)
	assert.Equal(t, "5 seconds", parts[1].Descriptor)

	_, err = tr.Partitions(context.Background(), format.StreamKind(9))
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestNewTracker_RequiresLister(t *testing.T) {
	_, err := NewTracker(testKey, nil)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestListerFunc(t *testing.T) {
	want := errors.New("called")
	l := ListerFunc(func(context.Context, format.StreamKind) (map[string]series.Partition, error) {
		return nil, want
	})

	_, err := l.ListPartitions(context.Background(), format.StreamTimeSeries)
	require.ErrorIs(t, err, want)
}

func importedStore(t *testing.T) *state.MemoryStore {
	t.Helper()

	snap, err := state.ImportCacheJSON(testKey.DeviceID, []byte(`{
		"sensors": {"imu": {"channels": {"accel_x": {
			"timeseries_partitions": {"10 hertz": {"last_timestamp": 5000}}
		}}}}
	}`))
	require.NoError(t, err)

	store := state.NewMemoryStore()
	store.Restore(snap)

	return store
}

func TestTracker_ImportedCacheAnswersLastTimestamp(t *testing.T) {
	lister := newFakeLister()
	lister.add(timeSeriesPartition(series.Hertz(10), 1000, 5000))
	tr, err := NewTracker(testKey, lister, WithStore(importedStore(t)))
	require.NoError(t, err)

	ts, known, err := tr.LastTimestamp(context.Background(), series.Filter{Kind: format.StreamTimeSeries})
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, uint64(5000), ts)
	assert.Zero(t, lister.calls[format.StreamTimeSeries])
}

func TestTracker_ImportedCacheStartComesFromListing(t *testing.T) {
	lister := newFakeLister()
	lister.add(timeSeriesPartition(series.Hertz(10), 1000, 5000))
	store := importedStore(t)
	tr, err := NewTracker(testKey, lister, WithStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	first, ok, err := tr.FirstTimestamp(ctx, series.Filter{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), first)
	assert.Equal(t, 1, lister.calls[format.StreamTimeSeries])

	// resolved once, then answered locally
	first, _, err = tr.FirstTimestamp(ctx, series.Filter{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), first)
	assert.Equal(t, 1, lister.calls[format.StreamTimeSeries])

	parts, complete, err := store.Partitions(testKey, format.StreamTimeSeries)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, state.PartitionRange{Start: 1000, End: 5000}, parts["10 hertz"])
}

func TestTracker_ImportedCacheUnlistedKeepsUpperBound(t *testing.T) {
	lister := newFakeLister()
	tr, err := NewTracker(testKey, lister, WithStore(importedStore(t)))
	require.NoError(t, err)
	ctx := context.Background()

	first, ok, err := tr.FirstTimestamp(ctx, series.Filter{Kind: format.StreamTimeSeries})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(5000), first)

	_, _, err = tr.FirstTimestamp(ctx, series.Filter{Kind: format.StreamTimeSeries})
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls[format.StreamTimeSeries])
}
