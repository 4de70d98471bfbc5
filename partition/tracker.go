package partition

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/internal/options"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/state"
)

// Lister lists the partitions of one stream kind of a channel from the server.
// Errors are expected to be *errs.APIError for non-200 responses.
type Lister interface {
	ListPartitions(ctx context.Context, kind format.StreamKind) (map[string]series.Partition, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context, kind format.StreamKind) (map[string]series.Partition, error)

// ListPartitions calls f.
func (f ListerFunc) ListPartitions(ctx context.Context, kind format.StreamKind) (map[string]series.Partition, error) {
	return f(ctx, kind)
}

var kinds = [...]format.StreamKind{format.StreamTimeSeries, format.StreamHistogram}

type config struct {
	store  state.Store
	logger *slog.Logger
}

// Option configures a Tracker.
type Option = options.Option[*config]

// WithStore mirrors the tracker into store and seeds it from there.
func WithStore(store state.Store) Option {
	return options.NoError(func(c *config) {
		c.store = store
	})
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// kindState is what the tracker knows about one stream kind.
type kindState struct {
	parts    map[string]series.Partition
	complete bool
	// missing is set when this load's listing reported the sensor or channel
	// as not found. It is never stored.
	missing bool
	// openStart holds descriptors whose Start is only an upper bound, as
	// for ranges imported from a bare last_timestamp.
	openStart map[string]bool
}

func (ks *kindState) rangeOf(descriptor string) state.PartitionRange {
	p := ks.parts[descriptor]

	return state.PartitionRange{Start: p.Start, End: p.End, StartUnknown: ks.openStart[descriptor]}
}

// Tracker tracks the partitions of one channel. It is safe for concurrent use.
//
// All of its state lives in the store, so trackers sharing a store see each
// other's records, listings and deletions.
type Tracker struct {
	key    state.ChannelKey
	lister Lister
	store  state.Store
	logger *slog.Logger

	mu sync.Mutex
}

// NewTracker creates a tracker for the channel identified by key.
//
// Parameters:
//   - key: Channel the tracker answers for
//   - lister: Issues the partition listing requests
//   - opts: Optional store and logger; a fresh MemoryStore is used by default
//
// Returns:
//   - *Tracker: Tracker sharing its partition state through the store
//   - error: Validation error if lister is nil, or an option error
func NewTracker(key state.ChannelKey, lister Lister, opts ...Option) (*Tracker, error) {
	if lister == nil {
		return nil, errs.Validationf("partition lister is required")
	}

	cfg := &config{logger: slog.Default()}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.store == nil {
		cfg.store = state.NewMemoryStore()
	}

	return &Tracker{
		key:    key,
		lister: lister,
		store:  cfg.store,
		logger: cfg.logger,
	}, nil
}

// Key returns the channel the tracker belongs to.
func (t *Tracker) Key() state.ChannelKey {
	return t.key
}

// LastTimestamp returns the largest End over the partitions matching filter.
//
// known is false when the sensor or channel does not exist on the server, so
// nothing can be said about its data. A channel that exists without matching
// data yields 0 with known set.
//
// A kind is listed at most once per store: after the first listing, appends
// widen the stored ranges through Record and no further request is made.
//
// Parameters:
//   - ctx: Context for the listing request, if one is needed
//   - filter: Stream kind and optional sample rate or histogram shape
//
// Returns:
//   - ts: Largest End among the matching partitions, 0 if none match
//   - known: Whether the sensor and channel exist
//   - err: Listing or store error
func (t *Tracker) LastTimestamp(ctx context.Context, filter series.Filter) (ts uint64, known bool, err error) {
	parts, known, err := t.matching(ctx, filter, false)
	if err != nil || !known {
		return 0, known, err
	}

	for _, p := range parts {
		ts = max(ts, p.End)
	}

	return ts, true, nil
}

// FirstTimestamp returns the smallest Start over the partitions matching
// filter. ok is false when nothing matches. Partitions whose start is not
// known locally are listed from the server first.
func (t *Tracker) FirstTimestamp(ctx context.Context, filter series.Filter) (ts uint64, ok bool, err error) {
	parts, _, err := t.matching(ctx, filter, true)
	if err != nil || len(parts) == 0 {
		return 0, false, err
	}

	ts = parts[0].Start
	for _, p := range parts[1:] {
		ts = min(ts, p.Start)
	}

	return ts, true, nil
}

// Partitions returns the partitions of one kind sorted by descriptor. A
// missing sensor or channel yields no partitions. Units are only set by a
// call that lists from the server; Channel.ListPartitions always sets them.
func (t *Tracker) Partitions(ctx context.Context, kind format.StreamKind) ([]series.Partition, error) {
	if kind != format.StreamTimeSeries && kind != format.StreamHistogram {
		return nil, errs.Validationf("unknown stream kind %d", kind)
	}

	parts, _, err := t.matching(ctx, series.Filter{Kind: kind}, true)

	return parts, err
}

// Record widens the partition identified by kind and descriptor to include
// [first, last] after a successful append. No request is made.
//
// A partition the store has never seen is created with exactly [first, last].
//
// Parameters:
//   - kind: Stream kind that was appended to
//   - descriptor: Canonical descriptor of the sample rate or histogram shape
//   - rate: Sample rate of the partition
//   - shape: Histogram shape of the partition, zero for time series
//   - first: Smallest timestamp of the appended batch
//   - last: Largest timestamp of the appended batch
//
// Returns:
//   - error: Store error if the widened range could not be saved
func (t *Tracker) Record(kind format.StreamKind, descriptor string, rate series.SampleRate, shape series.HistogramShape, first, last uint64) error {
	if first > last {
		first, last = last, first
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ks, err := t.stateLocked(kind)
	if err != nil {
		return err
	}

	p, ok := ks.parts[descriptor]
	if !ok {
		p = series.Partition{Kind: kind, Descriptor: descriptor, SampleRate: rate, Start: first, End: last}
		if kind == format.StreamHistogram {
			p.Shape = shape
		}
	} else {
		p.Start = min(p.Start, first)
		p.End = max(p.End, last)
	}
	ks.parts[descriptor] = p

	err = t.store.SetPartition(state.PartitionKey{ChannelKey: t.key, Kind: kind, Descriptor: descriptor},
		ks.rangeOf(descriptor))
	if err != nil {
		return fmt.Errorf("record %s partition %q: %w", kind, descriptor, err)
	}

	return nil
}

// Invalidate forgets everything known about the channel. The next query
// lists from the server again.
func (t *Tracker) Invalidate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.store.ForgetChannel(t.key)
}

// matching returns the partitions selected by filter, loading and listing
// kinds as needed. needStart forces a listing while any start is only an
// upper bound. known is false if any listed kind reported the channel
// missing.
func (t *Tracker) matching(ctx context.Context, filter series.Filter, needStart bool) ([]series.Partition, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []series.Partition
	for _, kind := range kinds {
		if filter.Kind != 0 && filter.Kind != kind {
			continue
		}

		ks, err := t.completeLocked(ctx, kind, needStart)
		if err != nil {
			return nil, false, err
		}
		if ks.missing {
			return nil, false, nil
		}

		for _, p := range ks.parts {
			if filter.Match(p) {
				out = append(out, p)
			}
		}
	}

	slices.SortFunc(out, func(a, b series.Partition) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Descriptor, b.Descriptor))
	})

	return out, true, nil
}

// stateLocked loads the state of kind from the store. The caller holds t.mu.
func (t *Tracker) stateLocked(kind format.StreamKind) (*kindState, error) {
	ranges, complete, err := t.store.Partitions(t.key, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s partitions: %w", kind, err)
	}

	ks := &kindState{
		parts:     make(map[string]series.Partition, len(ranges)),
		complete:  complete,
		openStart: make(map[string]bool),
	}
	for descriptor, r := range ranges {
		d, err := series.ParseDescriptor(kind, descriptor)
		if err != nil {
			t.logger.Warn("ignoring stored partition with invalid descriptor",
				"sensor", t.key.Sensor,
				"channel", t.key.Channel,
				"descriptor", descriptor,
				"error", err,
			)

			continue
		}
		ks.parts[descriptor] = series.Partition{
			Kind:       kind,
			Descriptor: descriptor,
			Start:      r.Start,
			End:        r.End,
			SampleRate: d.SampleRate,
			Shape:      d.Shape,
		}
		if r.StartUnknown {
			ks.openStart[descriptor] = true
		}
	}

	return ks, nil
}

// completeLocked returns the state of kind after making sure it reflects a
// full server listing, and with needStart also known starts. The caller
// holds t.mu.
func (t *Tracker) completeLocked(ctx context.Context, kind format.StreamKind, needStart bool) (*kindState, error) {
	ks, err := t.stateLocked(kind)
	if err != nil {
		return nil, err
	}
	if ks.complete && (!needStart || len(ks.openStart) == 0) {
		return ks, nil
	}

	listed, err := t.lister.ListPartitions(ctx, kind)
	switch {
	case err == nil:
	case errs.HasCode(err, errs.CodeSensorNotFound), errs.HasCode(err, errs.CodeChannelNotFound):
		ks.missing = true
		return ks, nil
	case errs.HasCode(err, errs.CodeTimeSeriesNotFound), errs.HasCode(err, errs.CodeHistogramNotFound):
		listed = nil
	default:
		return nil, fmt.Errorf("list %s partitions: %w", kind, err)
	}

	merged := make(map[string]series.Partition, len(listed)+len(ks.parts))
	for descriptor, p := range listed {
		merged[descriptor] = p
	}
	for descriptor, local := range ks.parts {
		p, ok := merged[descriptor]
		if !ok {
			merged[descriptor] = local
			continue
		}
		if !ks.openStart[descriptor] {
			p.Start = min(p.Start, local.Start)
		}
		p.End = max(p.End, local.End)
		merged[descriptor] = p
	}

	// one listing is the best answer there is; an unlisted open start stays
	// at its upper bound
	clear(ks.openStart)
	ks.parts = merged
	ks.complete = true
	ks.missing = false

	ranges := make(map[string]state.PartitionRange, len(merged))
	for descriptor := range merged {
		ranges[descriptor] = ks.rangeOf(descriptor)
	}
	if err := t.store.ReplacePartitions(t.key, kind, ranges); err != nil {
		t.logger.Warn("failed to persist partitions",
			"sensor", t.key.Sensor,
			"channel", t.key.Channel,
			"kind", kind.String(),
			"error", err,
		)
	}

	t.logger.Debug("listed partitions",
		"sensor", t.key.Sensor,
		"channel", t.key.Channel,
		"kind", kind.String(),
		"count", len(merged),
	)

	return ks, nil
}
