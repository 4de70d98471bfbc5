package state

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"

	"github.com/sensorcloud-go/sensorcloud/compress"
	"github.com/sensorcloud-go/sensorcloud/endian"
	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/internal/hash"
	"github.com/sensorcloud-go/sensorcloud/internal/options"
)

// Encoding selects the serialization of a snapshot payload.
type Encoding uint8

const (
	// EncodingJSON is the cache-file compatible JSON form.
	EncodingJSON Encoding = 0x1
	// EncodingCBOR is deterministic CBOR (RFC 8949 core deterministic encoding).
	EncodingCBOR Encoding = 0x2
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "JSON"
	case EncodingCBOR:
		return "CBOR"
	default:
		return "Unknown"
	}
}

const (
	blobMagic    = "SCST"
	blobVersion  = 1
	headerSize   = len(blobMagic) + 3
	checksumSize = 8
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error

	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("state: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("state: CBOR decoder initialization failed: " + err.Error())
	}
}

type marshalConfig struct {
	encoding    Encoding
	compression format.CompressionType
}

// MarshalOption configures Marshal.
type MarshalOption = options.Option[*marshalConfig]

// WithEncoding selects the payload serialization. The default is EncodingJSON.
func WithEncoding(e Encoding) MarshalOption {
	return options.New(func(c *marshalConfig) error {
		if e != EncodingJSON && e != EncodingCBOR {
			return errs.Validationf("unknown snapshot encoding %d", e)
		}
		c.encoding = e

		return nil
	})
}

// WithCompression selects the payload compression. The default is none.
func WithCompression(t format.CompressionType) MarshalOption {
	return options.New(func(c *marshalConfig) error {
		if _, err := compress.GetCodec(t); err != nil {
			return fmt.Errorf("%w: %w", errs.ErrValidation, err)
		}
		c.compression = t

		return nil
	})
}

// Marshal serializes snap into a checksummed blob.
func Marshal(snap Snapshot, opts ...MarshalOption) ([]byte, error) {
	cfg := &marshalConfig{encoding: EncodingJSON, compression: format.CompressionNone}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	var (
		payload []byte
		err     error
	)
	switch cfg.encoding {
	case EncodingCBOR:
		payload, err = cborEnc.Marshal(snap)
	default:
		payload, err = json.Marshal(snap)
	}
	if err != nil {
		return nil, fmt.Errorf("state: encode %s snapshot: %w", cfg.encoding, err)
	}

	codec, err := compress.GetCodec(cfg.compression)
	if err != nil {
		return nil, err
	}
	payload, err = codec.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("state: compress snapshot: %w", err)
	}

	engine := endian.Network()
	blob := make([]byte, 0, headerSize+len(payload)+checksumSize)
	blob = append(blob, blobMagic...)
	blob = append(blob, blobVersion, byte(cfg.encoding), byte(cfg.compression))
	blob = append(blob, payload...)
	blob = engine.AppendUint64(blob, hash.Checksum(blob))

	return blob, nil
}

// Unmarshal verifies and decodes a blob produced by Marshal.
func Unmarshal(blob []byte) (Snapshot, error) {
	if len(blob) < headerSize+checksumSize {
		return Snapshot{}, errs.Formatf("snapshot of %d bytes is shorter than its header", len(blob))
	}
	if string(blob[:len(blobMagic)]) != blobMagic {
		return Snapshot{}, errs.Formatf("snapshot has bad magic %q", blob[:len(blobMagic)])
	}

	body := blob[:len(blob)-checksumSize]
	want := endian.Network().Uint64(blob[len(blob)-checksumSize:])
	if got := hash.Checksum(body); got != want {
		return Snapshot{}, errs.Formatf("snapshot checksum mismatch: stored %016x, computed %016x", want, got)
	}

	version := blob[len(blobMagic)]
	if version != blobVersion {
		return Snapshot{}, errs.Formatf("unsupported snapshot version %d", version)
	}
	encoding := Encoding(blob[len(blobMagic)+1])
	compression := format.CompressionType(blob[len(blobMagic)+2])

	codec, err := compress.GetCodec(compression)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", errs.ErrFormat, err)
	}
	payload, err := codec.Decompress(body[headerSize:])
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: snapshot payload: %w", errs.ErrFormat, err)
	}

	var snap Snapshot
	switch encoding {
	case EncodingJSON:
		err = json.Unmarshal(payload, &snap)
	case EncodingCBOR:
		err = cborDec.Unmarshal(payload, &snap)
	default:
		return Snapshot{}, errs.Formatf("unknown snapshot encoding %d", encoding)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode %s snapshot: %w", errs.ErrFormat, encoding, err)
	}

	return snap, nil
}

// ImportCacheJSON decodes a bare cache-file JSON document, as written by the
// other SensorCloud SDKs, into a snapshot of deviceID. Comments and trailing
// commas are tolerated. Partitions that only carry a "last_timestamp" are
// imported with that value as their end and an unknown start.
//
// The cache files hold what their SDK learned from full listings, so every
// kind present in the file is imported as complete and answers
// LastTimestamp without another listing.
func ImportCacheJSON(deviceID string, data []byte) (Snapshot, error) {
	type legacyPartition struct {
		Start         uint64 `json:"start"`
		End           uint64 `json:"end"`
		LastTimestamp uint64 `json:"last_timestamp"`
	}
	type legacyChannel struct {
		TimeSeries map[string]legacyPartition `json:"timeseries_partitions"`
		Histogram  map[string]legacyPartition `json:"histogram_partitions"`
	}
	var doc struct {
		Server  string `json:"server"`
		Token   string `json:"token"`
		Sensors map[string]struct {
			Channels map[string]legacyChannel `json:"channels"`
		} `json:"sensors"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: cache file: %w", errs.ErrFormat, err)
	}

	convert := func(in map[string]legacyPartition) map[string]PartitionRange {
		if len(in) == 0 {
			return nil
		}
		out := make(map[string]PartitionRange, len(in))
		for desc, p := range in {
			r := PartitionRange{Start: p.Start, End: p.End}
			if r.Start == 0 && r.End == 0 && p.LastTimestamp > 0 {
				r = PartitionRange{Start: p.LastTimestamp, End: p.LastTimestamp, StartUnknown: true}
			}
			out[desc] = r
		}

		return out
	}

	snap := Snapshot{DeviceID: deviceID, Server: doc.Server, Token: doc.Token}
	for sensorName, sensor := range doc.Sensors {
		if snap.Sensors == nil {
			snap.Sensors = make(map[string]SensorSnapshot)
		}
		ss := SensorSnapshot{Channels: make(map[string]ChannelSnapshot, len(sensor.Channels))}
		for channelName, ch := range sensor.Channels {
			ss.Channels[channelName] = ChannelSnapshot{
				TimeSeriesPartitions: convert(ch.TimeSeries),
				HistogramPartitions:  convert(ch.Histogram),
				TimeSeriesComplete:   len(ch.TimeSeries) > 0,
				HistogramComplete:    len(ch.Histogram) > 0,
			}
		}
		snap.Sensors[sensorName] = ss
	}

	return snap, nil
}
