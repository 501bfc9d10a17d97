// Package codec encodes replicated property values to bytes.
//
// Every value is a one byte header (kind plus a compression flag) followed by
// a kind specific payload written with go-scale. Lists are plain
// concatenations, so a buffer holding several lists can be decoded one list
// at a time.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/golang/snappy"
	"github.com/spacemeshos/go-scale"
	"go.uber.org/zap/zapcore"
)

const flagCompressed = 0x80

var (
	// ErrUnknownKind is returned when a value header carries an unknown kind.
	ErrUnknownKind = errors.New("unknown value kind")
	// ErrValueTooLarge is returned when a value exceeds Config.MaxValueSize.
	ErrValueTooLarge = errors.New("value too large")
)

// Config of the value codec.
type Config struct {
	// CompressThreshold is the minimal size of string and bytes payloads that
	// are snappy compressed. Zero disables compression.
	CompressThreshold int `mapstructure:"compress-threshold"`
	// MaxValueSize bounds the decoded size of a single string or bytes value.
	MaxValueSize int `mapstructure:"max-value-size"`
}

// DefaultConfig for the codec.
func DefaultConfig() Config {
	return Config{
		CompressThreshold: 256,
		MaxValueSize:      1 << 20,
	}
}

func (cfg Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddInt("compress threshold", cfg.CompressThreshold)
	encoder.AddInt("max value size", cfg.MaxValueSize)
	return nil
}

// Codec encodes and decodes Values. It is safe for concurrent use.
type Codec struct {
	cfg Config
}

// Opt configures a Codec.
type Opt func(*Codec)

// WithConfig overwrites the default configuration.
func WithConfig(cfg Config) Opt {
	return func(c *Codec) {
		c.cfg = cfg
	}
}

// New creates a Codec.
func New(opts ...Opt) *Codec {
	c := &Codec{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var encoderPool = sync.Pool{
	New: func() interface{} {
		b := new(bytes.Buffer)
		b.Grow(64)
		return b
	},
}

func getEncoderBuffer() *bytes.Buffer {
	return encoderPool.Get().(*bytes.Buffer)
}

func putEncoderBuffer(b *bytes.Buffer) {
	b.Reset()
	encoderPool.Put(b)
}

// EncodeValue encodes a single value.
func (c *Codec) EncodeValue(v Value) ([]byte, error) {
	return c.EncodeValues([]Value{v})
}

// EncodeValues encodes values back to back.
func (c *Codec) EncodeValues(values []Value) ([]byte, error) {
	b := getEncoderBuffer()
	defer putEncoderBuffer(b)
	enc := scale.NewEncoder(b)
	for i, v := range values {
		if _, err := c.encode(enc, v); err != nil {
			return nil, fmt.Errorf("encode value %d: %w", i, err)
		}
	}
	buf := make([]byte, b.Len())
	copy(buf, b.Bytes())
	return buf, nil
}

// DecodeValue decodes a single value from the start of buf and returns the
// number of bytes consumed.
func (c *Codec) DecodeValue(buf []byte) (Value, int, error) {
	values, n, err := c.DecodeValues(buf, 1)
	if err != nil {
		return Value{}, n, err
	}
	return values[0], n, nil
}

// DecodeValues decodes exactly count values from the start of buf and returns
// the number of bytes consumed.
func (c *Codec) DecodeValues(buf []byte, count int) ([]Value, int, error) {
	dec := scale.NewDecoder(bytes.NewReader(buf))
	values := make([]Value, 0, count)
	total := 0
	for i := 0; i < count; i++ {
		v, n, err := c.decode(dec)
		total += n
		if err != nil {
			return nil, total, fmt.Errorf("decode value %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, total, nil
}

func (c *Codec) encode(enc *scale.Encoder, v Value) (int, error) {
	var total int
	header := byte(v.kind)
	var payload []byte
	if v.kind == KindString || v.kind == KindBytes {
		payload = v.raw
		if v.kind == KindString {
			payload = []byte(v.str)
		}
		if len(payload) > c.cfg.MaxValueSize {
			return 0, fmt.Errorf("%w: %d > %d", ErrValueTooLarge, len(payload), c.cfg.MaxValueSize)
		}
		if c.cfg.CompressThreshold > 0 && len(payload) >= c.cfg.CompressThreshold {
			if compressed := snappy.Encode(nil, payload); len(compressed) < len(payload) {
				payload = compressed
				header |= flagCompressed
			}
		}
	}
	{
		n, err := scale.EncodeByte(enc, header)
		if err != nil {
			return total, err
		}
		total += n
	}
	switch v.kind {
	case KindNil:
	case KindBool:
		n, err := scale.EncodeByte(enc, byte(v.num))
		if err != nil {
			return total, err
		}
		total += n
	case KindInt:
		n, err := scale.EncodeCompact64(enc, zigzag(v.num))
		if err != nil {
			return total, err
		}
		total += n
	case KindFloat:
		n, err := encodeFloat(enc, v.x)
		if err != nil {
			return total, err
		}
		total += n
	case KindVec2:
		for _, f := range [2]float64{v.x, v.y} {
			n, err := encodeFloat(enc, f)
			if err != nil {
				return total, err
			}
			total += n
		}
	case KindString, KindBytes:
		n, err := scale.EncodeByteSliceWithLimit(enc, payload, uint32(c.cfg.MaxValueSize))
		if err != nil {
			return total, err
		}
		total += n
	default:
		return total, fmt.Errorf("%w: %d", ErrUnknownKind, v.kind)
	}
	return total, nil
}

func (c *Codec) decode(dec *scale.Decoder) (Value, int, error) {
	var total int
	header, n, err := scale.DecodeByte(dec)
	total += n
	if err != nil {
		return Value{}, total, err
	}
	kind := Kind(header &^ flagCompressed)
	compressed := header&flagCompressed != 0
	if compressed && kind != KindString && kind != KindBytes {
		return Value{}, total, fmt.Errorf("%w: compressed %s", ErrUnknownKind, kind)
	}
	switch kind {
	case KindNil:
		return Nil(), total, nil
	case KindBool:
		b, n, err := scale.DecodeByte(dec)
		total += n
		if err != nil {
			return Value{}, total, err
		}
		return Bool(b != 0), total, nil
	case KindInt:
		u, n, err := scale.DecodeCompact64(dec)
		total += n
		if err != nil {
			return Value{}, total, err
		}
		return Int(unzigzag(u)), total, nil
	case KindFloat:
		f, n, err := decodeFloat(dec)
		total += n
		if err != nil {
			return Value{}, total, err
		}
		return Float(f), total, nil
	case KindVec2:
		x, n, err := decodeFloat(dec)
		total += n
		if err != nil {
			return Value{}, total, err
		}
		y, n, err := decodeFloat(dec)
		total += n
		if err != nil {
			return Value{}, total, err
		}
		return Vec2(x, y), total, nil
	case KindString, KindBytes:
		payload, n, err := scale.DecodeByteSliceWithLimit(dec, uint32(c.cfg.MaxValueSize))
		total += n
		if err != nil {
			return Value{}, total, err
		}
		if compressed {
			payload, err = c.decompress(payload)
			if err != nil {
				return Value{}, total, err
			}
		}
		if kind == KindString {
			return String(string(payload)), total, nil
		}
		return Bytes(payload), total, nil
	}
	return Value{}, total, fmt.Errorf("%w: %d", ErrUnknownKind, header)
}

func (c *Codec) decompress(payload []byte) ([]byte, error) {
	size, err := snappy.DecodedLen(payload)
	if err != nil {
		return nil, fmt.Errorf("snappy header: %w", err)
	}
	if size > c.cfg.MaxValueSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrValueTooLarge, size, c.cfg.MaxValueSize)
	}
	out, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	return out, nil
}

func encodeFloat(enc *scale.Encoder, f float64) (int, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	return scale.EncodeByteArray(enc, buf[:])
}

func decodeFloat(dec *scale.Decoder) (float64, int, error) {
	var buf [8]byte
	n, err := scale.DecodeByteArray(dec, buf[:])
	if err != nil {
		return 0, n, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), n, nil
}

func zigzag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
