// Package serialization encodes episode snapshots for checkpoint storage
// PRINCIPLES:
// - KISS: One pipeline, codec then compression
// - DRY: Shared by every checkpoint store
package serialization

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownFormat is returned for unsupported codec or compression names
var ErrUnknownFormat = errors.New("unknown serialization format")

// Codec turns values into bytes and back
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (msgpackCodec) Name() string                       { return "msgpack" }

// JSON returns the JSON codec
func JSON() Codec { return jsonCodec{} }

// MsgPack returns the MessagePack codec
func MsgPack() Codec { return msgpackCodec{} }

// CodecByName resolves "json" or "msgpack"
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSON(), nil
	case "msgpack", "":
		return MsgPack(), nil
	}
	return nil, fmt.Errorf("%w: codec %q", ErrUnknownFormat, name)
}

// Compression selects the compression stage
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression resolves a compression name. Empty means zstd.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(name)); c {
	case CompressionNone, CompressionGzip, CompressionZstd:
		return c, nil
	case "":
		return CompressionZstd, nil
	}
	return "", fmt.Errorf("%w: compression %q", ErrUnknownFormat, name)
}

// Pipeline encodes with a codec then compresses. It is safe for
// concurrent use.
type Pipeline struct {
	codec       Codec
	compression Compression
	zenc        *zstd.Encoder
	zdec        *zstd.Decoder
}

// NewPipeline builds a pipeline
func NewPipeline(codec Codec, compression Compression) (*Pipeline, error) {
	p := &Pipeline{codec: codec, compression: compression}
	if compression != CompressionZstd {
		return p, nil
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	p.zenc, p.zdec = enc, dec
	return p, nil
}

// Default is msgpack with zstd
func Default() *Pipeline {
	p, err := NewPipeline(MsgPack(), CompressionZstd)
	if err != nil {
		panic(err)
	}
	return p
}

// Name describes the pipeline, e.g. "msgpack+zstd"
func (p *Pipeline) Name() string {
	return p.codec.Name() + "+" + string(p.compression)
}

// Marshal encodes and compresses v
func (p *Pipeline) Marshal(v any) ([]byte, error) {
	data, err := p.codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", p.codec.Name(), err)
	}
	switch p.compression {
	case CompressionZstd:
		return p.zenc.EncodeAll(data, nil), nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return buf.Bytes(), nil
	}
	return data, nil
}

// Unmarshal decompresses and decodes data into v
func (p *Pipeline) Unmarshal(data []byte, v any) error {
	var err error
	switch p.compression {
	case CompressionZstd:
		data, err = p.zdec.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
	case CompressionGzip:
		r, gerr := gzip.NewReader(bytes.NewReader(data))
		if gerr != nil {
			return fmt.Errorf("gzip: %w", gerr)
		}
		defer r.Close()
		if data, err = io.ReadAll(r); err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
	}
	if err := p.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s decode: %w", p.codec.Name(), err)
	}
	return nil
}
