// Package serialization encodes scene documents to bytes and back. A
// Serializer pairs a codec (json, yaml or msgpack) with an optional
// compression layer (gzip or zstd); ForPath picks both from a file name.
package serialization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec turns values into bytes and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Name() string
}

// CompressionType names a compression algorithm.
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
)

// Config selects the codec and compression of a Serializer.
type Config struct {
	Codec       Codec
	Compression CompressionType
}

// Serializer encodes then compresses, and decompresses then decodes.
type Serializer struct {
	config Config
}

// New returns a serializer. A nil codec means JSON.
func New(config Config) *Serializer {
	if config.Codec == nil {
		config.Codec = NewJSONCodec()
	}
	if config.Compression == "" {
		config.Compression = CompressionNone
	}
	return &Serializer{config: config}
}

// Config returns the serializer's settings.
func (s *Serializer) Config() Config { return s.config }

// Serialize encodes and compresses v.
func (s *Serializer) Serialize(v any) ([]byte, error) {
	data, err := s.config.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%s encoding failed: %w", s.config.Codec.Name(), err)
	}
	data, err = s.compress(data)
	if err != nil {
		return nil, fmt.Errorf("%s compression failed: %w", s.config.Compression, err)
	}
	return data, nil
}

// Deserialize decompresses and decodes data into v.
func (s *Serializer) Deserialize(data []byte, v any) error {
	data, err := s.decompress(data)
	if err != nil {
		return fmt.Errorf("%s decompression failed: %w", s.config.Compression, err)
	}
	if err := s.config.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("%s decoding failed: %w", s.config.Codec.Name(), err)
	}
	return nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", s.config.Compression)
	}
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unknown compression %q", s.config.Compression)
	}
}

// ForPath picks the serializer for a file name: ".json", ".yaml", ".yml" or
// ".msgpack", optionally followed by ".gz" or ".zst".
func ForPath(path string) (*Serializer, error) {
	name := strings.ToLower(filepath.Base(path))
	config := Config{Compression: CompressionNone}
	switch ext := filepath.Ext(name); ext {
	case ".gz":
		config.Compression = CompressionGzip
		name = strings.TrimSuffix(name, ext)
	case ".zst":
		config.Compression = CompressionZstd
		name = strings.TrimSuffix(name, ext)
	}

	switch ext := filepath.Ext(name); ext {
	case ".json":
		config.Codec = NewJSONCodec()
	case ".yaml", ".yml":
		config.Codec = NewYAMLCodec()
	case ".msgpack":
		config.Codec = NewMsgPackCodec()
	default:
		return nil, fmt.Errorf("cannot tell the format of %q from its extension", path)
	}
	return New(config), nil
}

// WriteFile serializes v into path using the format its name implies.
func WriteFile(path string, v any) error {
	s, err := ForPath(path)
	if err != nil {
		return err
	}
	data, err := s.Serialize(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile deserializes path into v using the format its name implies.
func ReadFile(path string, v any) error {
	s, err := ForPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.Deserialize(data, v)
}

// JSONCodec writes indented JSON.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Name() string { return "json" }

// YAMLCodec implements YAML serialization.
type YAMLCodec struct{}

func (c *YAMLCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *YAMLCodec) Decode(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

func (c *YAMLCodec) Name() string { return "yaml" }

// MsgPackCodec implements MessagePack serialization.
type MsgPackCodec struct{}

func (c *MsgPackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *MsgPackCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (c *MsgPackCodec) Name() string { return "msgpack" }

func NewJSONCodec() Codec    { return &JSONCodec{} }
func NewYAMLCodec() Codec    { return &YAMLCodec{} }
func NewMsgPackCodec() Codec { return &MsgPackCodec{} }
