package gas

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/katalvlaran/kernelbp/core"
)

// Codec serializes a batch of partial accumulators for shipping between
// partitions.
type Codec[A any] interface {
	Encode(partials map[core.VertexID]A) ([]byte, error)
	Decode(data []byte) (map[core.VertexID]A, error)
}

// GobCodec encodes batches with encoding/gob. A must be gob-encodable
// (exported fields, no empty structs).
type GobCodec[A any] struct{}

// Encode implements Codec.
func (GobCodec[A]) Encode(partials map[core.VertexID]A) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(partials); err != nil {
		return nil, fmt.Errorf("gas: gob encode: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode implements Codec.
func (GobCodec[A]) Decode(data []byte) (map[core.VertexID]A, error) {
	out := make(map[core.VertexID]A)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
		return nil, fmt.Errorf("gas: gob decode: %w", err)
	}

	return out, nil
}
