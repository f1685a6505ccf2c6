//go:build !cgo

package embedder

import (
	"context"
	"errors"
)

// ErrFastEmbedUnavailable is returned by binaries built without cgo,
// which cannot load the ONNX runtime.
var ErrFastEmbedUnavailable = errors.New("fastembed: not available in builds without cgo, use the hashing or ollama provider")

// FastEmbedder is a stand-in for builds without cgo.
type FastEmbedder struct{}

// NewFastEmbedder always fails without cgo.
func NewFastEmbedder(_ Config) (*FastEmbedder, error) {
	return nil, ErrFastEmbedUnavailable
}

func (f *FastEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrFastEmbedUnavailable
}

func (f *FastEmbedder) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrFastEmbedUnavailable
}

func (f *FastEmbedder) ModelInfo() ModelInfo {
	return ModelInfo{Provider: "fastembed", Local: true}
}

func (f *FastEmbedder) Health(_ context.Context) error {
	return ErrFastEmbedUnavailable
}

func (f *FastEmbedder) Close() error {
	return nil
}
