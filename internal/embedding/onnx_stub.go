//go:build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXOptions configures a local sentence-transformer model.
type ONNXOptions struct {
	ModelPath  string
	Model      string
	Dimensions int
	MaxTokens  int
	OutputName string
	Tokenizer  Tokenizer
}

// ONNXEmbedder cannot be constructed without cgo.
type ONNXEmbedder struct{}

var errNoONNX = errors.New("ONNX embedder requires cgo and the onnxruntime shared library")

func NewONNXEmbedder(ONNXOptions) (*ONNXEmbedder, error) { return nil, errNoONNX }

func (*ONNXEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, errNoONNX }

func (*ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errNoONNX
}

func (*ONNXEmbedder) Dimensions() int { return 0 }
func (*ONNXEmbedder) Model() string   { return "" }
func (*ONNXEmbedder) Close() error    { return nil }
