//go:build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXOptions configures a local sentence-transformer model.
type ONNXOptions struct {
	ModelPath  string
	Model      string
	Dimensions int
	MaxTokens  int
	// OutputName selects the graph output. "last_hidden_state" ([1, seq, dims]) is
	// mean-pooled over attended tokens; any other name is read as a pooled [1, dims] output.
	OutputName string
	Tokenizer  Tokenizer
}

// ONNXEmbedder runs a sentence-embedding model such as all-MiniLM-L6-v2 through ONNX
// Runtime. Tensors are allocated once and inference is serialized on a mutex.
type ONNXEmbedder struct {
	mu      sync.Mutex
	opts    ONNXOptions
	session *ort.AdvancedSession
	inputs  [3]*ort.Tensor[int64]
	output  *ort.Tensor[float32]
	pooled  bool
}

var onnxInputNames = []string{"input_ids", "attention_mask", "token_type_ids"}

// NewONNXEmbedder loads the model, initializing the ONNX Runtime environment on first use.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	if opts.Dimensions <= 0 || opts.MaxTokens < 3 {
		return nil, fmt.Errorf("onnx: invalid dimensions %d or max tokens %d", opts.Dimensions, opts.MaxTokens)
	}
	if opts.OutputName == "" {
		opts.OutputName = "last_hidden_state"
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = NewHashTokenizer()
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{opts: opts, pooled: opts.OutputName != "last_hidden_state"}
	seq := ort.NewShape(1, int64(opts.MaxTokens))
	for i := range e.inputs {
		t, err := ort.NewEmptyTensor[int64](seq)
		if err != nil {
			e.destroy()
			return nil, fmt.Errorf("failed to create %s tensor: %w", onnxInputNames[i], err)
		}
		e.inputs[i] = t
	}
	outShape := ort.NewShape(1, int64(opts.MaxTokens), int64(opts.Dimensions))
	if e.pooled {
		outShape = ort.NewShape(1, int64(opts.Dimensions))
	}
	out, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	e.output = out

	session, err := ort.NewAdvancedSession(opts.ModelPath, onnxInputNames, []string{opts.OutputName},
		[]ort.ArbitraryTensor{e.inputs[0], e.inputs[1], e.inputs[2]}, []ort.ArbitraryTensor{e.output}, nil)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", opts.ModelPath, err)
	}
	e.session = session
	return e, nil
}

// Embed runs one inference and returns the L2-normalized sentence vector.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, wrapError("onnx", errors.New("embedder closed"), 0)
	}

	enc := e.opts.Tokenizer.Encode(text, e.opts.MaxTokens)
	copy(e.inputs[0].GetData(), enc.InputIDs)
	copy(e.inputs[1].GetData(), enc.AttentionMask)
	copy(e.inputs[2].GetData(), enc.TokenTypeIDs)
	if err := e.session.Run(); err != nil {
		return nil, wrapError("onnx", fmt.Errorf("inference failed: %w", err), 0)
	}

	dims := e.opts.Dimensions
	vec := make([]float32, dims)
	if e.pooled {
		copy(vec, e.output.GetData())
	} else {
		meanPool(vec, e.output.GetData(), enc.AttentionMask)
	}
	NormalizeL2(vec)
	return vec, nil
}

// meanPool averages the token rows of hidden whose mask is set into dst.
func meanPool(dst, hidden []float32, mask []int64) {
	dims := len(dst)
	var n float32
	for tok, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[tok*dims : (tok+1)*dims]
		for i, v := range row {
			dst[i] += v
		}
		n++
	}
	if n == 0 {
		return
	}
	for i := range dst {
		dst[i] /= n
	}
}

func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

func (e *ONNXEmbedder) Dimensions() int { return e.opts.Dimensions }

func (e *ONNXEmbedder) Model() string { return e.opts.Model }

// Close releases the session and tensors. Embed fails afterwards.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroy()
}

func (e *ONNXEmbedder) destroy() error {
	var errs []error
	if e.session != nil {
		errs = append(errs, e.session.Destroy())
		e.session = nil
	}
	for i, t := range e.inputs {
		if t != nil {
			errs = append(errs, t.Destroy())
			e.inputs[i] = nil
		}
	}
	if e.output != nil {
		errs = append(errs, e.output.Destroy())
		e.output = nil
	}
	return errors.Join(errs...)
}
