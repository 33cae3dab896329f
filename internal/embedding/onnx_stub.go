//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ErrONNXUnavailable is returned when the binary was built without CGO.
var ErrONNXUnavailable = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXConfig configures an ONNXEmbedder.
type ONNXConfig struct {
	ModelPath  string
	ModelName  string
	Dimensions int
	MaxTokens  int
}

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns ErrONNXUnavailable.
func NewONNXEmbedder(_ ONNXConfig) (*ONNXEmbedder, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }
func (e *ONNXEmbedder) Model() string   { return "" }
func (e *ONNXEmbedder) Close() error    { return nil }
