package neural

import (
	"fmt"
	"sync"

	gonnx "github.com/advancedclimatesystems/gonnx"
	"gorgonia.org/tensor"

	"github.com/freeeve/blockfall/pkg/tetris"
)

// Default tensor names of an exported evaluator model.
const (
	DefaultONNXInput  = "features"
	DefaultONNXOutput = "score"
)

// ONNXEvaluator scores feature vectors with an ONNX model that maps a
// [1, NumFeatures] float32 tensor to a scalar. It is an alternative to the
// tuple-encoded Network for evaluators trained outside the engine.
type ONNXEvaluator struct {
	model  *gonnx.Model
	input  string
	output string
	mu     sync.Mutex
}

// NewONNXEvaluator loads the model at path. Empty tensor names fall back to
// DefaultONNXInput and DefaultONNXOutput.
func NewONNXEvaluator(path, input, output string) (*ONNXEvaluator, error) {
	model, err := gonnx.NewModelFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load onnx model %s: %w", path, err)
	}
	if input == "" {
		input = DefaultONNXInput
	}
	if output == "" {
		output = DefaultONNXOutput
	}
	return &ONNXEvaluator{model: model, input: input, output: output}, nil
}

// Evaluate runs the model on one feature vector.
func (e *ONNXEvaluator) Evaluate(features []float64) (float64, error) {
	if len(features) != tetris.NumFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(features), tetris.NumFeatures)
	}
	data := make([]float32, len(features))
	for i, v := range features {
		data[i] = float32(v)
	}
	in := tensor.New(
		tensor.WithShape(1, len(data)),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	)

	e.mu.Lock()
	outputs, err := e.model.Run(gonnx.Tensors{e.input: in})
	e.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("onnx run: %w", err)
	}

	out, ok := outputs[e.output]
	if !ok {
		return 0, fmt.Errorf("onnx output %q not found", e.output)
	}
	return firstScalar(out.Data())
}

func firstScalar(data any) (float64, error) {
	switch d := data.(type) {
	case []float32:
		if len(d) > 0 {
			return float64(d[0]), nil
		}
	case []float64:
		if len(d) > 0 {
			return d[0], nil
		}
	case float32:
		return float64(d), nil
	case float64:
		return d, nil
	default:
		return 0, fmt.Errorf("unexpected onnx output type %T", data)
	}
	return 0, fmt.Errorf("empty onnx output")
}
