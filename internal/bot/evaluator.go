package bot

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/bot/neural"
)

// LoadEvaluator picks the leaf evaluator: an ONNX model when onnxPath is
// set, else a weights export when weightsPath is set, else the built-in
// network.
func LoadEvaluator(weightsPath, onnxPath string) (Evaluator, error) {
	switch {
	case onnxPath != "":
		e, err := neural.NewONNXEvaluator(onnxPath, "", "")
		if err != nil {
			return nil, fmt.Errorf("load onnx model: %w", err)
		}
		log.Info().Str("path", onnxPath).Msg("Using ONNX evaluator")
		return e, nil
	case weightsPath != "":
		n, err := neural.LoadWeights(weightsPath)
		if err != nil {
			return nil, fmt.Errorf("load weights: %w", err)
		}
		log.Info().Str("path", weightsPath).Int("inputs", n.InputCount()).Msg("Using network weights")
		return n, nil
	default:
		return neural.DefaultNetwork(), nil
	}
}
