package bot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/freeeve/blockfall/internal/bot/neural"
)

func TestLoadEvaluator(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "weights.json")
	os.WriteFile(good, []byte(`{"input_nodes":[-1,-2,-3],"output_nodes":[0],"node_evals":[[0,0,1,[[-1,-1]]]]}`), 0644)
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"input_nodes":`), 0644)

	tests := []struct {
		name    string
		weights string
		onnx    string
		wantErr bool
	}{
		{name: "default"},
		{name: "weights", weights: good},
		{name: "bad weights", weights: bad, wantErr: true},
		{name: "missing weights", weights: filepath.Join(dir, "nope.json"), wantErr: true},
		{name: "missing onnx", onnx: filepath.Join(dir, "nope.onnx"), weights: good, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := LoadEvaluator(tt.weights, tt.onnx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if _, ok := e.(*neural.Network); !ok {
				t.Errorf("evaluator = %T, want *neural.Network", e)
			}
			if _, err := e.Evaluate([]float64{1, 2, 3}); err != nil {
				t.Errorf("Evaluate: %v", err)
			}
		})
	}
}
