package neural

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleWeights = `{
	"input_nodes": [-1, -2, -3],
	"output_nodes": [0],
	"node_evals": [
		[4, 0.05, 1.0, [[-1, -0.7], [-3, 0.2]]],
		[0, -0.1, 0.5, [[4, 1.5], [-2, -0.3]]]
	]
}`

func TestParseWeights(t *testing.T) {
	n, err := ParseWeights([]byte(sampleWeights))
	if err != nil {
		t.Fatal(err)
	}
	if n.InputCount() != 3 || n.OutputCount() != 1 {
		t.Fatalf("shape = %d in / %d out", n.InputCount(), n.OutputCount())
	}
	if len(n.evals) != 2 || n.evals[0].Node != 4 || n.evals[1].Links[0] != (Link{Source: 4, Weight: 1.5}) {
		t.Errorf("evals = %+v", n.evals)
	}
}

func TestWeights_RoundTrip(t *testing.T) {
	n, err := ParseWeights([]byte(sampleWeights))
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseWeights(data)
	if err != nil {
		t.Fatalf("reparse %s: %v", data, err)
	}
	in := []float64{1, 2, 3}
	a, _ := n.Activate(in)
	b, _ := back.Activate(in)
	if a[0] != b[0] {
		t.Errorf("round trip changed output: %v vs %v", a[0], b[0])
	}
}

func TestParseWeights_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		is   error
	}{
		{"not json", `{`, nil},
		{"short eval tuple", `{"input_nodes":[-1],"output_nodes":[0],"node_evals":[[0,0,1]]}`, nil},
		{"short link", `{"input_nodes":[-1],"output_nodes":[0],"node_evals":[[0,0,1,[[-1]]]]}`, nil},
		{"string bias", `{"input_nodes":[-1],"output_nodes":[0],"node_evals":[[0,"x",1,[]]]}`, nil},
		{"unknown source", `{"input_nodes":[-1],"output_nodes":[0],"node_evals":[[0,0,1,[[9,1]]]]}`, ErrUnknownNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWeights([]byte(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestLoadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	if err := os.WriteFile(path, []byte(sampleWeights), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWeights(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWeights(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
