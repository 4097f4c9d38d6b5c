package neural

import (
	"errors"
	"math"
	"testing"

	"github.com/freeeve/blockfall/pkg/tetris"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestActivate_SingleNode(t *testing.T) {
	n, err := NewNetwork([]int64{-1, -2}, []int64{0}, []NodeEval{
		{Node: 0, Bias: 0.1, Response: 2, Links: []Link{{-1, 0.5}, {-2, -0.25}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := n.Activate([]float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	want := math.Tanh(0.1 + 2*(0.5*1-0.25*2))
	if len(out) != 1 || !almostEqual(out[0], want) {
		t.Errorf("Activate = %v, want [%v]", out, want)
	}
}

func TestActivate_HiddenLayerInSuppliedOrder(t *testing.T) {
	n, err := NewNetwork([]int64{-1}, []int64{0, 1}, []NodeEval{
		{Node: 5, Bias: 0, Response: 1, Links: []Link{{-1, 1}}},
		{Node: 0, Bias: 0, Response: 1, Links: []Link{{5, 2}}},
		{Node: 1, Bias: 0.5, Response: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := n.Activate([]float64{0.3})
	if err != nil {
		t.Fatal(err)
	}
	hidden := math.Tanh(0.3)
	if !almostEqual(out[0], math.Tanh(2*hidden)) {
		t.Errorf("out[0] = %v, want %v", out[0], math.Tanh(2*hidden))
	}
	if !almostEqual(out[1], math.Tanh(0.5)) {
		t.Errorf("out[1] = %v, want %v", out[1], math.Tanh(0.5))
	}
}

func TestActivate_OutputReadBeforeComputedIsZero(t *testing.T) {
	n, err := NewNetwork([]int64{-1}, []int64{0}, []NodeEval{
		{Node: 7, Bias: 0.2, Response: 1, Links: []Link{{0, 3}}},
		{Node: 0, Bias: 0, Response: 1, Links: []Link{{7, 1}, {-1, 1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		out, err := n.Activate([]float64{0.4})
		if err != nil {
			t.Fatal(err)
		}
		want := math.Tanh(math.Tanh(0.2) + 0.4)
		if !almostEqual(out[0], want) {
			t.Fatalf("call %d: out = %v, want %v", i, out[0], want)
		}
	}
}

func TestActivate_DimensionMismatch(t *testing.T) {
	n := DefaultNetwork()
	for _, in := range [][]float64{nil, {1, 2}, {1, 2, 3, 4}} {
		if _, err := n.Activate(in); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Activate(%v) error = %v, want ErrDimensionMismatch", in, err)
		}
	}
}

func TestNewNetwork_UnknownNode(t *testing.T) {
	_, err := NewNetwork([]int64{-1}, []int64{0}, []NodeEval{
		{Node: 0, Response: 1, Links: []Link{{3, 1}}},
		{Node: 3, Response: 1, Links: []Link{{-1, 1}}},
	})
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("error = %v, want ErrUnknownNode", err)
	}
}

func TestEvaluate_NoOutputs(t *testing.T) {
	n, err := NewNetwork([]int64{-1}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.Evaluate([]float64{1}); !errors.Is(err, ErrNoOutputs) {
		t.Errorf("error = %v, want ErrNoOutputs", err)
	}
}

func TestDefaultNetwork_PrefersCleanerBoards(t *testing.T) {
	n := DefaultNetwork()
	if n.InputCount() != tetris.NumFeatures {
		t.Fatalf("inputs = %d, want %d", n.InputCount(), tetris.NumFeatures)
	}
	clean, err := n.Evaluate(tetris.Features{AggregateHeight: 10}.Vector())
	if err != nil {
		t.Fatal(err)
	}
	messy, err := n.Evaluate(tetris.Features{Holes: 3, Bumpiness: 6, AggregateHeight: 10}.Vector())
	if err != nil {
		t.Fatal(err)
	}
	if clean <= messy {
		t.Errorf("clean board scored %v, messy %v", clean, messy)
	}
}
