// Package neural holds the leaf evaluators used by the search: a small
// feed-forward network described by an ordered list of node evaluations,
// and an ONNX-backed alternative.
package neural

import (
	"errors"
	"fmt"
	"math"

	"github.com/freeeve/blockfall/pkg/tetris"
)

var (
	ErrDimensionMismatch = errors.New("input count does not match network inputs")
	ErrUnknownNode       = errors.New("link references a node with no value")
	ErrNoOutputs         = errors.New("network has no output nodes")
)

// Link is one weighted incoming connection of a node.
type Link struct {
	Source int64
	Weight float64
}

// NodeEval computes one node: tanh(Bias + Response * sum(weight * source)).
type NodeEval struct {
	Node     int64
	Bias     float64
	Response float64
	Links    []Link
}

// Network is a feed-forward network evaluated in the order its node
// evaluations were supplied. It does no topological sorting; a link may only
// read an input node, an output node (zero until computed) or a node
// evaluated earlier in the list.
//
// A Network is immutable after construction. Activate keeps its scratch
// values local to the call, so one Network may be shared freely.
type Network struct {
	inputs  []int64
	outputs []int64
	evals   []NodeEval
}

// NewNetwork validates the evaluation order and builds a Network.
func NewNetwork(inputs, outputs []int64, evals []NodeEval) (*Network, error) {
	known := make(map[int64]bool, len(inputs)+len(outputs)+len(evals))
	for _, id := range inputs {
		known[id] = true
	}
	for _, id := range outputs {
		known[id] = true
	}
	for i, ev := range evals {
		for _, l := range ev.Links {
			if !known[l.Source] {
				return nil, fmt.Errorf("%w: node %d (eval %d) reads %d", ErrUnknownNode, ev.Node, i, l.Source)
			}
		}
		known[ev.Node] = true
	}

	n := &Network{
		inputs:  append([]int64(nil), inputs...),
		outputs: append([]int64(nil), outputs...),
		evals:   make([]NodeEval, len(evals)),
	}
	for i, ev := range evals {
		ev.Links = append([]Link(nil), ev.Links...)
		n.evals[i] = ev
	}
	return n, nil
}

// InputCount returns the number of input nodes.
func (n *Network) InputCount() int { return len(n.inputs) }

// OutputCount returns the number of output nodes.
func (n *Network) OutputCount() int { return len(n.outputs) }

// Activate assigns inputs positionally to the input nodes, runs every node
// evaluation in order and returns the output node values.
func (n *Network) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(n.inputs) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(inputs), len(n.inputs))
	}
	values := make(map[int64]float64, len(n.inputs)+len(n.outputs)+len(n.evals))
	for _, id := range n.outputs {
		values[id] = 0
	}
	for i, id := range n.inputs {
		values[id] = inputs[i]
	}
	for _, ev := range n.evals {
		sum := 0.0
		for _, l := range ev.Links {
			sum += values[l.Source] * l.Weight
		}
		values[ev.Node] = math.Tanh(ev.Bias + ev.Response*sum)
	}

	out := make([]float64, len(n.outputs))
	for i, id := range n.outputs {
		out[i] = values[id]
	}
	return out, nil
}

// Evaluate returns the first output for the given feature vector.
func (n *Network) Evaluate(features []float64) (float64, error) {
	if len(n.outputs) == 0 {
		return 0, ErrNoOutputs
	}
	out, err := n.Activate(features)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Input node ids of DefaultNetwork, in tetris.Features.Vector order.
const (
	NodeHoles     int64 = -1
	NodeBumpiness int64 = -2
	NodeHeight    int64 = -3
	NodeScore     int64 = 0
)

// Hand-tuned linear weights used before any network has been trained.
const (
	defaultHolesWeight     = -0.35663
	defaultBumpinessWeight = -0.184483
	defaultHeightWeight    = -0.510066
	defaultResponse        = 0.02
)

// DefaultNetwork returns a single tanh node over the three board features.
// It keeps the engine playable before weights are loaded.
func DefaultNetwork() *Network {
	n, err := NewNetwork(
		[]int64{NodeHoles, NodeBumpiness, NodeHeight},
		[]int64{NodeScore},
		[]NodeEval{{
			Node:     NodeScore,
			Response: defaultResponse,
			Links: []Link{
				{Source: NodeHoles, Weight: defaultHolesWeight},
				{Source: NodeBumpiness, Weight: defaultBumpinessWeight},
				{Source: NodeHeight, Weight: defaultHeightWeight},
			},
		}},
	)
	if err != nil {
		panic(err)
	}
	if n.InputCount() != tetris.NumFeatures {
		panic("neural: default network does not match the feature vector")
	}
	return n
}
