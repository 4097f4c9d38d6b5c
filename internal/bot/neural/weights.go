package neural

import (
	"encoding/json"
	"fmt"
	"os"
)

// weightsDoc is the JSON shape of a network export:
//
//	{"input_nodes":[-1,-2,-3],"output_nodes":[0],
//	 "node_evals":[[0,0.1,1.0,[[-1,0.5],[-2,-0.3]]]]}
//
// Each node eval is a positional tuple [node, bias, response, links] and each
// link a pair [source, weight].
type weightsDoc struct {
	InputNodes  []int64    `json:"input_nodes"`
	OutputNodes []int64    `json:"output_nodes"`
	NodeEvals   []NodeEval `json:"node_evals"`
}

// MarshalJSON encodes the link as [source, weight].
func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{l.Source, l.Weight})
}

// UnmarshalJSON decodes [source, weight].
func (l *Link) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("link: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("link: expected [source, weight], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &l.Source); err != nil {
		return fmt.Errorf("link source: %w", err)
	}
	if err := json.Unmarshal(raw[1], &l.Weight); err != nil {
		return fmt.Errorf("link weight: %w", err)
	}
	return nil
}

// MarshalJSON encodes the eval as [node, bias, response, links].
func (e NodeEval) MarshalJSON() ([]byte, error) {
	links := e.Links
	if links == nil {
		links = []Link{}
	}
	return json.Marshal([4]any{e.Node, e.Bias, e.Response, links})
}

// UnmarshalJSON decodes [node, bias, response, links].
func (e *NodeEval) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("node eval: %w", err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("node eval: expected [node, bias, response, links], got %d elements", len(raw))
	}
	fields := []struct {
		name string
		dst  any
	}{
		{"node", &e.Node},
		{"bias", &e.Bias},
		{"response", &e.Response},
		{"links", &e.Links},
	}
	for i, f := range fields {
		if err := json.Unmarshal(raw[i], f.dst); err != nil {
			return fmt.Errorf("node eval %s: %w", f.name, err)
		}
	}
	return nil
}

// ParseWeights decodes a network export and validates it.
func ParseWeights(data []byte) (*Network, error) {
	var doc weightsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse weights: %w", err)
	}
	return NewNetwork(doc.InputNodes, doc.OutputNodes, doc.NodeEvals)
}

// LoadWeights reads a network export from disk.
func LoadWeights(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	return ParseWeights(data)
}

// MarshalJSON encodes the network in the same format ParseWeights reads.
func (n *Network) MarshalJSON() ([]byte, error) {
	return json.Marshal(weightsDoc{
		InputNodes:  n.inputs,
		OutputNodes: n.outputs,
		NodeEvals:   n.evals,
	})
}
