package tpi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/blockfall/pkg/tetris"
)

// Info represents a single "info" line emitted by the engine after a search.
type Info struct {
	Depth  int
	Nodes  int
	Score  float64
	TTHits int
}

// SearchResult holds the output of a Go command: the info lines, any error
// lines, and the chosen placement with the actions that reach it.
type SearchResult struct {
	None    bool
	X, Y    int
	Rot     int
	Actions []tetris.Action
	Infos   []Info
	Errors  []string
}

// Move returns the placement for kind k.
func (r *SearchResult) Move(k tetris.Kind) tetris.Move {
	return tetris.Move{Kind: k, X: r.X, Y: r.Y, Rot: r.Rot}
}

// GameResult is the summary of a "playgame" command.
type GameResult struct {
	Score int64
	Lines int
	Moves int
}

// EngineID holds the engine identification received during handshake.
type EngineID struct {
	Name            string
	Author          string
	ProtocolVersion int
}

// EngineOption describes a configuration option advertised by the engine.
type EngineOption struct {
	Name    string
	Type    string
	Default string
	Min     string
	Max     string
	Vars    []string
}

// Verify replays the reported actions for the current piece of pos and
// checks they lock at the reported placement.
func Verify(rules *tetris.Rules, pos *tetris.Position, r *SearchResult) error {
	if r.None {
		return errors.New("tpi: no move to verify")
	}
	m := r.Move(pos.Current)
	end, err := rules.Replay(&pos.Board, pos.Current, r.Actions)
	if err != nil {
		return fmt.Errorf("tpi: verify: %w", err)
	}
	if end != (tetris.Pose{X: m.X, Y: m.Y, Rot: m.Rot}) {
		return fmt.Errorf("tpi: verify: actions end at %d %d %d, engine reported %d %d %d",
			end.X, end.Y, end.Rot, m.X, m.Y, m.Rot)
	}
	if !rules.IsLegal(&pos.Board, m) {
		return fmt.Errorf("tpi: verify: %d %d %d is not a legal placement", m.X, m.Y, m.Rot)
	}
	return nil
}

// parseInfo parses an "info" line from the engine into an Info struct.
// Fields not present in the line are left as zero values.
func parseInfo(line string) Info {
	var info Info
	tokens := strings.Fields(line)
	for i := 1; i+1 < len(tokens); i += 2 {
		v := tokens[i+1]
		switch tokens[i] {
		case "depth":
			info.Depth, _ = strconv.Atoi(v)
		case "nodes":
			info.Nodes, _ = strconv.Atoi(v)
		case "score":
			info.Score, _ = strconv.ParseFloat(v, 64)
		case "tthits":
			info.TTHits, _ = strconv.Atoi(v)
		}
	}
	return info
}

// parseBestMove fills sr from "bestmove <x> <y> <rot> <actions>" or
// "bestmove none".
func parseBestMove(line string, sr *SearchResult) error {
	tokens := strings.Fields(line)
	if len(tokens) == 2 && tokens[1] == "none" {
		sr.None = true
		return nil
	}
	if len(tokens) != 5 {
		return fmt.Errorf("tpi: malformed bestmove %q", line)
	}
	var nums [3]int
	for i := range nums {
		n, err := strconv.Atoi(tokens[i+1])
		if err != nil {
			return fmt.Errorf("tpi: malformed bestmove %q: %w", line, err)
		}
		nums[i] = n
	}
	sr.X, sr.Y, sr.Rot = nums[0], nums[1], nums[2]
	if tokens[4] == "-" {
		sr.Actions = nil
		return nil
	}
	actions, err := tetris.ParseActions(tokens[4])
	if err != nil {
		return fmt.Errorf("tpi: malformed bestmove %q: %w", line, err)
	}
	sr.Actions = actions
	return nil
}

// parseGameResult parses "gameresult score <s> lines <l> moves <m>". It
// returns nil for "gameresult none".
func parseGameResult(line string) (*GameResult, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 2 && tokens[1] == "none" {
		return nil, nil
	}
	if len(tokens) != 7 || tokens[1] != "score" || tokens[3] != "lines" || tokens[5] != "moves" {
		return nil, fmt.Errorf("tpi: malformed gameresult %q", line)
	}
	score, err1 := strconv.ParseInt(tokens[2], 10, 64)
	lines, err2 := strconv.Atoi(tokens[4])
	moves, err3 := strconv.Atoi(tokens[6])
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, fmt.Errorf("tpi: malformed gameresult %q: %w", line, err)
	}
	return &GameResult{Score: score, Lines: lines, Moves: moves}, nil
}

// parseEngineOption parses an "option" line from the engine handshake.
// Format: option name <id> type <type> [default <x>] [min <x>] [max <x>] [var <x> ...]
func parseEngineOption(line string) EngineOption {
	var opt EngineOption
	tokens := strings.Fields(line)

	for i := 1; i+1 < len(tokens); i++ {
		switch tokens[i] {
		case "name":
			i++
			opt.Name = tokens[i]
		case "type":
			i++
			opt.Type = tokens[i]
		case "default":
			i++
			opt.Default = tokens[i]
		case "min":
			i++
			opt.Min = tokens[i]
		case "max":
			i++
			opt.Max = tokens[i]
		case "var":
			i++
			opt.Vars = append(opt.Vars, tokens[i])
		}
	}
	return opt
}
