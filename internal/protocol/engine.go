// Package protocol implements the engine side of TPI, the line-oriented
// text protocol a controller uses to drive the search engine over a pipe.
//
// Every command is one line; responses are one or more lines. Anything the
// engine cannot act on is answered with "error <message>" and leaves the
// loaded position and network untouched.
package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/bot/neural"
	"github.com/freeeve/blockfall/pkg/tetris"
)

// ProtocolVersion is reported during the handshake.
const ProtocolVersion = 1

// Engine identity reported during the handshake.
const (
	EngineName   = "blockfall"
	EngineAuthor = "blockfall authors"
)

// maxLine bounds a single command; weights exports are the longest lines.
const maxLine = 4 << 20

// Engine holds the state one protocol session mutates: rule set, evaluator,
// search options, current position and the searcher built from them.
type Engine struct {
	rulesCfg tetris.RulesConfig
	rules    *tetris.Rules
	eval     bot.Evaluator
	opts     bot.Options
	searcher *bot.Searcher
	pos      tetris.Position
	seed     int64

	out *bufio.Writer
}

// NewEngine builds an engine writing responses to out.
func NewEngine(cfg tetris.RulesConfig, eval bot.Evaluator, opts bot.Options, seed int64, out io.Writer) (*Engine, error) {
	rules := tetris.NewRules(cfg)
	s, err := bot.NewSearcher(rules, eval, opts)
	if err != nil {
		return nil, err
	}
	return &Engine{
		rulesCfg: cfg,
		rules:    rules,
		eval:     eval,
		opts:     opts,
		searcher: s,
		pos:      tetris.EmptyPosition(rules, tetris.None, tetris.None),
		seed:     seed,
		out:      bufio.NewWriter(out),
	}, nil
}

// Run reads commands from in until "quit", end of input or ctx is done.
func (e *Engine) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		quit := e.Handle(ctx, scanner.Text())
		if err := e.out.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// Handle executes one command line and reports whether it was "quit".
// Responses are buffered; Run flushes them after every command.
func (e *Engine) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	log.Debug().Str("cmd", cmd).Msg("TPI command")

	var err error
	switch cmd {
	case "tpi":
		e.handshake()
	case "isready":
		e.println("readyok")
	case "newgame":
		e.newGame()
	case "setoption":
		err = e.setOption(rest)
	case "weights":
		err = e.loadWeights(rest)
	case "position":
		err = e.setPosition(rest)
	case "peek":
		e.println("position " + tetris.Encode(&e.pos))
	case "go":
		err = e.goSearch()
	case "playgame":
		err = e.playGame(ctx, rest)
	case "quit":
		return true
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		log.Warn().Err(err).Str("cmd", cmd).Msg("TPI command failed")
		e.println("error " + err.Error())
	}
	return false
}

func (e *Engine) println(s string) {
	e.out.WriteString(s)
	e.out.WriteByte('\n')
}

func (e *Engine) handshake() {
	e.println("id name " + EngineName)
	e.println("id author " + EngineAuthor)
	e.println(fmt.Sprintf("option name Depth type spin default %d min 1 max %d", bot.DefaultDepth, bot.MaxDepth))
	e.println(fmt.Sprintf("option name TTCapacity type spin default %d min 1 max %d", bot.DefaultTTCapacity, 1<<24))
	e.println(fmt.Sprintf("option name Randomizer type combo default %s var %s var %s var %s",
		tetris.PolicyNES, tetris.PolicyNES, tetris.PolicyNoRepeat, tetris.PolicyWeighted))
	e.println("option name Seed type spin default 0")
	e.println(fmt.Sprintf("protocol_version %d", ProtocolVersion))
	e.println("tpiok")
}

func (e *Engine) newGame() {
	e.searcher.Reset()
	e.pos = tetris.EmptyPosition(e.rules, tetris.None, tetris.None)
}

// rebuild swaps in a searcher for new rules, evaluator or options. On error
// the previous searcher stays in place.
func (e *Engine) rebuild(cfg tetris.RulesConfig, eval bot.Evaluator, opts bot.Options) error {
	rules := e.rules
	if cfg != e.rulesCfg {
		rules = tetris.NewRules(cfg)
	}
	s, err := bot.NewSearcher(rules, eval, opts)
	if err != nil {
		return err
	}
	e.rulesCfg, e.rules, e.eval, e.opts, e.searcher = cfg, rules, eval, opts, s
	return nil
}

func (e *Engine) setOption(args string) error {
	tokens := strings.Fields(args)
	if len(tokens) != 4 || tokens[0] != "name" || tokens[2] != "value" {
		return errors.New("usage: setoption name <name> value <value>")
	}
	name, value := tokens[1], tokens[3]
	cfg, opts := e.rulesCfg, e.opts
	switch strings.ToLower(name) {
	case "depth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("depth: %w", err)
		}
		opts.Depth = n
	case "ttcapacity":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("ttcapacity: invalid value %q", value)
		}
		opts.TTCapacity = n
	case "randomizer":
		p, err := tetris.ParseRandomizerPolicy(value)
		if err != nil {
			return err
		}
		cfg.Randomizer.Policy = p
	case "seed":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		e.seed = n
		return nil
	default:
		return fmt.Errorf("unknown option %q", name)
	}
	return e.rebuild(cfg, e.eval, opts)
}

func (e *Engine) loadWeights(data string) error {
	net, err := neural.ParseWeights([]byte(data))
	if err != nil {
		return err
	}
	return e.rebuild(e.rulesCfg, net, e.opts)
}

func (e *Engine) setPosition(tpn string) error {
	pos, err := tetris.Decode(e.rules, tpn)
	if err != nil {
		return err
	}
	e.pos = pos
	return nil
}

func (e *Engine) goSearch() error {
	d, ok, err := e.searcher.BestMove(e.pos)
	if err != nil {
		e.println("bestmove none")
		return err
	}
	if !ok {
		e.println("bestmove none")
		return nil
	}
	e.println(FormatInfo(d))
	e.println(FormatBestMove(d))
	return nil
}

func (e *Engine) playGame(ctx context.Context, args string) error {
	maxMoves, seed := bot.DefaultMaxMoves, e.seed
	tokens := strings.Fields(args)
	if len(tokens) > 2 {
		e.println("gameresult none")
		return errors.New("usage: playgame [maxmoves] [seed]")
	}
	if len(tokens) >= 1 {
		n, err := strconv.Atoi(tokens[0])
		if err != nil || n < 1 {
			e.println("gameresult none")
			return fmt.Errorf("maxmoves: invalid value %q", tokens[0])
		}
		maxMoves = n
	}
	if len(tokens) == 2 {
		n, err := strconv.ParseInt(tokens[1], 10, 64)
		if err != nil {
			e.println("gameresult none")
			return fmt.Errorf("seed: %w", err)
		}
		seed = n
	}

	res, err := e.searcher.PlayGame(ctx, e.pos, bot.NewRand(seed), maxMoves, nil)
	if err != nil {
		e.println("gameresult none")
		return err
	}
	e.println(fmt.Sprintf("gameresult score %d lines %d moves %d", res.Score, res.Lines, res.Moves))
	e.pos = tetris.EmptyPosition(e.rules, tetris.None, tetris.None)
	return nil
}

// FormatInfo renders the search statistics line.
func FormatInfo(d bot.Decision) string {
	return fmt.Sprintf("info depth %d nodes %d score %s tthits %d",
		d.Depth, d.Nodes, strconv.FormatFloat(d.Score, 'g', -1, 64), d.TTHits)
}

// FormatBestMove renders "bestmove <x> <y> <rot> <actions>". An empty
// action list is written as "-".
func FormatBestMove(d bot.Decision) string {
	actions := tetris.FormatActions(d.Actions)
	if actions == "" {
		actions = "-"
	}
	return fmt.Sprintf("bestmove %d %d %d %s", d.Move.X, d.Move.Y, d.Move.Rot, actions)
}
