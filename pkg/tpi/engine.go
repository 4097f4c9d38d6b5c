// Package tpi provides a Go client for engines speaking TPI, the line
// protocol of the blockfall engine. It manages the engine subprocess,
// handles the handshake, and parses search and game results.
package tpi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrEngine wraps an "error <message>" reply from the engine.
var ErrEngine = errors.New("tpi: engine error")

// maxLine bounds one line read from the engine.
const maxLine = 1 << 20

// Engine wraps a TPI-compatible engine subprocess. Commands go to stdin;
// a single reader goroutine forwards stdout lines to the caller.
type Engine struct {
	path string
	args []string

	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string

	mu     sync.Mutex
	closed bool
	exited chan struct{}

	// Handshake results populated during Init.
	ID      EngineID
	Options []EngineOption
}

// NewEngine creates a new Engine pointing to the given binary path.
// The engine process is not started until Init is called.
func NewEngine(path string, args ...string) *Engine {
	return &Engine{
		path: path,
		args: args,
	}
}

// Init starts the engine subprocess and performs the TPI handshake
// (tpi -> id/option/tpiok, isready -> readyok). The provided context
// controls the overall timeout for the handshake.
func (e *Engine) Init(ctx context.Context) error {
	if err := e.start(); err != nil {
		return fmt.Errorf("tpi: start engine: %w", err)
	}

	if err := e.handshake(ctx); err != nil {
		e.Close()
		return fmt.Errorf("tpi: handshake: %w", err)
	}

	return nil
}

// SetOption sends a "setoption" command to the engine.
func (e *Engine) SetOption(name, value string) {
	e.send(fmt.Sprintf("setoption name %s value %s", name, value))
}

// IsReady sends "isready" and blocks until "readyok" is received or the
// context is canceled. Use this to synchronize after SetOption or Position.
func (e *Engine) IsReady(ctx context.Context) error {
	e.send("isready")
	_, err := e.readUntil(ctx, func(line string) bool { return line == "readyok" })
	return err
}

// NewGame sends "newgame" to reset the engine's internal state.
func (e *Engine) NewGame() {
	e.send("newgame")
}

// Position sends "position <tpn>".
func (e *Engine) Position(tpn string) {
	e.send("position " + tpn)
}

// LoadWeights sends a network export. The JSON is compacted onto one line.
func (e *Engine) LoadWeights(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return fmt.Errorf("tpi: weights: %w", err)
	}
	e.send("weights " + buf.String())
	return nil
}

// Peek asks the engine for its current position.
func (e *Engine) Peek(ctx context.Context) (string, error) {
	e.send("peek")
	line, err := e.readUntil(ctx, func(line string) bool { return strings.HasPrefix(line, "position ") })
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(line, "position "), nil
}

// Go asks for the best move of the loaded position and reads until the
// "bestmove" line. Info lines are collected into the result. When the
// engine answers "bestmove none" after reporting an error, that error is
// returned wrapped in ErrEngine.
func (e *Engine) Go(ctx context.Context) (*SearchResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	e.send("go")

	sr := &SearchResult{}
	for {
		line, err := e.next(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case strings.HasPrefix(line, "info "):
			sr.Infos = append(sr.Infos, parseInfo(line))
		case strings.HasPrefix(line, "error "):
			sr.Errors = append(sr.Errors, strings.TrimPrefix(line, "error "))
		case strings.HasPrefix(line, "bestmove "):
			if err := parseBestMove(line, sr); err != nil {
				return nil, err
			}
			if sr.None {
				// The engine writes the error after "bestmove none".
				if msg, ok := e.pendingError(); ok {
					sr.Errors = append(sr.Errors, msg)
				}
				if len(sr.Errors) > 0 {
					return sr, fmt.Errorf("%w: %s", ErrEngine, sr.Errors[len(sr.Errors)-1])
				}
			}
			return sr, nil
		}
	}
}

// PlayGame asks the engine to play from its current position for at most
// maxMoves placements, drawing pieces from seed.
func (e *Engine) PlayGame(ctx context.Context, maxMoves int, seed int64) (*GameResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	e.send(fmt.Sprintf("playgame %d %d", maxMoves, seed))

	line, err := e.readUntil(ctx, func(line string) bool { return strings.HasPrefix(line, "gameresult ") })
	if err != nil {
		return nil, err
	}
	res, err := parseGameResult(line)
	if err != nil {
		return nil, err
	}
	if res == nil {
		if msg, ok := e.pendingError(); ok {
			return nil, fmt.Errorf("%w: %s", ErrEngine, msg)
		}
		return nil, fmt.Errorf("%w: game aborted", ErrEngine)
	}
	return res, nil
}

// Quit sends "quit" to the engine. For full cleanup use Close instead.
func (e *Engine) Quit() {
	e.send("quit")
}

// Close sends "quit" to the engine and waits for process exit. If the
// process does not exit within 3 seconds, it is forcefully killed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if e.stdin != nil {
		fmt.Fprintf(e.stdin, "quit\n")
	}
	e.closed = true
	e.mu.Unlock()

	if e.stdin != nil {
		e.stdin.Close()
	}

	if e.exited != nil {
		select {
		case <-e.exited:
		case <-time.After(3 * time.Second):
			log.Warn().Str("engine", e.path).Msg("Engine did not exit within 3s, killing")
			if e.cmd != nil && e.cmd.Process != nil {
				e.cmd.Process.Kill()
			}
			<-e.exited
		}
	}
	return nil
}

// start launches the engine subprocess and its stdout reader.
func (e *Engine) start() error {
	e.cmd = exec.Command(e.path, e.args...)

	var err error
	e.stdin, err = e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}

	e.lines = make(chan string, 64)
	e.exited = make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), maxLine)
		for scanner.Scan() {
			e.lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			log.Debug().Err(err).Str("engine", e.path).Msg("Engine stdout read error")
		}
		close(e.lines)
	}()
	go func() {
		e.cmd.Wait()
		close(e.exited)
	}()

	return nil
}

// handshake performs the TPI initialization sequence: sends "tpi", reads
// id/option lines until "tpiok", then sends "isready" and waits for "readyok".
func (e *Engine) handshake(ctx context.Context) error {
	e.send("tpi")

	_, err := e.readUntil(ctx, func(line string) bool {
		switch {
		case strings.HasPrefix(line, "id name "):
			e.ID.Name = strings.TrimPrefix(line, "id name ")
		case strings.HasPrefix(line, "id author "):
			e.ID.Author = strings.TrimPrefix(line, "id author ")
		case strings.HasPrefix(line, "protocol_version "):
			fmt.Sscanf(strings.TrimPrefix(line, "protocol_version "), "%d", &e.ID.ProtocolVersion)
		case strings.HasPrefix(line, "option "):
			e.Options = append(e.Options, parseEngineOption(line))
		case line == "tpiok":
			return true
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("waiting for tpiok: %w", err)
	}

	if err := e.IsReady(ctx); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

// next returns the next stdout line.
func (e *Engine) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-e.lines:
		if !ok {
			return "", errors.New("tpi: engine closed stdout unexpectedly")
		}
		return line, nil
	case <-ctx.Done():
		return "", fmt.Errorf("tpi: context canceled: %w", ctx.Err())
	}
}

// readUntil consumes lines until done reports true and returns that line.
// Error lines seen on the way are logged and skipped.
func (e *Engine) readUntil(ctx context.Context, done func(string) bool) (string, error) {
	for {
		line, err := e.next(ctx)
		if err != nil {
			return "", err
		}
		if done(line) {
			return line, nil
		}
		if strings.HasPrefix(line, "error ") {
			log.Warn().Str("engine", e.path).Str("line", line).Msg("Engine reported an error")
		}
	}
}

// pendingError waits briefly for the error line that follows a failed
// command's terminal response.
func (e *Engine) pendingError() (string, bool) {
	select {
	case line, ok := <-e.lines:
		if ok && strings.HasPrefix(line, "error ") {
			return strings.TrimPrefix(line, "error "), true
		}
	case <-time.After(time.Second):
	}
	return "", false
}

func (e *Engine) ready() error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return errors.New("tpi: engine is closed")
	}
	if !e.isAlive() {
		return errors.New("tpi: engine process is not running")
	}
	return nil
}

// send writes a command line to the engine's stdin.
func (e *Engine) send(line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.stdin == nil {
		return
	}
	fmt.Fprintf(e.stdin, "%s\n", line)
}

// isAlive checks whether the engine process is still running.
func (e *Engine) isAlive() bool {
	if e.exited == nil {
		return false
	}
	select {
	case <-e.exited:
		return false
	default:
		return true
	}
}
