package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/handler"
	"github.com/freeeve/blockfall/internal/model"
	"github.com/freeeve/blockfall/internal/service"
	"github.com/freeeve/blockfall/pkg/tetris"
)

// localFeed plays a game with the in-process searcher, pacing placements
// by delay.
func localFeed(ctx context.Context, s *bot.Searcher, seed int64, maxMoves int, delay time.Duration, frames chan<- frame, done chan<- doneMsg) {
	defer close(frames)
	start := tetris.EmptyPosition(s.Rules(), tetris.None, tetris.None)
	_, err := s.PlayGame(ctx, start, bot.NewRand(seed), maxMoves, func(rec bot.MoveRecord) {
		f := frame{
			Pos:   rec.After,
			Ply:   rec.Ply,
			Move:  rec.Decision.Move.String(),
			Eval:  rec.Decision.Score,
			Nodes: rec.Decision.Nodes,
		}
		select {
		case frames <- f:
		case <-ctx.Done():
			return
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	})
	if ctx.Err() != nil {
		err = nil
	}
	done <- doneMsg{Err: err}
}

// wsEvent mirrors the server's WebSocket envelope.
type wsEvent struct {
	Type   string          `json:"type"`
	GameID string          `json:"game_id"`
	Data   json.RawMessage `json:"data"`
}

// remoteFeed subscribes to a game on a running server and forwards its
// move_played events until game_ended.
func remoteFeed(ctx context.Context, url, gameID string, frames chan<- frame, done chan<- doneMsg) {
	defer close(frames)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		done <- doneMsg{Err: fmt.Errorf("dial: %w", err)}
		return
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := conn.WriteJSON(map[string]string{"action": "subscribe", "game_id": gameID}); err != nil {
		done <- doneMsg{Err: fmt.Errorf("subscribe: %w", err)}
		return
	}

	rules := tetris.DefaultRules()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				err = nil
			}
			done <- doneMsg{Err: err}
			return
		}
		for _, line := range bytes.Split(data, []byte("\n")) {
			f, ended, err := parseEvent(rules, line)
			if err != nil {
				done <- doneMsg{Err: err}
				return
			}
			if f != nil {
				select {
				case frames <- *f:
				case <-ctx.Done():
					done <- doneMsg{}
					return
				}
			}
			if ended {
				done <- doneMsg{}
				return
			}
		}
	}
}

// parseEvent turns one WebSocket message into a frame. A subscribe ack
// that carries a position becomes the opening frame, and the last one when
// the game is already over; an error event ends the feed. Other events are
// ignored.
func parseEvent(rules *tetris.Rules, data []byte) (*frame, bool, error) {
	var ev wsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, false, fmt.Errorf("decode event: %w", err)
	}
	switch ev.Type {
	case handler.EventError:
		var body struct {
			Error string `json:"error"`
		}
		json.Unmarshal(ev.Data, &body)
		return nil, false, fmt.Errorf("server: %s %s", ev.GameID, body.Error)
	case handler.EventSubscribed:
		var w handler.Watch
		if err := json.Unmarshal(ev.Data, &w); err != nil {
			return nil, false, fmt.Errorf("decode ack: %w", err)
		}
		if w.Position == "" {
			return nil, w.GameOver, nil
		}
		pos, err := tetris.Decode(rules, w.Position)
		if err != nil {
			return nil, false, err
		}
		return &frame{Pos: pos, Ply: w.Moves}, w.GameOver, nil
	case service.EventGameEnded:
		return nil, true, nil
	case service.EventMovePlayed:
		var mv model.MoveEvent
		if err := json.Unmarshal(ev.Data, &mv); err != nil {
			return nil, false, fmt.Errorf("decode move: %w", err)
		}
		pos, err := tetris.Decode(rules, mv.Position)
		if err != nil {
			return nil, false, err
		}
		return &frame{
			Pos:  pos,
			Ply:  mv.Ply,
			Move: fmt.Sprintf("%s@%d,%d/%d", mv.Piece, mv.X, mv.Y, mv.Rot),
			Eval: mv.Eval,
		}, false, nil
	}
	return nil, false, nil
}
