package model

import (
	"encoding/json"
	"time"
)

// Game sources.
const (
	SourceSelfPlay = "selfplay"
	SourceSession  = "session"
)

// Game is a finished game kept for later analysis.
type Game struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Seed          int64     `json:"seed"`
	Score         int64     `json:"score"`
	Lines         int       `json:"lines"`
	Moves         int       `json:"moves"`
	GameOver      bool      `json:"game_over"`
	FinalPosition string    `json:"final_position"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is a live game an API client steps through one move at a time.
// Position is TPN; Weights, when set, is the network export the session
// searches with.
type Session struct {
	ID        string          `json:"id"`
	Position  string          `json:"position"`
	Weights   json.RawMessage `json:"weights,omitempty"`
	Seed      int64           `json:"seed"`
	Moves     int             `json:"moves"`
	GameOver  bool            `json:"game_over"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Ply is one placement of a recorded game, the unit of training export.
type Ply struct {
	GameID     string  `json:"game_id"`
	Ply        int     `json:"ply"`
	Position   string  `json:"position"`
	Holes      float64 `json:"holes"`
	Bumpiness  float64 `json:"bumpiness"`
	Height     float64 `json:"height"`
	Piece      string  `json:"piece"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Rot        int     `json:"rot"`
	Actions    string  `json:"actions"`
	Eval       float64 `json:"eval"`
	Cleared    int     `json:"cleared"`
	ScoreAfter int64   `json:"score_after"`
}

// MoveEvent is broadcast to WebSocket subscribers after each placement.
type MoveEvent struct {
	GameID   string  `json:"game_id"`
	Ply      int     `json:"ply"`
	Piece    string  `json:"piece"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Rot      int     `json:"rot"`
	Actions  string  `json:"actions"`
	Score    int64   `json:"score"`
	Lines    int     `json:"lines"`
	Position string  `json:"position"`
	Eval     float64 `json:"eval"`
}
