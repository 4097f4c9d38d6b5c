// Package store writes self-play placements to Parquet files for training.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/freeeve/blockfall/internal/model"
)

// SchemaVersion is written to every file's key/value metadata.
const SchemaVersion = "ply_row_v1"

// PlyRow is one placement: the position before the move, its features, the
// chosen placement and the score after it.
type PlyRow struct {
	GameID     string  `parquet:"game_id,dict"`
	Ply        int32   `parquet:"ply"`
	Position   string  `parquet:"position"`
	Holes      float32 `parquet:"holes"`
	Bumpiness  float32 `parquet:"bumpiness"`
	Height     float32 `parquet:"height"`
	Piece      string  `parquet:"piece,dict"`
	X          int32   `parquet:"x"`
	Y          int32   `parquet:"y"`
	Rot        int32   `parquet:"rot"`
	Actions    string  `parquet:"actions"`
	Eval       float64 `parquet:"eval"`
	Cleared    int32   `parquet:"cleared"`
	ScoreAfter int64   `parquet:"score_after"`
}

// RowFromPly converts a recorded ply.
func RowFromPly(p model.Ply) PlyRow {
	return PlyRow{
		GameID:     p.GameID,
		Ply:        int32(p.Ply),
		Position:   p.Position,
		Holes:      float32(p.Holes),
		Bumpiness:  float32(p.Bumpiness),
		Height:     float32(p.Height),
		Piece:      p.Piece,
		X:          int32(p.X),
		Y:          int32(p.Y),
		Rot:        int32(p.Rot),
		Actions:    p.Actions,
		Eval:       p.Eval,
		Cleared:    int32(p.Cleared),
		ScoreAfter: p.ScoreAfter,
	}
}

// BatchWriter streams rows into outDir/tmp/<name> and moves the file into
// outDir on Finalize, so readers never see a partial file. It is safe for
// concurrent use by self-play workers.
type BatchWriter struct {
	mu sync.Mutex

	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[PlyRow]
	rows   int
}

// NewBatchWriter opens a new batch file under outDir.
func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, errors.New("store: output directory is required")
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create tmp dir: %w", err)
	}

	name := fmt.Sprintf("plies_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[PlyRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("position"),
	)
	w.SetKeyValueMetadata("schema", SchemaVersion)

	return &BatchWriter{
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  w,
	}, nil
}

// Record appends one ply.
func (b *BatchWriter) Record(p model.Ply) error {
	return b.WriteRows([]PlyRow{RowFromPly(p)})
}

// WriteRows appends rows.
func (b *BatchWriter) WriteRows(rows []PlyRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writer == nil {
		return errors.New("store: batch writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.writer.Write(rows); err != nil {
		return fmt.Errorf("store: write rows: %w", err)
	}
	b.rows += len(rows)
	return nil
}

// Rows returns the number of rows written so far.
func (b *BatchWriter) Rows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rows
}

// Finalize closes the file and moves it into place. When no rows were
// written the temporary file is removed and the returned path is empty.
func (b *BatchWriter) Finalize() (string, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writer == nil {
		return "", 0, nil
	}

	closeErr := b.writer.Close()
	b.writer = nil
	_ = b.file.Sync()
	fileErr := b.file.Close()
	b.file = nil
	if closeErr != nil {
		return "", 0, fmt.Errorf("store: close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", 0, fmt.Errorf("store: close parquet file: %w", fileErr)
	}

	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, fmt.Errorf("store: rename parquet: %w", err)
	}
	return b.outPath, b.rows, nil
}

// ReadPlies loads every row of a batch file.
func ReadPlies(path string) ([]PlyRow, error) {
	rows, err := parquet.ReadFile[PlyRow](path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return rows, nil
}
