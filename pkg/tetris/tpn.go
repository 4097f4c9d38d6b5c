package tetris

import (
	"fmt"
	"strconv"
	"strings"
)

// Encode serializes p to TPN: each board row top to bottom followed by '/',
// empty runs of 1-9 cells written as a digit and occupied cells as their
// piece letter, then the current piece, the next piece ('-' when unresolved)
// and the score. A non-zero line count is appended as a fifth field.
//
// A completely empty row is written as nothing, so an empty board encodes
// as 22 slashes.
func Encode(p *Position) string {
	var b strings.Builder
	b.Grow(Height*(Width+1) + 32)

	for y := range Height {
		encodeRow(&b, &p.Board[y])
		b.WriteByte('/')
	}
	b.WriteByte(' ')
	b.WriteByte(kindToChar[p.Current])
	b.WriteByte(' ')
	b.WriteByte(kindToChar[p.Next])
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(p.Score, 10))
	if p.Lines != 0 {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(p.Lines))
	}
	return b.String()
}

func encodeRow(b *strings.Builder, row *[Width]Kind) {
	empty := 0
	for _, k := range row {
		if k == None {
			empty++
			continue
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
			empty = 0
		}
		b.WriteByte(kindToChar[k])
	}
	if empty > 0 && empty < Width {
		b.WriteByte(byte('0' + empty))
	}
}

// Decode parses a TPN string. The hash and top row are computed from the
// decoded board. Rows may omit the trailing slash; short rows are padded
// with empty cells.
func Decode(r *Rules, s string) (Position, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 && len(fields) != 5 {
		return Position{}, fmt.Errorf("%w: expected 4 or 5 fields, got %d", ErrMalformedEncoding, len(fields))
	}

	board, err := decodeBoard(fields[0])
	if err != nil {
		return Position{}, err
	}

	current, err := ParseKind(fields[1])
	if err != nil {
		return Position{}, err
	}
	next, err := ParseKind(fields[2])
	if err != nil {
		return Position{}, err
	}

	score, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Position{}, fmt.Errorf("%w: score %q", ErrMalformedEncoding, fields[3])
	}
	if score < 0 {
		return Position{}, fmt.Errorf("%w: negative score %d", ErrMalformedEncoding, score)
	}

	pos := NewPosition(r, board, current, next, score)
	if len(fields) == 5 {
		lines, err := strconv.Atoi(fields[4])
		if err != nil || lines < 0 {
			return Position{}, fmt.Errorf("%w: lines %q", ErrMalformedEncoding, fields[4])
		}
		pos.Lines = lines
	}
	return pos, nil
}

func decodeBoard(s string) (Board, error) {
	var board Board
	rows := strings.Split(s, "/")
	if len(rows) == Height+1 && rows[Height] == "" {
		rows = rows[:Height]
	}
	if len(rows) != Height {
		return board, fmt.Errorf("%w: expected %d rows, got %d", ErrMalformedEncoding, Height, len(rows))
	}
	for y, row := range rows {
		x := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			if ch >= '1' && ch <= '9' {
				x += int(ch - '0')
				if x > Width {
					return board, fmt.Errorf("%w: row %d overflows", ErrMalformedEncoding, y)
				}
				continue
			}
			k, ok := charToKind[ch]
			if !ok || k == None {
				return board, fmt.Errorf("%w: illegal board character %q in row %d", ErrMalformedEncoding, ch, y)
			}
			if x >= Width {
				return board, fmt.Errorf("%w: row %d overflows", ErrMalformedEncoding, y)
			}
			board[y][x] = k
			x++
		}
	}
	return board, nil
}

func (p Position) String() string {
	return Encode(&p)
}
