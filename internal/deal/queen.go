package deal

import (
	"errors"
	"fmt"

	"github.com/talgya/brood/internal/rng"
)

// QueenSize is the edge length of the queen board.
const QueenSize = 3

// ErrQueenTooSmall is returned when a composition cannot fill the ring.
var ErrQueenTooSmall = errors.New("queen board needs at least 8 tiles")

// Coord addresses a queen board cell.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// QueenCell is the fixed centre cell; it never receives an outcome.
var QueenCell = Coord{Row: 1, Col: 1}

// QueenCells lists the 8 ring cells in row-major order.
func QueenCells() []Coord {
	cells := make([]Coord, 0, QueenSize*QueenSize-1)
	for r := 0; r < QueenSize; r++ {
		for c := 0; c < QueenSize; c++ {
			if (Coord{r, c}) == QueenCell {
				continue
			}
			cells = append(cells, Coord{r, c})
		}
	}
	return cells
}

// MakeQueen shuffles the composition with the (seed, round) stream and
// slices the first 8 outcomes onto the ring cells.
func MakeQueen(seed string, round int, c Composition) (map[Coord]Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cells := QueenCells()
	if c.Total() < len(cells) {
		return nil, fmt.Errorf("%w: have %d", ErrQueenTooSmall, c.Total())
	}
	tiles := expand(c)
	Shuffle(rng.ForRound(seed, round), tiles)

	board := make(map[Coord]Outcome, len(cells))
	for i, cell := range cells {
		board[cell] = tiles[i]
	}
	return board, nil
}
