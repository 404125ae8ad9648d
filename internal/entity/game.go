package entity

import (
	"strings"

	"github.com/rocketscienceinc/ticroom-backend/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
	StatusWaiting  = "waiting"

	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

// BoardSize is the side length of the grid. The board is always 3x3.
const BoardSize = 3

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Game struct {
	Board     [9]string `json:"board"`
	Turn      string    `json:"player_turn"`
	Winner    string    `json:"winner"`
	Status    string    `json:"status"`
	Forfeited bool      `json:"forfeited,omitempty"`
}

func NewGame() *Game {
	return &Game{
		Board:  [9]string{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell},
		Turn:   PlayerX,
		Status: StatusWaiting,
	}
}

// MakeTurn places mark at (col, row) and re-evaluates the game state.
// The board is left untouched on any error.
func (that *Game) MakeTurn(mark string, col, row int) error {
	if col < 0 || col >= BoardSize || row < 0 || row >= BoardSize {
		return apperror.ErrInvalidCell
	}

	if that.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	cell := row*BoardSize + col
	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = mark
	that.UpdateGameState()

	return nil
}

// ForfeitBy ends the game immediately, awarding the win to the opponent
// of mark regardless of whose turn it is.
func (that *Game) ForfeitBy(mark string) {
	that.Winner = ToggleMark(mark)
	that.Status = StatusFinished
	that.Forfeited = true
	that.Turn = EmptyCell
}

func (that *Game) DetermineGameResult() string {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	// the game will continue until all the squares are full
	for _, cell := range that.Board {
		if cell == EmptyCell {
			return ""
		}
	}

	return PlayerTie
}

func (that *Game) UpdateGameState() {
	switch winner := that.DetermineGameResult(); winner {
	// one player wins
	case PlayerX, PlayerO:
		that.Winner = winner
		that.Status = StatusFinished
		that.Turn = EmptyCell
	// tie
	case PlayerTie:
		that.Winner = PlayerTie
		that.Status = StatusFinished
		that.Turn = EmptyCell
	// game continue
	default:
		that.Status = StatusOngoing
		that.Turn = ToggleMark(that.Turn)
	}
}

// EncodeBoard renders the board as nine digits: 0 empty, 1 X, 2 O.
func (that *Game) EncodeBoard() string {
	var sb strings.Builder
	for _, cell := range that.Board {
		switch cell {
		case PlayerX:
			sb.WriteByte('1')
		case PlayerO:
			sb.WriteByte('2')
		default:
			sb.WriteByte('0')
		}
	}

	return sb.String()
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func ToggleMark(currentMark string) string {
	if currentMark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
