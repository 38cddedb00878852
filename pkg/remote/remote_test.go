package remote

import (
	"github.com/vango-dev/livestate/pkg/reactive"
)

type boardRound struct {
	Number int    `json:"number"`
	Prompt string `json:"prompt"`
}

type board struct {
	Phase  string         `json:"phase"`
	Round  *boardRound    `json:"round"`
	Scores map[string]int `json:"scores"`
	Log    []string       `json:"log"`
}

func newBoard() *board {
	return &board{
		Phase:  "lobby",
		Round:  &boardRound{Number: 1, Prompt: "draw a cat"},
		Scores: map[string]int{"ann": 1, "bob": 2},
	}
}

func set(path string, value any) Assignment {
	return Assignment{Op: OpSet, Path: reactive.ParsePath(path), Value: value}
}
