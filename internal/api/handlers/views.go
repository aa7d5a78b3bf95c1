package handlers

import (
	"github.com/CedricEugeni/MoMentor/internal/brain"
	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// runView adds display helpers to a run
type runView struct {
	*contracts.Run
	SwapMoves []swapMoveView `json:"swap_moves"`
}

type swapMoveView struct {
	contracts.SwapMove
	Description string `json:"description"`
}

func newRunView(run *contracts.Run) runView {
	moves := make([]swapMoveView, 0, len(run.SwapMoves))
	for _, m := range run.SwapMoves {
		moves = append(moves, swapMoveView{SwapMove: m, Description: m.Description()})
	}
	return runView{Run: run, SwapMoves: moves}
}

type runDetailsView struct {
	runView
	Confirmation *contracts.Confirmation `json:"confirmation,omitempty"`
}

func newRunDetailsView(d *brain.RunDetails) runDetailsView {
	return runDetailsView{runView: newRunView(d.Run), Confirmation: d.Confirmation}
}
