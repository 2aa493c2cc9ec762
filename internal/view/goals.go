package view

import "focusrooms/backend/internal/model"

// GoalBoard splits a room's goals into the open list and the completed
// section. The completed section starts collapsed; its count is always
// reported.
type GoalBoard struct {
	Active         []model.Goal `json:"active"`
	Completed      []model.Goal `json:"completed,omitempty"`
	CompletedCount int          `json:"completedCount"`
	ShowCompleted  bool         `json:"showCompleted"`
}

// NewGoalBoard keeps the input order, which is newest first as listed.
func NewGoalBoard(goals []model.Goal, showCompleted bool) GoalBoard {
	board := GoalBoard{
		Active:        make([]model.Goal, 0, len(goals)),
		ShowCompleted: showCompleted,
	}
	var completed []model.Goal
	for _, goal := range goals {
		if goal.IsCompleted {
			completed = append(completed, goal)
			continue
		}
		board.Active = append(board.Active, goal)
	}
	board.CompletedCount = len(completed)
	if showCompleted {
		board.Completed = completed
		if board.Completed == nil {
			board.Completed = []model.Goal{}
		}
	}
	return board
}
