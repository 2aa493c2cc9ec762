// Package analytics reduces a user's session and goal history to summary
// figures. Nothing here reads or writes storage.
package analytics

import (
	"sort"
	"time"

	"focusrooms/backend/internal/model"
)

// ChartWindow is how far back SessionsChart looks.
const ChartWindow = 7 * 24 * time.Hour

type Overview struct {
	TotalSessions  int     `json:"totalSessions"`
	TotalMinutes   int     `json:"totalMinutes"`
	TotalHours     float64 `json:"totalHours"`
	TotalPomodoros int     `json:"totalPomodoros"`
	CompletedGoals int     `json:"completedGoals"`
}

type ChartPoint struct {
	Day     string `json:"day"`
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

type GoalsProgress struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Active         int `json:"active"`
	CompletionRate int `json:"completionRate"`
}

type Report struct {
	Overview      Overview      `json:"overview"`
	SessionsChart []ChartPoint  `json:"sessionsChart"`
	GoalsProgress GoalsProgress `json:"goalsProgress"`
}

// ComputeOverview sums closed sessions across all rooms. Open sessions are
// ignored.
func ComputeOverview(sessions []model.FocusSession, goals []model.Goal) Overview {
	var overview Overview
	for _, session := range sessions {
		if session.Open() {
			continue
		}
		overview.TotalSessions++
		if session.DurationMinutes != nil {
			overview.TotalMinutes += *session.DurationMinutes
		}
		if session.PomodoroCount != nil {
			overview.TotalPomodoros += *session.PomodoroCount
		}
	}
	for _, goal := range goals {
		if goal.IsCompleted {
			overview.CompletedGoals++
		}
	}
	overview.TotalHours = float64(overview.TotalMinutes*10/60) / 10
	return overview
}

// SessionsChart groups closed sessions started within ChartWindow of now by
// calendar day in loc. Days summing to zero minutes are left out and the
// result is in ascending day order.
func SessionsChart(sessions []model.FocusSession, now time.Time, loc *time.Location) []ChartPoint {
	if loc == nil {
		loc = time.UTC
	}
	since := now.Add(-ChartWindow)

	minutes := make(map[string]int)
	labels := make(map[string]string)
	for _, session := range sessions {
		if session.Open() || session.StartedAt.Before(since) {
			continue
		}
		local := session.StartedAt.In(loc)
		day := local.Format("2006-01-02")
		labels[day] = local.Format("Jan 2")
		if session.DurationMinutes != nil {
			minutes[day] += *session.DurationMinutes
		}
	}

	points := make([]ChartPoint, 0, len(minutes))
	for day, total := range minutes {
		if total <= 0 {
			continue
		}
		points = append(points, ChartPoint{Day: day, Date: labels[day], Minutes: total})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Day < points[j].Day })
	return points
}

// ComputeGoalsProgress rounds the completion percentage half up; no goals
// means 0.
func ComputeGoalsProgress(goals []model.Goal) GoalsProgress {
	progress := GoalsProgress{Total: len(goals)}
	for _, goal := range goals {
		if goal.IsCompleted {
			progress.Completed++
		}
	}
	progress.Active = progress.Total - progress.Completed
	if progress.Total > 0 {
		progress.CompletionRate = (200*progress.Completed + progress.Total) / (2 * progress.Total)
	}
	return progress
}

// Build assembles the full report for one user.
func Build(closed []model.FocusSession, goals []model.Goal, now time.Time, loc *time.Location) Report {
	return Report{
		Overview:      ComputeOverview(closed, goals),
		SessionsChart: SessionsChart(closed, now, loc),
		GoalsProgress: ComputeGoalsProgress(goals),
	}
}
