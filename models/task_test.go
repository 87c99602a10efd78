package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_BuildAppliesDefaultsAndTrims(t *testing.T) {
	owner := uuid.New()
	task, err := NewTask{
		Title:       "  Buy milk ",
		Description: "\t2% milk, 1 gallon\n",
		OwnerID:     owner,
	}.Build()
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "2% milk, 1 gallon", task.Description)
	assert.Equal(t, StatusIncomplete, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, owner, task.OwnerID)
	assert.Equal(t, uuid.Nil, task.ID)
}

func TestNewTask_BuildRejects(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		name  string
		in    NewTask
		field string
	}{
		{"missing title", NewTask{Title: "   ", Description: "something to do", OwnerID: owner}, "title"},
		{"missing description", NewTask{Title: "Task", OwnerID: owner}, "description"},
		{"missing owner", NewTask{Title: "Task", Description: "something to do"}, "ownerId"},
		{"bad status", NewTask{Title: "Task", Description: "something to do", Status: "done", OwnerID: owner}, "status"},
		{"bad priority", NewTask{Title: "Task", Description: "something to do", Priority: "urgent", OwnerID: owner}, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Build()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewTask_BuildKeepsExplicitValues(t *testing.T) {
	task, err := NewTask{
		Title:       "Ship it",
		Description: "release the build",
		Status:      StatusComplete,
		Priority:    PriorityHigh,
		OwnerID:     uuid.New(),
	}.Build()
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, task.Status)
	assert.Equal(t, PriorityHigh, task.Priority)
}

func TestTaskPatch_NormalizeAndApply(t *testing.T) {
	title := "  New title  "
	status := StatusComplete
	patch, err := TaskPatch{Title: &title, Status: &status}.Normalize()
	require.NoError(t, err)

	created := Now()
	task := Task{
		ID:          uuid.New(),
		Title:       "Old",
		Description: "unchanged description",
		Status:      StatusIncomplete,
		Priority:    PriorityLow,
		OwnerID:     uuid.New(),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	before := task
	task.Apply(patch)

	assert.Equal(t, "New title", task.Title)
	assert.Equal(t, StatusComplete, task.Status)
	assert.Equal(t, before.Description, task.Description)
	assert.Equal(t, before.Priority, task.Priority)
	assert.Equal(t, before.ID, task.ID)
	assert.Equal(t, before.OwnerID, task.OwnerID)
	assert.Equal(t, before.CreatedAt, task.CreatedAt)
}

func TestTaskPatch_NormalizeRejects(t *testing.T) {
	blank := "  "
	badStatus := Status("archived")
	badPriority := Priority("Critical")

	tests := []struct {
		name  string
		patch TaskPatch
		field string
	}{
		{"blank title", TaskPatch{Title: &blank}, "title"},
		{"blank description", TaskPatch{Description: &blank}, "description"},
		{"bad status", TaskPatch{Status: &badStatus}, "status"},
		{"bad priority", TaskPatch{Priority: &badPriority}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.patch.Normalize()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTask_TouchIsStrictlyIncreasing(t *testing.T) {
	now := Now()
	task := Task{CreatedAt: now, UpdatedAt: now}

	task.Touch(now)
	assert.True(t, task.UpdatedAt.After(task.CreatedAt))

	prev := task.UpdatedAt
	task.Touch(now.Add(-time.Hour))
	assert.True(t, task.UpdatedAt.After(prev))
}

func TestStatus_Opposite(t *testing.T) {
	assert.Equal(t, StatusComplete, StatusIncomplete.Opposite())
	assert.Equal(t, StatusIncomplete, StatusComplete.Opposite())
}

func TestParseEnums(t *testing.T) {
	st, err := ParseStatus(" complete ")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, st)

	_, err = ParseStatus("Complete")
	assert.Error(t, err)

	p, err := ParsePriority("High")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	_, err = ParsePriority("high")
	assert.Error(t, err)
}
