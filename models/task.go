package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

func (s Status) Valid() bool {
	return s == StatusIncomplete || s == StatusComplete
}

// Opposite returns the status a toggle moves to.
func (s Status) Opposite() Status {
	if s == StatusComplete {
		return StatusIncomplete
	}
	return StatusComplete
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Message: "status must be one of incomplete, complete"}
	}
	return st, nil
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.TrimSpace(s))
	if !p.Valid() {
		return "", &ValidationError{Field: "priority", Message: "priority must be one of Low, Medium, High"}
	}
	return p, nil
}

type Task struct {
	ID          uuid.UUID `json:"id" gorm:"type:text;primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"not null"`
	Status      Status    `json:"status" gorm:"type:text;not null"`
	Priority    Priority  `json:"priority" gorm:"type:text;not null"`
	OwnerID     uuid.UUID `json:"ownerId" gorm:"type:text;not null;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTask is the caller-supplied part of a task. Status and Priority may be
// left empty to take their defaults.
type NewTask struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status,omitempty"`
	Priority    Priority  `json:"priority,omitempty"`
	OwnerID     uuid.UUID `json:"-"`
}

// Build normalizes and validates n. The returned task has no id or
// timestamps; storage assigns those.
func (n NewTask) Build() (Task, error) {
	t := Task{
		Title:       strings.TrimSpace(n.Title),
		Description: strings.TrimSpace(n.Description),
		Status:      n.Status,
		Priority:    n.Priority,
		OwnerID:     n.OwnerID,
	}
	if t.Status == "" {
		t.Status = StatusIncomplete
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	switch {
	case t.Title == "":
		return Task{}, &ValidationError{Field: "title", Message: "title is required"}
	case t.Description == "":
		return Task{}, &ValidationError{Field: "description", Message: "description is required"}
	case t.OwnerID == uuid.Nil:
		return Task{}, &ValidationError{Field: "ownerId", Message: "owner is required"}
	case !t.Status.Valid():
		return Task{}, &ValidationError{Field: "status", Message: "status must be one of incomplete, complete"}
	case !t.Priority.Valid():
		return Task{}, &ValidationError{Field: "priority", Message: "priority must be one of Low, Medium, High"}
	}
	return t, nil
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

// Normalize trims the provided text fields and validates every provided
// field against the same rules as Build.
func (p TaskPatch) Normalize() (TaskPatch, error) {
	var out TaskPatch
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return TaskPatch{}, &ValidationError{Field: "title", Message: "title is required"}
		}
		out.Title = &title
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return TaskPatch{}, &ValidationError{Field: "description", Message: "description is required"}
		}
		out.Description = &desc
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return TaskPatch{}, &ValidationError{Field: "status", Message: "status must be one of incomplete, complete"}
		}
		st := *p.Status
		out.Status = &st
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return TaskPatch{}, &ValidationError{Field: "priority", Message: "priority must be one of Low, Medium, High"}
		}
		pr := *p.Priority
		out.Priority = &pr
	}
	return out, nil
}

// Apply copies the provided fields of p onto t. Identity, ownership and
// timestamps are never touched.
func (t *Task) Apply(p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

// Touch moves UpdatedAt to now, or just past the previous value when the
// clock has not advanced at storage precision.
func (t *Task) Touch(now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Microsecond)
	}
	t.UpdatedAt = now
}

// Now returns the current time at the precision every backend preserves.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
