package client

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"task-tracker/models"
)

// Length bounds enforced before a task leaves the client. The server only
// requires the fields to be non-empty.
const (
	TitleMin       = 3
	TitleMax       = 50
	DescriptionMin = 10
	DescriptionMax = 200
)

// ValidateDraft checks a new task the way the task form does.
func ValidateDraft(n models.NewTask) error {
	if err := checkLength("title", n.Title, TitleMin, TitleMax); err != nil {
		return err
	}
	if err := checkLength("description", n.Description, DescriptionMin, DescriptionMax); err != nil {
		return err
	}
	if n.Status != "" && !n.Status.Valid() {
		return &models.ValidationError{Field: "status", Message: "Status must be incomplete or complete"}
	}
	if n.Priority != "" && !n.Priority.Valid() {
		return &models.ValidationError{Field: "priority", Message: "Priority must be Low, Medium or High"}
	}
	return nil
}

// ValidatePatch applies the same rules to the fields a patch carries.
func ValidatePatch(p models.TaskPatch) error {
	if p.Title != nil {
		if err := checkLength("title", *p.Title, TitleMin, TitleMax); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := checkLength("description", *p.Description, DescriptionMin, DescriptionMax); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &models.ValidationError{Field: "status", Message: "Status must be incomplete or complete"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &models.ValidationError{Field: "priority", Message: "Priority must be Low, Medium or High"}
	}
	return nil
}

func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	label := strings.ToUpper(field[:1]) + field[1:]
	switch {
	case n == 0:
		return &models.ValidationError{Field: field, Message: label + " is required"}
	case n < min:
		return &models.ValidationError{Field: field, Message: fmt.Sprintf("%s must be at least %d characters", label, min)}
	case n > max:
		return &models.ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", label, max)}
	}
	return nil
}
