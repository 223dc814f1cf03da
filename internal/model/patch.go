package model

import "strings"

// ListPatch is a partial list update. Nil fields are left unchanged.
type ListPatch struct {
	Name   *string     `json:"name,omitempty" validate:"omitempty,notblank"`
	Status *ListStatus `json:"status,omitempty" validate:"omitempty,oneof=active deleted"`
}

// Apply returns l with the patch applied.
func (p ListPatch) Apply(l List) List {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	return l
}

// IsEmpty reports whether the patch changes nothing.
func (p ListPatch) IsEmpty() bool {
	return p.Name == nil && p.Status == nil
}

// TaskPatch is a partial task update. Nil fields are left unchanged; a
// Description pointing at "" clears the description.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty" validate:"omitempty,notblank"`
	Description *string     `json:"description,omitempty"`
	Completed   *bool       `json:"completed,omitempty"`
	Status      *TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=pending completed deleted"`
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = NormalizeDescription(*p.Description)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil && p.Status == nil
}

// NormalizeDescription trims s and maps an empty result to nil.
func NormalizeDescription(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
