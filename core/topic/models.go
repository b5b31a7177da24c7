package topic

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
)

// Topic statuses
const (
	StatusInactive = "inactive"
	StatusActive   = "active"
	StatusClosed   = "closed"
)

// Topic is a proposed research topic, optionally owned by a lecturer.
type Topic struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	TopicCode   string      `json:"topic_code"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status"`
	LecturerID  null.String `json:"lecturer_id"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// NewTopic contains information needed to create a new Topic.
type NewTopic struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=inactive active closed"`
	LecturerID  string `json:"lecturer_id"`
}

func (nt *NewTopic) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	nt.Description = core.CleanString(nt.Description)
	nt.Status = core.CleanString(nt.Status, true /* lower */)
	return core.Validate.Struct(nt)
}

// UpdateTopic defines what information may be provided to modify an existing Topic.
type UpdateTopic struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=inactive active closed"`
	LecturerID  string `json:"lecturer_id"`
}

func (ut *UpdateTopic) Validate() error {
	ut.Name = core.CleanString(ut.Name)
	ut.Description = core.CleanString(ut.Description)
	ut.Status = core.CleanString(ut.Status, true /* lower */)
	return core.Validate.Struct(ut)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Status     string `query:"status"`
	LecturerID string `query:"lecturer_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.LecturerID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// GetFilter selects a single topic by one of its unique fields.
type GetFilter struct {
	ID        string
	TopicCode string
}
