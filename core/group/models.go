package group

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
)

// Group statuses
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDenied   = "denied"
)

type (
	// Member is a student registered into a Group.
	Member struct {
		UserID   string    `json:"user_id"`
		Name     string    `json:"name"`
		JoinedAt time.Time `json:"joined_at"` // UTC
	}

	// Group is a cohort of students under one supervising lecturer, optionally
	// bound to a Topic and, once scheduled, to a Defense. DefenseID is cleared
	// (not the group deleted) when its Defense is destroyed.
	Group struct {
		ID            string      `json:"id"`
		Name          string      `json:"name"`
		GroupCode     string      `json:"group_code"`
		Status        string      `json:"status"`
		DefStatus     int         `json:"def_status"`
		LecturerID    null.String `json:"lecturer_id"`
		StudentLeadID null.String `json:"student_lead_id"`
		TopicID       null.String `json:"topic_id"`
		DefenseID     null.String `json:"defense_id"`
		Members       []Member    `json:"members,omitempty"`
		CreatedAt     time.Time   `json:"created_at"` // UTC
		UpdatedAt     time.Time   `json:"updated_at"` // UTC
	}
)

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name          string `json:"name" validate:"required"`
	Status        string `json:"status" validate:"omitempty,oneof=pending accepted denied"`
	LecturerID    string `json:"lecturer_id"`
	StudentLeadID string `json:"student_lead_id"`
	TopicID       string `json:"topic_id"`
}

func (ng *NewGroup) Validate() error {
	ng.Name = core.CleanString(ng.Name)
	ng.Status = core.CleanString(ng.Status, true /* lower */)
	return core.Validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
type UpdateGroup struct {
	Name          string `json:"name"`
	Status        string `json:"status" validate:"omitempty,oneof=pending accepted denied"`
	DefStatus     *int   `json:"def_status" validate:"omitempty,min=0"`
	StudentLeadID string `json:"student_lead_id"`
	TopicID       string `json:"topic_id"`
}

func (ug *UpdateGroup) Validate() error {
	ug.Name = core.CleanString(ug.Name)
	ug.Status = core.CleanString(ug.Status, true /* lower */)
	return core.Validate.Struct(ug)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Status     string `query:"status"`
	LecturerID string `query:"lecturer_id"`
	DefenseID  string `query:"defense_id"`
	MemberID   string `query:"member_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.LecturerID == "" && qf.DefenseID == "" && qf.MemberID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// GetFilter selects a single group by one of its unique fields.
type GetFilter struct {
	ID        string
	GroupCode string
}
