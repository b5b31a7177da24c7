package topic

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
)

var ErrNotFound = errors.New("topic not found")

type (
	Repository interface {
		// CreateTopic assigns the topic its ID and unique TopicCode.
		CreateTopic(ctx context.Context, t Topic, exec ...core.DBExecutor) (Topic, error)
		QueryTopics(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Topic, error)
		GetTopic(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Topic, error)
		UpdateTopic(ctx context.Context, t Topic, exec ...core.DBExecutor) (Topic, error)
		DeleteTopicsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, principal core.Principal, nt NewTopic) (Topic, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Topic, error)
		GetByID(ctx context.Context, id string) (Topic, error)
		Update(ctx context.Context, principal core.Principal, id string, ut UpdateTopic) (Topic, error)
		Delete(ctx context.Context, principal core.Principal, ids ...string) error
	}

	service struct {
		repo   Repository
		policy core.AccessPolicy
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, policy core.AccessPolicy) Service {
	return &service{
		repo:   repo,
		policy: policy,
	}
}

func (svc *service) Create(ctx context.Context, principal core.Principal, nt NewTopic) (Topic, error) {
	// lecturers may only create topics they own themselves
	if !svc.policy.Allows(principal, core.ResourceTopic, core.ActionCreate, nt.LecturerID) {
		return Topic{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	t := Topic{
		Name:        nt.Name,
		Description: nt.Description,
		Status:      nt.Status,
		LecturerID:  null.NewString(nt.LecturerID, nt.LecturerID != ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = StatusInactive
	}
	return svc.repo.CreateTopic(ctx, t)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Topic, error) {
	return svc.repo.QueryTopics(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Topic, error) {
	return svc.repo.GetTopic(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, principal core.Principal, id string, ut UpdateTopic) (Topic, error) {
	t, err := svc.repo.GetTopic(ctx, GetFilter{ID: id})
	if err != nil {
		return Topic{}, err
	}
	if !svc.policy.Allows(principal, core.ResourceTopic, core.ActionUpdate, t.LecturerID.String) {
		return Topic{}, core.ErrPermissionDenied
	}

	if ut.Name != "" {
		t.Name = ut.Name
	}
	if ut.Description != "" {
		t.Description = ut.Description
	}
	if ut.Status != "" {
		t.Status = ut.Status
	}
	if ut.LecturerID != "" {
		// reassigning ownership is admin-only
		if !principal.IsAdmin() {
			return Topic{}, core.ErrPermissionDenied
		}
		t.LecturerID = null.StringFrom(ut.LecturerID)
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTopic(ctx, t)
}

func (svc *service) Delete(ctx context.Context, principal core.Principal, ids ...string) error {
	if !svc.policy.Allows(principal, core.ResourceTopic, core.ActionDelete) {
		return core.ErrPermissionDenied
	}
	n, err := svc.repo.DeleteTopicsByID(ctx, ids)
	if err != nil {
		return err
	}
	if n < len(ids) {
		return ErrNotFound
	}
	return nil
}
