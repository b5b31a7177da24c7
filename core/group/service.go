package group

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
)

var (
	// errors
	ErrNotFound      = errors.New("group not found")
	ErrAlreadyMember = errors.New("student is already a member of this group")
	ErrNotMember     = errors.New("student is not a member of this group")
)

type (
	Repository interface {
		// CreateGroup assigns the group its ID and unique GroupCode.
		CreateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		QueryGroups(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Group, error)
		GetGroup(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Group, error)
		UpdateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		DeleteGroupsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
		// AssignDefense points every group in groupIDs at the given defense;
		// a null defenseID clears the reference.
		AssignDefense(ctx context.Context, groupIDs []string, defenseID null.String, exec ...core.DBExecutor) error
		AddMember(ctx context.Context, groupID, userID string, exec ...core.DBExecutor) error
		RemoveMember(ctx context.Context, groupID, userID string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, principal core.Principal, ng NewGroup) (Group, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Group, error)
		GetByID(ctx context.Context, id string) (Group, error)
		Update(ctx context.Context, principal core.Principal, id string, ug UpdateGroup) (Group, error)
		Delete(ctx context.Context, principal core.Principal, ids ...string) error
		// Join registers the calling student into the group; Leave removes them.
		Join(ctx context.Context, principal core.Principal, groupID string) error
		Leave(ctx context.Context, principal core.Principal, groupID string) error
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

func (svc *service) Create(ctx context.Context, principal core.Principal, ng NewGroup) (Group, error) {
	// lecturers may only create groups they supervise themselves
	if !svc.policy.Allows(principal, core.ResourceGroup, core.ActionCreate, ng.LecturerID) {
		return Group{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	g := Group{
		Name:          ng.Name,
		Status:        ng.Status,
		LecturerID:    null.NewString(ng.LecturerID, ng.LecturerID != ""),
		StudentLeadID: null.NewString(ng.StudentLeadID, ng.StudentLeadID != ""),
		TopicID:       null.NewString(ng.TopicID, ng.TopicID != ""),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if g.Status == "" {
		g.Status = StatusPending
	}
	return svc.repo.CreateGroup(ctx, g)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Group, error) {
	return svc.repo.QueryGroups(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroup(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, principal core.Principal, id string, ug UpdateGroup) (Group, error) {
	g, err := svc.repo.GetGroup(ctx, GetFilter{ID: id})
	if err != nil {
		return Group{}, err
	}
	if !svc.policy.Allows(principal, core.ResourceGroup, core.ActionUpdate, g.LecturerID.String) {
		return Group{}, core.ErrPermissionDenied
	}

	if ug.Name != "" {
		g.Name = ug.Name
	}
	if ug.Status != "" {
		g.Status = ug.Status
	}
	if ug.DefStatus != nil {
		g.DefStatus = *ug.DefStatus
	}
	if ug.StudentLeadID != "" {
		g.StudentLeadID = null.StringFrom(ug.StudentLeadID)
	}
	if ug.TopicID != "" {
		g.TopicID = null.StringFrom(ug.TopicID)
	}
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGroup(ctx, g)
}

func (svc *service) Delete(ctx context.Context, principal core.Principal, ids ...string) error {
	if !svc.policy.Allows(principal, core.ResourceGroup, core.ActionDelete) {
		return core.ErrPermissionDenied
	}
	n, err := svc.repo.DeleteGroupsByID(ctx, ids)
	if err != nil {
		return err
	}
	if n < len(ids) {
		return ErrNotFound
	}
	return nil
}

func (svc *service) Join(ctx context.Context, principal core.Principal, groupID string) error {
	if !svc.policy.Allows(principal, core.ResourceGroup, core.ActionJoin) {
		return core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetGroup(ctx, GetFilter{ID: groupID}); err != nil {
		return err
	}
	return svc.repo.AddMember(ctx, groupID, principal.ID)
}

func (svc *service) Leave(ctx context.Context, principal core.Principal, groupID string) error {
	if !svc.policy.Allows(principal, core.ResourceGroup, core.ActionJoin) {
		return core.ErrPermissionDenied
	}
	return svc.repo.RemoveMember(ctx, groupID, principal.ID)
}
