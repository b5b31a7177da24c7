package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) CreateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g.ID = uuid.New().String()
	g.GroupCode = repo.db.nextGroupCode()
	repo.db.groups[g.ID] = &g
	return g, nil
}

func (repo *groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var groups []group.Group
	for _, g := range repo.db.groups {
		if filter != nil && !matchGroup(*g, filter) {
			continue
		}
		groups = append(groups, *g)
	}
	return groups, nil
}

func matchGroup(g group.Group, filter *group.QueryFilter) bool {
	if filter.Status != "" && g.Status != filter.Status {
		return false
	}
	if filter.LecturerID != "" && g.LecturerID.String != filter.LecturerID {
		return false
	}
	if filter.DefenseID != "" && g.DefenseID.String != filter.DefenseID {
		return false
	}
	if filter.MemberID != "" {
		var found bool
		for _, m := range g.Members {
			if m.UserID == filter.MemberID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(g.Name+" "+g.GroupCode), s) {
			return false
		}
	}
	return true
}

func (repo *groupRepository) GetGroup(ctx context.Context, filter group.GetFilter, exec ...core.DBExecutor) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if g, ok := repo.db.groups[filter.ID]; ok {
			return *g, nil
		}
		return group.Group{}, group.ErrNotFound
	}
	if filter.GroupCode != "" {
		for _, g := range repo.db.groups {
			if g.GroupCode == filter.GroupCode {
				return *g, nil
			}
		}
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	existing, ok := repo.db.groups[g.ID]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	g.Members = existing.Members
	repo.db.groups[g.ID] = &g
	return g, nil
}

func (repo *groupRepository) DeleteGroupsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.groups[id]; ok {
			delete(repo.db.groups, id)
			n++
		}
	}
	return n, nil
}

func (repo *groupRepository) AssignDefense(ctx context.Context, groupIDs []string, defenseID null.String, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range groupIDs {
		if g, ok := repo.db.groups[id]; ok {
			g.DefenseID = defenseID
			g.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (repo *groupRepository) AddMember(ctx context.Context, groupID, userID string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g, ok := repo.db.groups[groupID]
	if !ok {
		return group.ErrNotFound
	}
	for _, m := range g.Members {
		if m.UserID == userID {
			return group.ErrAlreadyMember
		}
	}
	var name string
	if usr, ok := repo.db.users[userID]; ok {
		name = usr.Name
	}
	g.Members = append(g.Members, group.Member{UserID: userID, Name: name, JoinedAt: time.Now().UTC()})
	return nil
}

func (repo *groupRepository) RemoveMember(ctx context.Context, groupID, userID string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g, ok := repo.db.groups[groupID]
	if !ok {
		return group.ErrNotFound
	}
	for i, m := range g.Members {
		if m.UserID == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return nil
		}
	}
	return group.ErrNotMember
}
