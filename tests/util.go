package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/defense"
	"github.com/trezcool/utetezi/core/group"
	"github.com/trezcool/utetezi/core/topic"
	"github.com/trezcool/utetezi/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	switch role {
	case core.RoleStudent:
		usr.Student = &user.StudentInfo{StudentCode: "S" + name, ClassName: "SE1", Faculty: "IT"}
	case core.RoleLecturer:
		usr.Lecturer = &user.LecturerInfo{LecturerCode: "L" + name, Level: "MSc"}
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateLecturer(t *testing.T, repo user.Repository, name, email string) user.User {
	return CreateUser(t, repo, name, email, "", core.RoleLecturer, true)
}

func CreateTopic(t *testing.T, repo topic.Repository, name, status, lecturerID string) topic.Topic {
	tstamp := time.Now().UTC()
	tpc := topic.Topic{
		Name:       name,
		Status:     status,
		LecturerID: null.NewString(lecturerID, lecturerID != ""),
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	tpc, err := repo.CreateTopic(context.Background(), tpc)
	if err != nil {
		t.Fatalf("CreateTopic(): %v", err)
	}
	return tpc
}

func CreateGroup(t *testing.T, repo group.Repository, name, status, lecturerID string) group.Group {
	tstamp := time.Now().UTC()
	grp := group.Group{
		Name:       name,
		Status:     status,
		LecturerID: null.NewString(lecturerID, lecturerID != ""),
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	grp, err := repo.CreateGroup(context.Background(), grp)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	return grp
}

// CreateDefense books a defense on date over [start, end) and fans out a
// scoring row per lecturer.
func CreateDefense(
	t *testing.T,
	repo defense.Repository,
	name string,
	date core.Date,
	start, end core.TimeOfDay,
	lecturerIDs ...string,
) defense.Defense {
	tstamp := time.Now().UTC()
	def := defense.Defense{
		Name:      name,
		Status:    defense.StatusWaiting,
		Date:      date,
		TimeBlock: core.TimeBlock{Start: start, End: end},
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	def, err := repo.CreateDefense(context.Background(), def)
	if err != nil {
		t.Fatalf("CreateDefense(): %v", err)
	}
	for _, lectID := range lecturerIDs {
		ld := defense.LecturerDefense{
			LecturerID: lectID,
			DefenseID:  def.ID,
			CreatedAt:  tstamp,
			UpdatedAt:  tstamp,
		}
		if _, err = repo.CreateLecturerDefense(context.Background(), ld); err != nil {
			t.Fatalf("CreateDefense(): %v", err)
		}
	}
	def, err = repo.GetDefense(context.Background(), defense.GetFilter{ID: def.ID})
	if err != nil {
		t.Fatalf("CreateDefense(): %v", err)
	}
	return def
}
