package defense

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/group"
)

// maxTxAttempts bounds scheduling transaction retries on serialization failure.
const maxTxAttempts = 3

var (
	// errors
	ErrNotFound          = errors.New("defense not found")
	ErrScoreNotFound     = errors.New("lecturer defense not found")
	ErrUnknownLecturer   = errors.New("unknown lecturer")
	ErrDuplicateLecturer = errors.New("lecturer is already assigned to this defense")
)

// TimeConflictError reports lecturers whose existing defenses overlap a
// requested time block. It renders as a validation failure on the API.
type TimeConflictError struct {
	Conflicts []Conflict
}

func (e *TimeConflictError) Error() string {
	return fmt.Sprintf("time conflict with %d existing defense booking(s)", len(e.Conflicts))
}

type (
	Repository interface {
		// CreateDefense assigns the defense its ID and unique DefenseCode.
		CreateDefense(ctx context.Context, def Defense, exec ...core.DBExecutor) (Defense, error)
		// QueryDefenses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Name or DefenseCode.
		QueryDefenses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Defense, error)
		GetDefense(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Defense, error)
		UpdateDefense(ctx context.Context, def Defense, exec ...core.DBExecutor) (Defense, error)
		DeleteDefensesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		// CreateLecturerDefense fails with ErrDuplicateLecturer when the lecturer
		// already holds a row for the defense.
		CreateLecturerDefense(ctx context.Context, ld LecturerDefense, exec ...core.DBExecutor) (LecturerDefense, error)
		DeleteLecturerDefenses(ctx context.Context, defenseID string, lecturerIDs []string, exec ...core.DBExecutor) error
		GetLecturerDefense(ctx context.Context, id string, exec ...core.DBExecutor) (LecturerDefense, error)
		UpdateLecturerDefense(ctx context.Context, ld LecturerDefense, exec ...core.DBExecutor) (LecturerDefense, error)
		QueryLecturerDefenses(ctx context.Context, lecturerID string, exec ...core.DBExecutor) ([]Defense, error)

		// LecturerCommitments returns every booking the given lecturers hold on
		// date, excluding rows of excludeDefenseID when set.
		LecturerCommitments(ctx context.Context, lecturerIDs []string, date core.Date, excludeDefenseID string, exec ...core.DBExecutor) ([]Commitment, error)
		// GetLecturers resolves ids against active users holding the lecturer role.
		GetLecturers(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Lecturer, error)
	}

	Service interface {
		// CheckAvailability reports the conflicting commitments of the given
		// lecturers on date for the requested block. An empty result means all
		// lecturers are free.
		CheckAvailability(ctx context.Context, date core.Date, block core.TimeBlock, lecturerIDs []string, excludeDefenseID string) ([]Conflict, error)
		Create(ctx context.Context, principal core.Principal, nd NewDefense) (Defense, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Defense, error)
		GetByID(ctx context.Context, id string) (Defense, error)
		Update(ctx context.Context, principal core.Principal, id string, ud UpdateDefense) (Defense, error)
		Delete(ctx context.Context, principal core.Principal, ids ...string) error
		// QueryForLecturer returns the defenses a lecturer sits on, newest first.
		QueryForLecturer(ctx context.Context, lecturerID string) ([]Defense, error)
		// RecordScore patches the point/comment of a single LecturerDefense row.
		// Only the owning lecturer (or an admin) may score.
		RecordScore(ctx context.Context, principal core.Principal, id string, su ScoreUpdate) (LecturerDefense, error)
	}

	service struct {
		db        core.DB
		repo      Repository
		groupRepo group.Repository
		mailSvc   core.EmailService
		policy    core.AccessPolicy
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, groupRepo group.Repository, mailSvc core.EmailService, policy core.AccessPolicy) Service {
	return &service{
		db:        db,
		repo:      repo,
		groupRepo: groupRepo,
		mailSvc:   mailSvc,
		policy:    policy,
	}
}

func (svc *service) CheckAvailability(ctx context.Context, date core.Date, block core.TimeBlock, lecturerIDs []string, excludeDefenseID string) ([]Conflict, error) {
	commitments, err := svc.repo.LecturerCommitments(ctx, lecturerIDs, date, excludeDefenseID)
	if err != nil {
		return nil, err
	}
	return FindConflicts(block, lecturerIDs, commitments), nil
}

// atomic runs fn inside a serializable transaction so the availability read
// and the writes act on one snapshot; serialization failures are retried.
// A nil db runs fn bare.
func (svc *service) atomic(ctx context.Context, fn func(tx core.DBExecutor) error) error {
	if svc.db == nil {
		return fn(nil)
	}
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	return core.RetrySerializable(maxTxAttempts, func() error {
		return core.Atomic(ctx, svc.db, opts, fn)
	})
}

func (svc *service) Create(ctx context.Context, principal core.Principal, nd NewDefense) (Defense, error) {
	def, lecturers, err := svc.create(ctx, principal, nd)
	if err != nil {
		return Defense{}, err
	}
	go svc.sendDefenseScheduledMail(def, lecturers)
	return svc.GetByID(ctx, def.ID)
}

func (svc *service) create(ctx context.Context, principal core.Principal, nd NewDefense) (Defense, []Lecturer, error) {
	if !svc.policy.Allows(principal, core.ResourceDefense, core.ActionCreate) {
		return Defense{}, nil, core.ErrPermissionDenied
	}

	lecturers, err := svc.getLecturers(ctx, nd.LecturerIDs)
	if err != nil {
		return Defense{}, nil, err
	}

	now := time.Now().UTC()
	def := Defense{
		Name:      nd.Name,
		Status:    nd.Status,
		Date:      nd.date,
		TimeBlock: nd.block,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if def.Status == "" {
		def.Status = StatusWaiting
	}

	err = svc.atomic(ctx, func(tx core.DBExecutor) error {
		commitments, err := svc.repo.LecturerCommitments(ctx, nd.LecturerIDs, def.Date, "", tx)
		if err != nil {
			return err
		}
		if conflicts := FindConflicts(def.TimeBlock, nd.LecturerIDs, commitments); len(conflicts) > 0 {
			return &TimeConflictError{Conflicts: conflicts}
		}

		if def, err = svc.repo.CreateDefense(ctx, def, tx); err != nil {
			return err
		}
		for _, lecturerID := range nd.LecturerIDs {
			ld := LecturerDefense{
				LecturerID: lecturerID,
				DefenseID:  def.ID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if ld, err = svc.repo.CreateLecturerDefense(ctx, ld, tx); err != nil {
				return err
			}
			def.LecturerDefenses = append(def.LecturerDefenses, ld)
		}
		if len(nd.GroupIDs) > 0 {
			if err = svc.groupRepo.AssignDefense(ctx, nd.GroupIDs, null.StringFrom(def.ID), tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Defense{}, nil, err
	}
	return def, lecturers, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Defense, error) {
	return svc.repo.QueryDefenses(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Defense, error) {
	return svc.repo.GetDefense(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, principal core.Principal, id string, ud UpdateDefense) (Defense, error) {
	if !svc.policy.Allows(principal, core.ResourceDefense, core.ActionUpdate) {
		return Defense{}, core.ErrPermissionDenied
	}

	def, err := svc.repo.GetDefense(ctx, GetFilter{ID: id})
	if err != nil {
		return Defense{}, err
	}

	if ud.Name != "" {
		def.Name = ud.Name
	}
	if ud.Status != "" {
		def.Status = ud.Status
	}
	if !ud.date.IsZero() {
		def.Date = ud.date
	}
	if !ud.block.IsZero() {
		def.TimeBlock = ud.block
	}

	lecturerIDs := ud.LecturerIDs
	if lecturerIDs == nil {
		for _, ld := range def.LecturerDefenses {
			lecturerIDs = append(lecturerIDs, ld.LecturerID)
		}
	} else {
		if _, err = svc.getLecturers(ctx, lecturerIDs); err != nil {
			return Defense{}, err
		}
	}

	now := time.Now().UTC()
	def.UpdatedAt = now

	err = svc.atomic(ctx, func(tx core.DBExecutor) error {
		// the defense's own rows must not count as conflicts when the slot moves
		commitments, err := svc.repo.LecturerCommitments(ctx, lecturerIDs, def.Date, def.ID, tx)
		if err != nil {
			return err
		}
		if conflicts := FindConflicts(def.TimeBlock, lecturerIDs, commitments); len(conflicts) > 0 {
			return &TimeConflictError{Conflicts: conflicts}
		}

		if def, err = svc.repo.UpdateDefense(ctx, def, tx); err != nil {
			return err
		}
		if ud.LecturerIDs != nil {
			if err = svc.reconcileLecturers(ctx, &def, ud.LecturerIDs, now, tx); err != nil {
				return err
			}
		}
		if ud.GroupIDs != nil {
			if err = svc.groupRepo.AssignDefense(ctx, ud.GroupIDs, null.StringFrom(def.ID), tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Defense{}, err
	}
	return svc.GetByID(ctx, def.ID)
}

// reconcileLecturers diffs the wanted lecturer set against def's existing rows,
// deleting stale rows (and their scores) and inserting missing ones.
func (svc *service) reconcileLecturers(ctx context.Context, def *Defense, wantedIDs []string, now time.Time, exec core.DBExecutor) error {
	wanted := make(map[string]bool, len(wantedIDs))
	for _, id := range wantedIDs {
		wanted[id] = true
	}
	existing := make(map[string]bool, len(def.LecturerDefenses))
	var stale []string
	for _, ld := range def.LecturerDefenses {
		existing[ld.LecturerID] = true
		if !wanted[ld.LecturerID] {
			stale = append(stale, ld.LecturerID)
		}
	}

	if len(stale) > 0 {
		if err := svc.repo.DeleteLecturerDefenses(ctx, def.ID, stale, exec); err != nil {
			return err
		}
	}
	for _, id := range wantedIDs {
		if existing[id] {
			continue
		}
		ld := LecturerDefense{
			LecturerID: id,
			DefenseID:  def.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := svc.repo.CreateLecturerDefense(ctx, ld, exec); err != nil {
			return err
		}
	}
	return nil
}

func (svc *service) Delete(ctx context.Context, principal core.Principal, ids ...string) error {
	if !svc.policy.Allows(principal, core.ResourceDefense, core.ActionDelete) {
		return core.ErrPermissionDenied
	}
	// lecturer_defenses rows cascade; groups keep existing but lose the reference
	n, err := svc.repo.DeleteDefensesByID(ctx, ids)
	if err != nil {
		return err
	}
	if n < len(ids) {
		return ErrNotFound
	}
	return nil
}

func (svc *service) QueryForLecturer(ctx context.Context, lecturerID string) ([]Defense, error) {
	return svc.repo.QueryLecturerDefenses(ctx, lecturerID)
}

func (svc *service) RecordScore(ctx context.Context, principal core.Principal, id string, su ScoreUpdate) (LecturerDefense, error) {
	ld, err := svc.repo.GetLecturerDefense(ctx, id)
	if err != nil {
		return LecturerDefense{}, err
	}
	if !svc.policy.Allows(principal, core.ResourceScore, core.ActionUpdate, ld.LecturerID) {
		return LecturerDefense{}, core.ErrPermissionDenied
	}

	if su.Point != nil {
		ld.Point = null.Float64From(*su.Point)
	}
	if su.Comment != nil {
		ld.Comment = null.NewString(*su.Comment, *su.Comment != "")
	}
	ld.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLecturerDefense(ctx, ld)
}

// getLecturers resolves ids and fails with a field-level validation error when
// one of them is not an active lecturer.
func (svc *service) getLecturers(ctx context.Context, ids []string) ([]Lecturer, error) {
	lecturers, err := svc.repo.GetLecturers(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(lecturers) != len(ids) {
		return nil, core.NewValidationError(ErrUnknownLecturer, core.FieldError{Field: "lecturer_ids", Error: ErrUnknownLecturer.Error()})
	}
	return lecturers, nil
}

func (svc *service) sendDefenseScheduledMail(def Defense, lecturers []Lecturer) {
	msgs := make([]*core.EmailMessage, len(lecturers))
	for i, lect := range lecturers {
		msgs[i] = &core.EmailMessage{
			To:           []mail.Address{{Name: lect.Name, Address: lect.Email}},
			Subject:      fmt.Sprintf("Defense Scheduled: %s", def.DefenseCode),
			TemplateName: "defense-scheduled",
			TemplateData: struct {
				Lecturer Lecturer
				Defense  Defense
			}{lect, def},
		}
	}
	svc.mailSvc.SendMessages(msgs...)
}
