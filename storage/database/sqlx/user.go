package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	Phone        null.String `db:"phone"`
	IsActive     bool        `db:"is_active"`
	Role         string      `db:"role"`
	StudentCode  null.String `db:"student_code"`
	ClassName    null.String `db:"class_name"`
	Faculty      null.String `db:"faculty"`
	LecturerCode null.String `db:"lecturer_code"`
	Level        null.String `db:"level"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    time.Time   `db:"last_login"`
}

func (r userRow) unpack() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone.String,
		IsActive:     r.IsActive,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.UTC(),
	}
	switch r.Role {
	case core.RoleStudent:
		usr.Student = &user.StudentInfo{
			StudentCode: r.StudentCode.String,
			ClassName:   r.ClassName.String,
			Faculty:     r.Faculty.String,
		}
	case core.RoleLecturer:
		usr.Lecturer = &user.LecturerInfo{
			LecturerCode: r.LecturerCode.String,
			Level:        r.Level.String,
		}
	}
	return usr
}

func packUser(usr user.User) userRow {
	r := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Phone:        null.NewString(usr.Phone, usr.Phone != ""),
		IsActive:     usr.IsActive,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    usr.LastLogin.UTC(),
	}
	if usr.Student != nil {
		r.StudentCode = null.StringFrom(usr.Student.StudentCode)
		r.ClassName = null.StringFrom(usr.Student.ClassName)
		r.Faculty = null.StringFrom(usr.Student.Faculty)
	}
	if usr.Lecturer != nil {
		r.LecturerCode = null.StringFrom(usr.Lecturer.LecturerCode)
		r.Level = null.StringFrom(usr.Lecturer.Level)
	}
	return r
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, usr user.User, excludedUsers []user.User, exec ...core.DBExecutor) error {
	checks := []struct {
		column string
		value  string
		err    error
	}{
		{"email", usr.Email, user.ErrEmailExists},
		{"phone", usr.Phone, user.ErrPhoneExists},
	}
	if usr.Student != nil {
		checks = append(checks, struct {
			column string
			value  string
			err    error
		}{"student_code", usr.Student.StudentCode, user.ErrStudentCodeExists})
	}
	if usr.Lecturer != nil {
		checks = append(checks, struct {
			column string
			value  string
			err    error
		}{"lecturer_code", usr.Lecturer.LecturerCode, user.ErrLecturerCodeExists})
	}

	excludedIDs := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		excludedIDs = append(excludedIDs, u.ID)
	}

	for _, check := range checks {
		if check.value == "" {
			continue
		}
		query := "SELECT EXISTS (SELECT 1 FROM users WHERE " + check.column + " = ?"
		args := []interface{}{check.value}
		if len(excludedIDs) > 0 {
			var in string
			var inArgs []interface{}
			var err error
			if in, inArgs, err = sqlxIn("id NOT IN (?)", excludedIDs); err != nil {
				return errors.Wrap(err, "checking user uniqueness")
			}
			query += " AND " + in
			args = append(args, inArgs...)
		}
		query += ")"

		db := getExec(repo.exec, exec)
		var exists bool
		if err := db.QueryRowxContext(ctx, db.Rebind(query), args...).Scan(&exists); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if exists {
			return check.err
		}
	}
	return nil
}

const userColumns = `id, name, email, phone, is_active, role, student_code, class_name, faculty, lecturer_code, level, password_hash, created_at, updated_at, last_login`

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	r := packUser(usr)

	db := getExec(repo.exec, exec)
	query := db.Rebind(`
INSERT INTO users (` + userColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := db.ExecContext(ctx, query,
		r.ID, r.Name, r.Email, r.Phone, r.IsActive, r.Role,
		r.StudentCode, r.ClassName, r.Faculty, r.LecturerCode, r.Level,
		r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var clauses []string
	var args []interface{}

	if filter != nil && !filter.IsEmpty() {
		filter.Clean()
		if filter.Search != "" {
			clauses = append(clauses, "(name ILIKE ? OR email ILIKE ? OR student_code ILIKE ? OR lecturer_code ILIKE ?)")
			like := "%" + filter.Search + "%"
			args = append(args, like, like, like, like)
		}
		if filter.Role != "" {
			clauses = append(clauses, "role = ?")
			args = append(args, filter.Role)
		}
		if filter.IsActive != nil {
			clauses = append(clauses, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			clauses = append(clauses, "created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			clauses = append(clauses, "created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderingClause(ordering, "created_at DESC")

	db := getExec(repo.exec, exec)
	var rows []userRow
	if err := selectContext(ctx, db, &rows, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.unpack())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE "
	var arg interface{}
	switch {
	case filter.ID != "":
		query += "id = ?"
		arg = filter.ID
	case filter.Email != "":
		query += "email = ?"
		arg = filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	db := getExec(repo.exec, exec)
	var r userRow
	if err := getContext(ctx, db, &r, db.Rebind(query), arg); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return r.unpack(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	r := packUser(usr)

	db := getExec(repo.exec, exec)
	query := db.Rebind(`
UPDATE users
SET name = ?, email = ?, phone = ?, is_active = ?, role = ?,
    student_code = ?, class_name = ?, faculty = ?, lecturer_code = ?, level = ?,
    password_hash = ?, updated_at = ?, last_login = ?
WHERE id = ?`)
	res, err := db.ExecContext(ctx, query,
		r.Name, r.Email, r.Phone, r.IsActive, r.Role,
		r.StudentCode, r.ClassName, r.Faculty, r.LecturerCode, r.Level,
		r.PasswordHash, r.UpdatedAt, r.LastLogin, r.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	existing, err := repo.GetUser(ctx, user.GetFilter{Email: usr.Email}, exec...)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return repo.CreateUser(ctx, usr, exec...)
		}
		return user.User{}, err
	}
	usr.ID = existing.ID
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlxIn("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}

	db := getExec(repo.exec, exec)
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
