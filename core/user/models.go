package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/utetezi/core"
)

// StudentInfo carries the fields required of users holding the student role.
type StudentInfo struct {
	StudentCode string `json:"student_code" validate:"required,alphanum_"`
	ClassName   string `json:"class_name" validate:"required"`
	Faculty     string `json:"faculty" validate:"required"`
}

// LecturerInfo carries the fields required of users holding the lecturer role.
type LecturerInfo struct {
	LecturerCode string `json:"lecturer_code" validate:"required,alphanum_"`
	Level        string `json:"level" validate:"required"`
}

// User is an account holding exactly one role. Student and Lecturer payloads
// are present iff the role matches; the other roles carry neither.
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone,omitempty"`
	IsActive     bool          `json:"is_active"`
	Role         string        `json:"role"`
	Student      *StudentInfo  `json:"student,omitempty"`
	Lecturer     *LecturerInfo `json:"lecturer,omitempty"`
	PasswordHash []byte        `json:"-"`
	CreatedAt    time.Time     `json:"created_at"` // UTC
	UpdatedAt    time.Time     `json:"updated_at"` // UTC
	LastLogin    time.Time     `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool     { return u.Role == core.RoleAdmin }
func (u *User) IsLecturer() bool  { return u.Role == core.RoleLecturer }
func (u *User) IsStudent() bool   { return u.Role == core.RoleStudent }
func (u *User) IsSecretary() bool { return u.Role == core.RoleSecretary }

// Principal returns the core.Principal identifying this user in service calls.
func (u *User) Principal() core.Principal {
	return core.Principal{ID: u.ID, Role: u.Role}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string        `json:"name" validate:"required"`
	Email           string        `json:"email" validate:"required,email"`
	Phone           string        `json:"phone" validate:"omitempty,min=9"`
	Role            string        `json:"role" validate:"required,role"`
	Student         *StudentInfo  `json:"student,omitempty"`
	Lecturer        *LecturerInfo `json:"lecturer,omitempty"`
	Password        string        `json:"password" validate:"required"`
	PasswordConfirm string        `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.asUser())
}

func (nu *NewUser) asUser() User {
	return User{
		Name:     nu.Name,
		Email:    nu.Email,
		Phone:    nu.Phone,
		Role:     nu.Role,
		Student:  nu.Student,
		Lecturer: nu.Lecturer,
	}
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string        `json:"name"`
	Email           string        `json:"email" validate:"omitempty,email"`
	Phone           string        `json:"phone" validate:"omitempty,min=9"`
	IsActive        *bool         `json:"is_active"`
	Role            string        `json:"role" validate:"omitempty,role"`
	Student         *StudentInfo  `json:"student,omitempty"`
	Lecturer        *LecturerInfo `json:"lecturer,omitempty"`
	Password        string        `json:"password" validate:"omitempty"`
	PasswordConfirm string        `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, svc Service) error {
	uu.Name = core.CleanString(uu.Name)
	if uu.Name == "" {
		uu.Name = origUsr.Name
	}
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	if uu.Email == "" {
		uu.Email = origUsr.Email
	}
	uu.Phone = core.CleanString(uu.Phone)
	if uu.Phone == "" {
		uu.Phone = origUsr.Phone
	}
	uu.Role = core.CleanString(uu.Role, true /* lower */)
	if uu.Role == "" {
		uu.Role = origUsr.Role
	}
	if uu.Student == nil {
		uu.Student = origUsr.Student
	}
	if uu.Lecturer == nil {
		uu.Lecturer = origUsr.Lecturer
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.asUser(), origUsr)
}

func (uu *UpdateUser) asUser() User {
	return User{
		Name:     uu.Name,
		Email:    uu.Email,
		Phone:    uu.Phone,
		Role:     uu.Role,
		Student:  uu.Student,
		Lecturer: uu.Lecturer,
	}
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// GetFilter selects a single user by one of its unique fields.
type GetFilter struct {
	ID    string
	Email string
}
