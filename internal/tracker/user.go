package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtracker/internal/auth"
	"jobtracker/internal/errcode"
	"jobtracker/internal/storage"
)

const (
	minPasswordLength = 8

	msgInvalidEmail     = "Enter a valid email address."
	msgDuplicateEmail   = "user with this email already exists."
	msgShortPassword    = "This password is too short. It must contain at least 8 characters."
	msgLongPassword     = "Ensure this field has no more than 72 bytes."
	msgBadCredentials   = "Unable to log in with provided credentials."
	msgDisabledAccount  = "User account is disabled."
	nonFieldErrorsField = "non_field_errors"
)

// UserInput is the write shape for registration and profile updates.
type UserInput struct {
	Email    Optional[string] `json:"email"`
	Password Optional[string] `json:"password"`
	Name     Optional[string] `json:"name"`
}

// UserView is the read shape of the authenticated account. The password never appears in it.
type UserView struct {
	PublicID uuid.UUID `json:"public_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	IsStaff  bool      `json:"is_staff"`
}

func newUserView(u *User) *UserView {
	return &UserView{PublicID: u.PublicID, Email: u.Email, Name: u.Name, IsStaff: u.IsStaff}
}

type UserService struct {
	db     *gorm.DB
	blobs  BlobStore
	logger *slog.Logger
}

func NewUserService(db *gorm.DB, blobs BlobStore, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{db: db, blobs: blobs, logger: logger}
}

// NormalizeEmail lower-cases the domain part and leaves the local part untouched.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

func checkEmail(errs *errcode.ValidationError, value Optional[string], required bool) string {
	if !value.Set {
		if required {
			errs.Add("email", msgRequired)
		}
		return ""
	}
	if value.Null {
		errs.Add("email", msgNull)
		return ""
	}
	email := NormalizeEmail(value.Value)
	switch {
	case email == "":
		errs.Add("email", msgBlank)
	case utf8.RuneCountInString(email) > maxNameLength || !ValidEmail(email):
		errs.Add("email", msgInvalidEmail)
	}
	return email
}

func checkPassword(errs *errcode.ValidationError, value Optional[string], required bool) string {
	if !value.Set {
		if required {
			errs.Add("password", msgRequired)
		}
		return ""
	}
	if value.Null {
		errs.Add("password", msgNull)
		return ""
	}
	if value.Value == "" {
		errs.Add("password", msgBlank)
		return ""
	}
	switch {
	case utf8.RuneCountInString(value.Value) < minPasswordLength:
		errs.Add("password", msgShortPassword)
	case len(value.Value) > auth.MaxPasswordBytes:
		errs.Add("password", msgLongPassword)
	}
	return value.Value
}

func (s *UserService) emailTaken(tx *gorm.DB, email string, excludeID uint) (bool, error) {
	var count int64
	q := tx.Model(&User{}).Where("LOWER(email) = LOWER(?)", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

// Register creates an active, non-staff account.
func (s *UserService) Register(ctx context.Context, in UserInput) (*UserView, error) {
	user, err := s.create(ctx, in, false)
	if err != nil {
		return nil, err
	}
	return newUserView(user), nil
}

// CreateStaff creates an account that can administer the deployment.
func (s *UserService) CreateStaff(ctx context.Context, email, password string) (*User, error) {
	return s.create(ctx, UserInput{Email: Some(email), Password: Some(password)}, true)
}

func (s *UserService) create(ctx context.Context, in UserInput, staff bool) (*User, error) {
	errs := &errcode.ValidationError{}
	email := checkEmail(errs, in.Email, true)
	password := checkPassword(errs, in.Password, true)
	var name string
	if in.Name.Present() {
		name = strings.TrimSpace(in.Name.Value)
		if utf8.RuneCountInString(name) > maxNameLength {
			errs.Add("name", msgTooLong)
		}
	}

	user := User{
		PublicID: uuid.New(),
		Email:    email,
		Name:     name,
		IsActive: true,
		IsStaff:  staff,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !errs.Has("email") {
			taken, err := s.emailTaken(tx, email, 0)
			if err != nil {
				return err
			}
			if taken {
				errs.Add("email", msgDuplicateEmail)
			}
		}
		if err := errs.Err(); err != nil {
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errcode.Invalid("email", msgDuplicateEmail)
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks credentials. Failures are reported as non-field validation errors.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = auth.CheckPasswordHash(password, "")
		return nil, errcode.Invalid(nonFieldErrorsField, msgBadCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, errcode.Invalid(nonFieldErrorsField, msgBadCredentials)
	}
	if !user.IsActive {
		return nil, errcode.Invalid(nonFieldErrorsField, msgDisabledAccount)
	}
	return &user, nil
}

// Active loads an account that may still use the API.
func (s *UserService) Active(ctx context.Context, id uint) (*User, error) {
	return activeUser(s.db.WithContext(ctx), id)
}

func activeUser(db *gorm.DB, id uint) (*User, error) {
	var user User
	err := db.Where("id = ? AND is_active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcode.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*UserView, error) {
	user, err := s.Active(ctx, id)
	if err != nil {
		return nil, err
	}
	return newUserView(user), nil
}

// Update changes email, name or password. A new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id uint, in UserInput) (*UserView, error) {
	var user *User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = activeUser(tx, id); err != nil {
			return err
		}

		errs := &errcode.ValidationError{}
		email := checkEmail(errs, in.Email, false)
		password := checkPassword(errs, in.Password, false)
		name := strings.TrimSpace(in.Name.Value)
		if in.Name.Present() && utf8.RuneCountInString(name) > maxNameLength {
			errs.Add("name", msgTooLong)
		}
		if in.Email.Present() && !errs.Has("email") {
			taken, err := s.emailTaken(tx, email, id)
			if err != nil {
				return err
			}
			if taken {
				errs.Add("email", msgDuplicateEmail)
			}
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if in.Email.Present() {
			user.Email = email
		}
		if in.Name.Set {
			user.Name = name
		}
		if in.Password.Present() {
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errcode.Invalid("email", msgDuplicateEmail)
			}
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newUserView(user), nil
}

// Delete removes the account and everything it owns, then the stored resume files.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.ErrNotFound
			}
			return fmt.Errorf("load user %d: %w", id, err)
		}
		return deleteOwnedRows(tx, id)
	})
	if err != nil {
		return err
	}
	if s.blobs == nil {
		return nil
	}
	if err := s.blobs.DeletePrefix(ctx, storage.ResumePrefix(id)); err != nil {
		s.logger.Error("delete resume objects of user", slog.Uint64("userID", uint64(id)), slog.String("error", err.Error()))
	}
	return nil
}
