// Package store persists the development backend's people, activities and
// schedules.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Almirante-Ming/Rose/booking"
	"github.com/Almirante-Ming/Rose/directory"
	"golang.org/x/crypto/bcrypt"
)

type Store interface {
	// FindAccount looks a person up by email or phone.
	FindAccount(ctx context.Context, login string) (Account, error)

	ListSchedules(ctx context.Context, personID int64, r Range) ([]booking.Booking, error)
	GetSchedule(ctx context.Context, id int64) (booking.Booking, error)
	InsertSchedule(ctx context.Context, b booking.Booking) (booking.Booking, error)
	UpdateSchedule(ctx context.Context, b booking.Booking) (booking.Booking, error)
	DeleteSchedule(ctx context.Context, id int64) error

	ListPersons(ctx context.Context) ([]directory.Person, error)
	GetPerson(ctx context.Context, id int64) (directory.Person, error)
	InsertPerson(ctx context.Context, p directory.Person, passwordHash string) (directory.Person, error)
	// UpdatePerson keeps the stored password when passwordHash is empty.
	UpdatePerson(ctx context.Context, p directory.Person, passwordHash string) (directory.Person, error)
	DeletePerson(ctx context.Context, id int64) error

	ListMachines(ctx context.Context) ([]directory.Machine, error)
	GetMachine(ctx context.Context, id int64) (directory.Machine, error)
	InsertMachine(ctx context.Context, m directory.Machine) (directory.Machine, error)
	UpdateMachine(ctx context.Context, m directory.Machine) (directory.Machine, error)
	DeleteMachine(ctx context.Context, id int64) error
}

// Range bounds a schedule listing by date, both ends inclusive. An empty
// bound is open.
type Range struct {
	Start string
	End   string
}

func (r Range) contains(date string) bool {
	if len(r.Start) > 0 && date < r.Start {
		return false
	}

	if len(r.End) > 0 && date > r.End {
		return false
	}

	return true
}

type Account struct {
	Person       directory.Person
	PasswordHash string
}

// AccessLevel is the level carried in the account's tokens.
func (a Account) AccessLevel() int {
	return AccessLevel(a.Person.Type)
}

func AccessLevel(t directory.PersonType) int {
	switch t {
	case directory.PersonAdmin:
		return 2
	case directory.PersonTrainer:
		return 1
	}

	return 0
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

func CheckPassword(hash, plain string) bool {
	if len(hash) == 0 {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// EnsureAdmin creates an admin account for email unless one can already log
// in with it.
func EnsureAdmin(ctx context.Context, s Store, email, password string) (directory.Person, error) {
	email = strings.TrimSpace(email)

	account, err := s.FindAccount(ctx, email)

	if err == nil {
		return account.Person, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return directory.Person{}, err
	}

	hash, err := HashPassword(password)

	if err != nil {
		return directory.Person{}, err
	}

	return s.InsertPerson(ctx, directory.Person{
		Name:  "Administrator",
		Email: email,
		Type:  directory.PersonAdmin,
	}, hash)
}

func normalizeStatus(b booking.Booking) booking.Booking {
	if len(b.Status) == 0 {
		b.Status = booking.StatusMarked
	}

	return b
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)
