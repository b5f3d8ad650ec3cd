// Package users is the User entity wired by hand onto the repository core:
// a struct, its descriptor and mapper, and a repository with FindByEmail.
// It is what the codegen package produces for a schema entity, written out
// for readers who do not use the generator.
package users

import (
	"context"
	"time"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/executor"
	"github.com/roach88/derive/internal/repository"
)

// Status values of User.Status.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User is a registered account holder.
type User struct {
	ID        int64
	Email     string
	Status    string
	Name      *string
	CreatedAt time.Time
}

// Descriptor describes User.
var Descriptor = entity.MustDescriptor("User", "id", []entity.Field{
	{Name: "id", Type: entity.TypeNumber},
	{Name: "email", Type: entity.TypeString},
	{Name: "status", Type: entity.TypeEnum, Enum: []string{StatusActive, StatusDisabled}},
	{Name: "name", Type: entity.TypeString, Nullable: true},
	{Name: "createdAt", Type: entity.TypeDate},
})

// Mapper converts User values to and from rows.
var Mapper entity.Mapper[User] = entity.MapperFuncs[User]{To: toRow, From: fromRow}

func toRow(u User) entity.Row {
	r := entity.Row{
		"id":        u.ID,
		"email":     u.Email,
		"status":    u.Status,
		"createdAt": u.CreatedAt,
	}
	if u.Name != nil {
		r["name"] = *u.Name
	}
	return r
}

func fromRow(r entity.Row) (User, error) {
	var (
		u   User
		err error
	)
	if u.ID, err = entity.Int64(r, "id"); err != nil {
		return User{}, err
	}
	if u.Email, err = entity.String(r, "email"); err != nil {
		return User{}, err
	}
	if u.Status, err = entity.String(r, "status"); err != nil {
		return User{}, err
	}
	if u.Name, err = entity.Nullable(r, "name", entity.String); err != nil {
		return User{}, err
	}
	if u.CreatedAt, err = entity.Time(r, "createdAt"); err != nil {
		return User{}, err
	}
	return u, nil
}

// Repository stores users. Besides the generic operations it exposes the
// derived lookups declared in NewRepository.
type Repository struct {
	*repository.Repository[User]

	// FindByEmail returns every user with the given email. Uniqueness is
	// not enforced by storage, so the result may hold more than one user.
	FindByEmail func(ctx context.Context, email string) ([]User, error)

	// FindFirstByEmail returns the lowest-id user with the given email.
	FindFirstByEmail func(ctx context.Context, email string) (User, bool, error)

	// FindByStatusIn returns users whose status is one of statuses.
	FindByStatusIn func(ctx context.Context, statuses []string) ([]User, error)

	// CountByStatus counts users with the given status.
	CountByStatus func(ctx context.Context, status string) (int64, error)
}

// NewRepository binds the user repository to backend. It fails only if a
// declared method does not fit Descriptor.
func NewRepository(backend executor.Backend, opts ...repository.Option) (*Repository, error) {
	r := &Repository{Repository: repository.New(Descriptor, Mapper, backend, opts...)}

	var err error
	if r.FindByEmail, err = repository.FindBy1[User, string](r.Repository, "findByEmail"); err != nil {
		return nil, err
	}
	if r.FindFirstByEmail, err = repository.FindOneBy1[User, string](r.Repository, "findFirstByEmailOrderByIdAsc"); err != nil {
		return nil, err
	}
	if r.FindByStatusIn, err = repository.FindBy1[User, []string](r.Repository, "findByStatusIn"); err != nil {
		return nil, err
	}
	if r.CountByStatus, err = repository.CountBy1[User, string](r.Repository, "countByStatus"); err != nil {
		return nil, err
	}
	return r, nil
}
