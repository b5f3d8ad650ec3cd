// Package testutil holds fixtures shared by package tests: entity
// descriptors, seeded rows and the behavioral contract every
// executor.Backend must satisfy.
package testutil

import (
	"github.com/roach88/derive/internal/entity"
)

// UserDescriptor describes the User entity used across tests. The
// identifier is a number assigned by the backend.
func UserDescriptor() *entity.Descriptor {
	return entity.MustDescriptor("User", "id", []entity.Field{
		{Name: "id", Type: entity.TypeNumber},
		{Name: "email", Type: entity.TypeString},
		{Name: "status", Type: entity.TypeEnum, Enum: []string{"active", "disabled"}},
		{Name: "name", Type: entity.TypeString, Nullable: true},
		{Name: "age", Type: entity.TypeNumber},
		{Name: "verified", Type: entity.TypeBoolean},
		{Name: "createdAt", Type: entity.TypeDate},
	})
}

// AccountDescriptor describes an entity with a string identifier.
func AccountDescriptor() *entity.Descriptor {
	return entity.MustDescriptor("Account", "id", []entity.Field{
		{Name: "id", Type: entity.TypeString},
		{Name: "owner", Type: entity.TypeString},
		{Name: "balance", Type: entity.TypeNumber},
	})
}

// UserRows returns four users without identifiers. Saved in order they get
// ids 1 to 4:
//
//	1 alice@x.com active   Alice 31 verified
//	2 bob@y.com   active   -     25
//	3 carol@y.com disabled Carol 40 verified
//	4 dave@x.com  disabled -     19
//
// createdAt increases with the id.
func UserRows() []entity.Row {
	clock := NewDeterministicClock()
	return []entity.Row{
		{"email": "alice@x.com", "status": "active", "name": "Alice", "age": int64(31), "verified": true, "createdAt": clock.Next()},
		{"email": "bob@y.com", "status": "active", "name": nil, "age": int64(25), "verified": false, "createdAt": clock.Next()},
		{"email": "carol@y.com", "status": "disabled", "name": "Carol", "age": int64(40), "verified": true, "createdAt": clock.Next()},
		{"email": "dave@x.com", "status": "disabled", "name": nil, "age": int64(19), "verified": false, "createdAt": clock.Next()},
	}
}
