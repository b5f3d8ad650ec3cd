// Package repository is the typed facade over the derive core.
//
// A Repository[T] offers CRUD by identifier and binds derived methods:
// names such as findByEmail or countByStatusAndVerified are parsed once,
// checked against a declared argument signature, and executed through the
// executor against any executor.Backend.
//
//	repo := repository.New(users.Descriptor, users.Mapper, memstore.New())
//	byEmail, err := repository.FindBy1[users.User, string](repo, "findByEmail")
//	found, err := byEmail(ctx, "a@b.com")
//
// Every method is safe for concurrent use. The only state shared between
// calls is the parse cache.
package repository
