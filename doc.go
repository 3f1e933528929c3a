/*
Package gaejs is a repository abstraction over Google Cloud Datastore,
providing typed CRUD, declarative queries, transaction participation,
optional schema validation, optional search-index synchronization and
automatic timestamping.

Key packages:
  - datastore: the repository core (entities, queries, transactions,
    persistence hooks, search sync)
  - datastore/mock: in-memory driver for tests
  - search: the external search service contract with HTTP and in-memory
    implementations
  - errors: semantic error types shared across the library
  - config: YAML + dotenv configuration loading

The root package holds a typed registry so an application can wire all
its repositories in one place:

	reg := gaejs.NewRegistry()
	users, _ := datastore.NewRepository[User](driver, "users")
	_ = gaejs.RegisterRepository(reg, users)

	repo, _ := gaejs.GetRepository[User](reg, "users")
	user, err := repo.GetRequired(ctx, "u1")
*/
package gaejs
