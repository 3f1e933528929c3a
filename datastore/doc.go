/*
Package datastore provides a typed repository layer over Google Cloud
Datastore: CRUD, declarative queries with cursors, transaction
participation, optional schema validation, optional search-index
synchronization and automatic timestamping.

A repository is fixed to one kind and parameterized by an entity type
whose pointer implements Entity (embed BaseEntity):

	type User struct {
	    datastore.BaseEntity
	    Name  string `datastore:"name" valid:"required"`
	    Email string `datastore:"email" valid:"email"`
	}

	driver := datastore.NewCloudDriverWithClient(client)
	users, err := datastore.NewRepository[User](driver, "users",
	    datastore.WithValidator[User](datastore.NewStructValidator[User]()))

	user, err := users.Save(ctx, &User{BaseEntity: datastore.BaseEntity{ID: "u1"}, Name: "Ada"})
	user, err = users.GetRequired(ctx, "u1")

Queries are declarative and cursor-aware:

	results, info, err := users.RunQuery(ctx, users.NewQuery().
	    FilterEq("name", "Ada").
	    OrderAsc("email").
	    WithLimit(10))
	next := users.NewQuery().OrderAsc("email").Start(info.EndCursor)

Transactions established by RunInTransaction are joined by every
repository call made with the transaction context, with read-your-writes
consistency inside the transaction:

	err := datastore.RunInTransaction(ctx, driver, func(tctx context.Context) error {
	    if _, err := users.Save(tctx, user); err != nil {
	        return err
	    }
	    same, err := users.Get(tctx, user.ID) // sees the uncommitted save
	    return err
	})

The driver is consumed through the narrow Driver interface: CloudDriver
adapts the real client and the mock package provides an in-memory
implementation for tests.
*/
package datastore
