/*
Package search defines the external search index capability consumed by the
repository layer, along with two implementations:

  - HTTPService talks to a remote search service over its JSON API
  - MemoryService is an in-memory index for tests and local development

The repository mirrors persisted entities into an index on every write and
removes them on delete; Query returns matching ids only, which the
repository rehydrates from the primary store. See datastore.WithSearch.
*/
package search
