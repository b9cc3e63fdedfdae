// Package repositorycache decorates go-repository-bun repositories so that
// writes keep derived household state honest.
//
// # Overview
//
// Derived household state is cached by the state package and only rebuilt
// when a household is invalidated. Any write that reaches the database
// without invalidating its household leaves a stale bundle in the cache
// until the TTL expires. InvalidatingRepository closes that gap for generic
// CRUD code: it wraps a base repository, passes every call through, and after
// each successful write invalidates the households the write touched.
//
// # Basic Usage
//
//	items := repositorycache.New(baseItems, manager, func(row *bunstore.InventoryItemRow) string {
//		return row.HouseholdID.String()
//	})
//
//	// Use exactly like the base repository
//	_, err := items.Update(ctx, row)
//
// # Invalidation Rules
//
//   - Failed writes never invalidate. The error is returned unchanged.
//   - Single record writes invalidate the record's household.
//   - Update and upsert variants consult both the submitted and the returned
//     record, so a partial record still resolves a household.
//   - Bulk writes invalidate each distinct household once.
//   - DeleteMany and DeleteWhere only see criteria. They invalidate the
//     households attached with WithHouseholds, or every household when none
//     are attached.
//   - Invalidation failures are logged and swallowed. The write has already
//     happened and the cache TTL bounds how long the stale state can live.
//
// # Transactions
//
// The *Tx variants invalidate when the statement succeeds, not when the
// transaction commits. Callers that need commit ordering should run their
// transaction through state.RunAndInvalidate instead.
//
// # Compatibility
//
// InvalidatingRepository[T] implements repository.Repository[T] and is a
// drop-in replacement for the base repository.
package repositorycache
