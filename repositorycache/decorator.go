package repositorycache

import (
	"context"
	"log/slog"
	"reflect"
	"slices"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Interface assertion to ensure InvalidatingRepository implements Repository[T]
var _ repository.Repository[any] = (*InvalidatingRepository[any])(nil)

// Invalidator drops cached household state. *state.Manager implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, householdID string) error
	InvalidateAll(ctx context.Context) error
}

// HouseholdFunc returns the household a record belongs to.
type HouseholdFunc[T any] func(record T) string

// Option configures an InvalidatingRepository.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	resource string
}

// WithLogger sets the logger used to report failed invalidations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithResource overrides the resource name used in log records. It defaults
// to the snake_cased record type name.
func WithResource(name string) Option {
	return func(o *options) {
		if name != "" {
			o.resource = name
		}
	}
}

// InvalidatingRepository decorates a base repository so that every successful
// write drops the derived state of the households it touched. Reads and raw
// queries go straight to the base repository.
type InvalidatingRepository[T any] struct {
	repository.Repository[T]
	invalidator Invalidator
	householdOf HouseholdFunc[T]
	logger      *slog.Logger
	resource    string
}

// New wraps base. householdOf must return the owning household of a record.
func New[T any](base repository.Repository[T], invalidator Invalidator, householdOf HouseholdFunc[T], opts ...Option) *InvalidatingRepository[T] {
	o := options{
		logger:   slog.Default(),
		resource: resourceName[T](),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &InvalidatingRepository[T]{
		Repository:  base,
		invalidator: invalidator,
		householdOf: householdOf,
		logger:      o.logger,
		resource:    o.resource,
	}
}

// Create creates a new record and invalidates its household
func (r *InvalidatingRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := r.Repository.Create(ctx, record, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "create", result)
	}
	return result, err
}

// CreateTx creates a new record within a transaction. The household is
// invalidated as soon as the statement succeeds, which can be before the
// caller commits; a reader in between may cache pre-commit state until the
// next write or the TTL.
func (r *InvalidatingRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "create", result)
	}
	return result, err
}

// CreateMany creates multiple records and invalidates each distinct household
func (r *InvalidatingRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := r.Repository.CreateMany(ctx, records, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "create_many", result...)
	}
	return result, err
}

// CreateManyTx creates multiple records within a transaction
func (r *InvalidatingRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := r.Repository.CreateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "create_many", result...)
	}
	return result, err
}

// GetOrCreate gets a record or creates it if it doesn't exist. The household
// is invalidated either way since the call cannot tell which happened.
func (r *InvalidatingRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := r.Repository.GetOrCreate(ctx, record)
	if err == nil {
		r.invalidateRecords(ctx, "get_or_create", result)
	}
	return result, err
}

// GetOrCreateTx gets a record or creates it within a transaction
func (r *InvalidatingRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := r.Repository.GetOrCreateTx(ctx, tx, record)
	if err == nil {
		r.invalidateRecords(ctx, "get_or_create", result)
	}
	return result, err
}

// Update updates a record. Both the submitted and the returned record are
// consulted so partial updates still resolve a household.
func (r *InvalidatingRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.Repository.Update(ctx, record, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "update", record, result)
	}
	return result, err
}

// UpdateTx updates a record within a transaction
func (r *InvalidatingRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.Repository.UpdateTx(ctx, tx, record, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "update", record, result)
	}
	return result, err
}

// UpdateMany updates multiple records
func (r *InvalidatingRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.Repository.UpdateMany(ctx, records, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "update_many", slices.Concat(records, result)...)
	}
	return result, err
}

// UpdateManyTx updates multiple records within a transaction
func (r *InvalidatingRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.Repository.UpdateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "update_many", slices.Concat(records, result)...)
	}
	return result, err
}

// Upsert inserts or updates a record
func (r *InvalidatingRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.Repository.Upsert(ctx, record, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "upsert", record, result)
	}
	return result, err
}

// UpsertTx inserts or updates a record within a transaction
func (r *InvalidatingRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.Repository.UpsertTx(ctx, tx, record, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "upsert", record, result)
	}
	return result, err
}

// UpsertMany inserts or updates multiple records
func (r *InvalidatingRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.Repository.UpsertMany(ctx, records, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "upsert_many", slices.Concat(records, result)...)
	}
	return result, err
}

// UpsertManyTx inserts or updates multiple records within a transaction
func (r *InvalidatingRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.Repository.UpsertManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.invalidateRecords(ctx, "upsert_many", slices.Concat(records, result)...)
	}
	return result, err
}

// Delete deletes a record
func (r *InvalidatingRepository[T]) Delete(ctx context.Context, record T) error {
	err := r.Repository.Delete(ctx, record)
	if err == nil {
		r.invalidateRecords(ctx, "delete", record)
	}
	return err
}

// DeleteTx deletes a record within a transaction
func (r *InvalidatingRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := r.Repository.DeleteTx(ctx, tx, record)
	if err == nil {
		r.invalidateRecords(ctx, "delete", record)
	}
	return err
}

// ForceDelete force deletes a record (bypassing soft delete)
func (r *InvalidatingRepository[T]) ForceDelete(ctx context.Context, record T) error {
	err := r.Repository.ForceDelete(ctx, record)
	if err == nil {
		r.invalidateRecords(ctx, "force_delete", record)
	}
	return err
}

// ForceDeleteTx force deletes a record within a transaction
func (r *InvalidatingRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := r.Repository.ForceDeleteTx(ctx, tx, record)
	if err == nil {
		r.invalidateRecords(ctx, "force_delete", record)
	}
	return err
}

// DeleteMany deletes records matching criteria. Without households attached
// via WithHouseholds every household is invalidated.
func (r *InvalidatingRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := r.Repository.DeleteMany(ctx, criteria...)
	if err == nil {
		r.invalidateCriteria(ctx, "delete_many")
	}
	return err
}

// DeleteManyTx deletes records matching criteria within a transaction
func (r *InvalidatingRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := r.Repository.DeleteManyTx(ctx, tx, criteria...)
	if err == nil {
		r.invalidateCriteria(ctx, "delete_many")
	}
	return err
}

// DeleteWhere deletes records matching criteria
func (r *InvalidatingRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := r.Repository.DeleteWhere(ctx, criteria...)
	if err == nil {
		r.invalidateCriteria(ctx, "delete_where")
	}
	return err
}

// DeleteWhereTx deletes records matching criteria within a transaction
func (r *InvalidatingRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := r.Repository.DeleteWhereTx(ctx, tx, criteria...)
	if err == nil {
		r.invalidateCriteria(ctx, "delete_where")
	}
	return err
}

// invalidateRecords invalidates every distinct, non-empty household among
// records plus any attached to ctx. Failures are logged: the write already
// succeeded and the TTL bounds the staleness.
func (r *InvalidatingRepository[T]) invalidateRecords(ctx context.Context, op string, records ...T) {
	ids := householdsFromContext(ctx)
	for _, record := range records {
		ids = append(ids, r.householdOf(record))
	}

	for _, id := range dedupeStrings(ids) {
		if err := r.invalidator.Invalidate(ctx, id); err != nil {
			r.logger.Warn("household invalidation failed after write",
				"resource", r.resource,
				"operation", op,
				"household_id", id,
				"error", err,
			)
		}
	}
}

// invalidateCriteria handles writes that carry criteria instead of records.
func (r *InvalidatingRepository[T]) invalidateCriteria(ctx context.Context, op string) {
	if ids := householdsFromContext(ctx); len(ids) > 0 {
		r.invalidateRecords(ctx, op)
		return
	}

	if err := r.invalidator.InvalidateAll(ctx); err != nil {
		r.logger.Warn("invalidating all households failed after write",
			"resource", r.resource,
			"operation", op,
			"error", err,
		)
	}
}

func resourceName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "record"
	}
	return toSnake(t.Name())
}
