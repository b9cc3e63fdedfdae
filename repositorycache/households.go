package repositorycache

import (
	"context"
)

type householdsContextKey struct{}

// WithHouseholds attaches household ids that a write affects. Criteria based
// deletes have no records to read a household from, so without this they
// invalidate every household.
func WithHouseholds(ctx context.Context, householdIDs ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(householdIDs) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(householdsFromContext(ctx), householdIDs...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, householdsContextKey{}, combined)
}

func householdsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if ids, ok := ctx.Value(householdsContextKey{}).([]string); ok {
		return append([]string(nil), ids...)
	}
	return nil
}

// dedupeStrings drops empty and repeated values, keeping first-seen order.
func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
