package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-household-state/derive"
	"github.com/goliatone/go-household-state/model"
	"github.com/vmihailenco/msgpack/v5"
)

// SchemaVersion tags every cached bundle. Entries written under another
// version are treated as misses, so bumping it retires the whole cache.
const SchemaVersion = 1

var (
	errSchemaMismatch    = errors.New("cached bundle schema version mismatch")
	errHouseholdMismatch = errors.New("cached bundle belongs to another household")
)

// bundle is the cached form of a HouseholdState.
type bundle struct {
	Version   int            `msgpack:"v"`
	Household string         `msgpack:"household"`
	Snapshot  model.Snapshot `msgpack:"snapshot"`
	State     stateRecord    `msgpack:"state"`
}

type stateRecord struct {
	Reserved     []reservation         `msgpack:"reserved"`
	ShoppingList []model.ShoppingEntry `msgpack:"shopping_list"`
	ReadyToCook  []string              `msgpack:"ready_to_cook"`
	Health       derive.Health         `msgpack:"health"`
	ComputedAt   time.Time             `msgpack:"computed_at"`
}

// reservation flattens one entry of derive.State.Reserved.
type reservation struct {
	Name     string  `msgpack:"name"`
	Unit     string  `msgpack:"unit"`
	Quantity float64 `msgpack:"quantity"`
}

func encodeBundle(hs *HouseholdState) ([]byte, error) {
	reserved := make([]reservation, 0, len(hs.State.Reserved))
	for key, qty := range hs.State.Reserved {
		reserved = append(reserved, reservation{Name: key.Name, Unit: key.Unit, Quantity: qty})
	}

	b := bundle{
		Version:   SchemaVersion,
		Household: hs.Snapshot.HouseholdID,
		Snapshot:  hs.Snapshot,
		State: stateRecord{
			Reserved:     reserved,
			ShoppingList: hs.State.ShoppingList,
			ReadyToCook:  hs.State.ReadyToCook,
			Health:       hs.State.Health,
			ComputedAt:   hs.State.ComputedAt,
		},
	}

	data, err := msgpack.Marshal(&b)
	if err != nil {
		return nil, fmt.Errorf("encode state bundle: %w", err)
	}
	return data, nil
}

func decodeBundle(data []byte, householdID string) (*HouseholdState, error) {
	var b bundle
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode state bundle: %w", err)
	}
	if b.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", errSchemaMismatch, b.Version, SchemaVersion)
	}
	if b.Household != householdID {
		return nil, fmt.Errorf("%w: %q", errHouseholdMismatch, b.Household)
	}

	reserved := make(map[model.ItemKey]float64, len(b.State.Reserved))
	for _, r := range b.State.Reserved {
		reserved[model.ItemKey{Name: r.Name, Unit: r.Unit}] = r.Quantity
	}

	return &HouseholdState{
		Snapshot: b.Snapshot,
		State: derive.State{
			Reserved:     reserved,
			ShoppingList: b.State.ShoppingList,
			ReadyToCook:  b.State.ReadyToCook,
			Health:       b.State.Health,
			ComputedAt:   b.State.ComputedAt,
		},
		FromCache: true,
	}, nil
}
