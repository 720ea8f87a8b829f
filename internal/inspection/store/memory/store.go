// Package memory provides an in-memory record store for tests and local
// development. Transactions stage their writes and apply them atomically on
// commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/pkg/util"
)

var _ core.Store = (*Store)(nil)

type subKey struct {
	category  catalog.Category
	vehicleID string
}

// Store keeps every record in maps guarded by a single lock.
// Records are deep copied on the way in and out.
type Store struct {
	mu        sync.RWMutex
	vehicles  map[string]*model.Vehicle      // keyed by registration number
	instances map[string]*model.TestInstance // keyed by vehicle ID
	subs      map[subKey]*model.SubInspection
}

// New creates an empty store.
func New() *Store {
	return &Store{
		vehicles:  make(map[string]*model.Vehicle),
		instances: make(map[string]*model.TestInstance),
		subs:      make(map[subKey]*model.SubInspection),
	}
}

func (s *Store) Vehicle() core.VehicleRepository { return vehicles{newTxn(s, true)} }
func (s *Store) TestInstance() core.TestInstanceRepository { return instances{newTxn(s, true)} }
func (s *Store) SubInspection() core.SubInspectionRepository { return subInspections{newTxn(s, true)} }

// InTx runs fn against a transaction that commits only if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo core.Repository) error) error {
	t := newTxn(s, false)
	if err := fn(ctx, t); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// txn overlays staged writes on the committed maps. In auto mode every write
// commits immediately.
type txn struct {
	s    *Store
	auto bool

	vehicles  map[string]*model.Vehicle
	instances map[string]*model.TestInstance
	subs      map[subKey]*model.SubInspection

	// Keys created by this transaction, re-checked against concurrent
	// commits.
	newVehicles  []string
	newInstances []string
	newSubs      []subKey
}

func newTxn(s *Store, auto bool) *txn {
	return &txn{
		s:         s,
		auto:      auto,
		vehicles:  make(map[string]*model.Vehicle),
		instances: make(map[string]*model.TestInstance),
		subs:      make(map[subKey]*model.SubInspection),
	}
}

func (t *txn) Vehicle() core.VehicleRepository { return vehicles{t} }
func (t *txn) TestInstance() core.TestInstanceRepository { return instances{t} }
func (t *txn) SubInspection() core.SubInspectionRepository { return subInspections{t} }

func (t *txn) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, k := range t.newVehicles {
		if _, ok := t.s.vehicles[k]; ok {
			return fmt.Errorf("vehicle %s: %w", k, util.ErrAlreadyExists)
		}
	}
	for _, k := range t.newInstances {
		if _, ok := t.s.instances[k]; ok {
			return fmt.Errorf("test instance of vehicle %s: %w", k, util.ErrAlreadyExists)
		}
	}
	for _, k := range t.newSubs {
		if _, ok := t.s.subs[k]; ok {
			return fmt.Errorf("%s inspection of vehicle %s: %w", k.category, k.vehicleID, util.ErrAlreadyExists)
		}
	}

	for k, v := range t.vehicles {
		t.s.vehicles[k] = v
	}
	for k, v := range t.instances {
		t.s.instances[k] = v
	}
	for k, v := range t.subs {
		t.s.subs[k] = v
	}

	t.reset()
	return nil
}

func (t *txn) reset() {
	clear(t.vehicles)
	clear(t.instances)
	clear(t.subs)
	t.newVehicles, t.newInstances, t.newSubs = nil, nil, nil
}

func (t *txn) done() error {
	if !t.auto {
		return nil
	}
	return t.commit()
}

// --- lookups through the overlay ---

func (t *txn) vehicle(regnNo string) (*model.Vehicle, bool) {
	if v, ok := t.vehicles[regnNo]; ok {
		return v, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := t.s.vehicles[regnNo]
	return v, ok
}

func (t *txn) instance(vehicleID string) (*model.TestInstance, bool) {
	if ti, ok := t.instances[vehicleID]; ok {
		return ti, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	ti, ok := t.s.instances[vehicleID]
	return ti, ok
}

func (t *txn) sub(k subKey) (*model.SubInspection, bool) {
	if s, ok := t.subs[k]; ok {
		return s, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	s, ok := t.s.subs[k]
	return s, ok
}

// --- vehicles ---

type vehicles struct{ t *txn }

func (r vehicles) GetByRegistration(_ context.Context, regnNo string) (*model.Vehicle, error) {
	v, ok := r.t.vehicle(regnNo)
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", regnNo, util.ErrNotFound)
	}
	return v.Clone(), nil
}

func (r vehicles) Create(_ context.Context, v *model.Vehicle) error {
	if _, ok := r.t.vehicle(v.RegnNo); ok {
		return fmt.Errorf("vehicle %s: %w", v.RegnNo, util.ErrAlreadyExists)
	}
	r.t.vehicles[v.RegnNo] = v.Clone()
	r.t.newVehicles = append(r.t.newVehicles, v.RegnNo)
	return r.t.done()
}

func (r vehicles) Save(_ context.Context, v *model.Vehicle) error {
	if _, ok := r.t.vehicle(v.RegnNo); !ok {
		return fmt.Errorf("vehicle %s: %w", v.RegnNo, util.ErrNotFound)
	}
	r.t.vehicles[v.RegnNo] = v.Clone()
	return r.t.done()
}

func (r vehicles) ListByCenter(_ context.Context, centerID string) ([]*model.Vehicle, error) {
	merged := make(map[string]*model.Vehicle)

	r.t.s.mu.RLock()
	for k, v := range r.t.s.vehicles {
		merged[k] = v
	}
	r.t.s.mu.RUnlock()
	for k, v := range r.t.vehicles {
		merged[k] = v
	}

	var out []*model.Vehicle
	for _, v := range merged {
		if v.CenterID == centerID {
			out = append(out, v.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegnNo < out[j].RegnNo })
	return out, nil
}

// --- test instances ---

type instances struct{ t *txn }

func (r instances) GetByVehicle(_ context.Context, vehicleID string) (*model.TestInstance, error) {
	ti, ok := r.t.instance(vehicleID)
	if !ok {
		return nil, fmt.Errorf("test instance of vehicle %s: %w", vehicleID, util.ErrNotFound)
	}
	return ti.Clone(), nil
}

func (r instances) Create(_ context.Context, ti *model.TestInstance) error {
	if _, ok := r.t.instance(ti.VehicleID); ok {
		return fmt.Errorf("test instance of vehicle %s: %w", ti.VehicleID, util.ErrAlreadyExists)
	}
	r.t.instances[ti.VehicleID] = ti.Clone()
	r.t.newInstances = append(r.t.newInstances, ti.VehicleID)
	return r.t.done()
}

func (r instances) Save(_ context.Context, ti *model.TestInstance) error {
	r.t.instances[ti.VehicleID] = ti.Clone()
	return r.t.done()
}

func (r instances) ListByVehicles(_ context.Context, vehicleIDs []string) ([]*model.TestInstance, error) {
	var out []*model.TestInstance
	for _, id := range vehicleIDs {
		if ti, ok := r.t.instance(id); ok {
			out = append(out, ti.Clone())
		}
	}
	return out, nil
}

// --- sub-inspections ---

type subInspections struct{ t *txn }

func (r subInspections) Get(_ context.Context, c catalog.Category, vehicleID string) (*model.SubInspection, error) {
	s, ok := r.t.sub(subKey{c, vehicleID})
	if !ok {
		return nil, fmt.Errorf("%s inspection of vehicle %s: %w", c, vehicleID, util.ErrNotFound)
	}
	return s.Clone(), nil
}

func (r subInspections) Create(_ context.Context, s *model.SubInspection) error {
	k := subKey{s.Category, s.VehicleID}
	if _, ok := r.t.sub(k); ok {
		return fmt.Errorf("%s inspection of vehicle %s: %w", s.Category, s.VehicleID, util.ErrAlreadyExists)
	}
	r.t.subs[k] = s.Clone()
	r.t.newSubs = append(r.t.newSubs, k)
	return r.t.done()
}

func (r subInspections) Save(_ context.Context, s *model.SubInspection) error {
	r.t.subs[subKey{s.Category, s.VehicleID}] = s.Clone()
	return r.t.done()
}

func (r subInspections) ListByVehicles(_ context.Context, c catalog.Category, vehicleIDs []string) ([]*model.SubInspection, error) {
	var out []*model.SubInspection
	for _, id := range vehicleIDs {
		if s, ok := r.t.sub(subKey{c, id}); ok {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}
