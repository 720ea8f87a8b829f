package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
)

func TestSubmitVisualIsSingleShot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "REG-001", "C1")
	_, err := f.svc.Start(ctx, tech, "REG-001")
	require.NoError(t, err)

	res, err := f.svc.SubmitVisual(ctx, tech, "REG-001", map[string]any{
		"horn":           "NOT_OK",
		"tyreTreadDepth": "1.6",
		"colour":         "red",
	})
	require.NoError(t, err)

	assert.True(t, res.Record.IsCompleted)
	assert.Equal(t, catalog.Fail, res.Record.Results["horn"])
	assert.Equal(t, catalog.Value("1.6"), res.Record.Results["tyreTreadDepth"])
	assert.Equal(t, catalog.NotAssessed, res.Record.Results["wipers"])
	assert.NotContains(t, res.Record.Results, "colour")
}

func TestSubmitFunctionalPartialIsIncomplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "REG-001", "C1")
	_, err := f.svc.Start(ctx, tech, "REG-001")
	require.NoError(t, err)

	ids := catalog.FunctionalRules()
	for _, id := range ids[:len(ids)-1] {
		res, err := f.svc.SubmitFunctional(ctx, tech, "REG-001", id, validValue(id))
		require.NoError(t, err)
		assert.False(t, res.Record.IsCompleted)
	}

	// Overwriting an assessed rule with NA keeps the record open.
	last := ids[len(ids)-1]
	res, err := f.svc.SubmitFunctional(ctx, tech, "REG-001", last, validValue(last))
	require.NoError(t, err)
	assert.True(t, res.Record.IsCompleted)

	res, err = f.svc.SubmitFunctional(ctx, tech, "REG-001", last, "NA")
	require.NoError(t, err)
	assert.False(t, res.Record.IsCompleted)
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "REG-001", "C1")

	numeric := catalog.FunctionalPrefix + "4"

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"visual without regnNo", func() error {
			_, err := f.svc.SubmitVisual(ctx, tech, "", map[string]any{})
			return err
		}, core.ErrInvalidInput},
		{"visual without rules", func() error {
			_, err := f.svc.SubmitVisual(ctx, tech, "REG-001", nil)
			return err
		}, core.ErrInvalidInput},
		{"visual wrong domain", func() error {
			_, err := f.svc.SubmitVisual(ctx, tech, "REG-001", map[string]any{"horn": 5})
			return err
		}, core.ErrInvalidInput},
		{"visual unknown vehicle", func() error {
			_, err := f.svc.SubmitVisual(ctx, tech, "NOPE", map[string]any{})
			return err
		}, core.ErrNotFound},
		{"functional without rule", func() error {
			_, err := f.svc.SubmitFunctional(ctx, tech, "REG-001", "", "OK")
			return err
		}, core.ErrInvalidInput},
		{"functional nil value", func() error {
			_, err := f.svc.SubmitFunctional(ctx, tech, "REG-001", numeric, nil)
			return err
		}, core.ErrInvalidInput},
		{"functional unknown rule", func() error {
			_, err := f.svc.SubmitFunctional(ctx, tech, "REG-001", "rule189_99", "OK")
			return err
		}, core.ErrInvalidInput},
		{"functional wrong domain", func() error {
			_, err := f.svc.SubmitFunctional(ctx, tech, "REG-001", numeric, "strong")
			return err
		}, core.ErrInvalidInput},
		{"functional unknown vehicle", func() error {
			_, err := f.svc.SubmitFunctional(ctx, tech, "NOPE", numeric, 60)
			return err
		}, core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.want)
		})
	}
}

func TestSubmissionsBeforeStartAreAdopted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "REG-001", "C1")

	rule := catalog.FunctionalPrefix + "9"
	res, err := f.svc.SubmitFunctional(ctx, tech, "REG-001", rule, "2.1")
	require.NoError(t, err)
	assert.False(t, res.InstanceCompleted)

	inst, err := f.svc.Start(ctx, tech, "REG-001")
	require.NoError(t, err)
	assert.Equal(t, res.Record.ID, inst.FunctionalID)

	st, err := f.svc.Status(ctx, "REG-001")
	require.NoError(t, err)
	assert.Equal(t, catalog.Value("2.1"), st.Functional.Results[rule])
}

func TestStartCompletesWhenRecordsWereFinishedEarly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "REG-001", "C1")

	_, err := f.svc.SubmitVisual(ctx, tech, "REG-001", map[string]any{"horn": "OK"})
	require.NoError(t, err)
	assert.False(t, f.completeFunctional(t, "REG-001").InstanceCompleted)

	inst, err := f.svc.Start(ctx, tech, "REG-001")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceCompleted, inst.Status)
	assert.Equal(t, []model.EventType{model.EventStarted, model.EventCompleted}, f.events.types())
}

func TestConcurrentFunctionalSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, regnNo := range []string{"REG-001", "REG-002"} {
		f.register(t, regnNo, "C1")
		_, err := f.svc.Start(ctx, tech, regnNo)
		require.NoError(t, err)
		_, err = f.svc.SubmitVisual(ctx, tech, regnNo, map[string]any{})
		require.NoError(t, err)
	}

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		completions = map[string]int{}
	)
	for _, regnNo := range []string{"REG-001", "REG-002"} {
		for _, id := range catalog.FunctionalRules() {
			wg.Add(1)
			go func(regnNo, id string) {
				defer wg.Done()
				res, err := f.svc.SubmitFunctional(ctx, tech, regnNo, id, validValue(id))
				if !assert.NoError(t, err) {
					return
				}
				if res.InstanceCompleted {
					mu.Lock()
					completions[regnNo]++
					mu.Unlock()
				}
			}(regnNo, id)
		}
	}
	wg.Wait()

	for _, regnNo := range []string{"REG-001", "REG-002"} {
		assert.Equal(t, 1, completions[regnNo], regnNo)

		st, err := f.svc.Status(ctx, regnNo)
		require.NoError(t, err)
		assert.Equal(t, model.InstanceCompleted, st.Status)
		for _, id := range catalog.FunctionalRules() {
			assert.NotEqual(t, catalog.NotAssessed, st.Functional.Results[id], "lost update of %s on %s", id, regnNo)
		}
	}
	assert.Zero(t, f.svc.locks.size())
}

func TestPendingQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "REG-001", "C1")
	f.register(t, "REG-002", "C1")
	f.register(t, "REG-003", "C1")
	f.register(t, "REG-900", "C2")

	for _, regnNo := range []string{"REG-001", "REG-002", "REG-900"} {
		_, err := f.svc.Start(ctx, tech, regnNo)
		require.NoError(t, err)
	}

	rule := catalog.FunctionalPrefix + "10"
	_, err := f.svc.SubmitFunctional(ctx, tech, "REG-002", rule, 88)
	require.NoError(t, err)
	_, err = f.svc.SubmitVisual(ctx, tech, "REG-001", map[string]any{})
	require.NoError(t, err)

	pending, err := f.svc.PendingFunctional(ctx, tech, rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"REG-001"}, pending)

	pending, err = f.svc.PendingVisual(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, []string{"REG-002", "REG-003"}, pending)

	_, err = f.svc.PendingFunctional(ctx, tech, "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = f.svc.PendingFunctional(ctx, tech, "horn")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.svc.PendingVisual(ctx, model.Principal{Role: model.RoleTechnician})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSubmissionsAfterCompletionNeedANewCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "REG-001", "C1")

	_, err := f.svc.Start(ctx, tech, "REG-001")
	require.NoError(t, err)
	_, err = f.svc.SubmitVisual(ctx, tech, "REG-001", map[string]any{})
	require.NoError(t, err)
	require.True(t, f.completeFunctional(t, "REG-001").InstanceCompleted)

	rule := catalog.FunctionalRules()[0]
	_, err = f.svc.SubmitFunctional(ctx, tech, "REG-001", rule, "NA")
	assert.ErrorIs(t, err, core.ErrConflict)
	_, err = f.svc.SubmitVisual(ctx, tech, "REG-001", map[string]any{"horn": "NOT_OK"})
	assert.ErrorIs(t, err, core.ErrConflict)

	// The closed cycle is left as it was completed.
	st, err := f.svc.Status(ctx, "REG-001")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceCompleted, st.Status)
	require.NotNil(t, st.Functional)
	assert.True(t, st.Functional.IsCompleted)
	assert.NotEqual(t, catalog.NotAssessed, st.Functional.Results[rule])
	require.NotNil(t, st.Visual)
	assert.Equal(t, catalog.NotAssessed, st.Visual.Results["horn"])

	inst, err := f.svc.Start(ctx, tech, "REG-001")
	require.NoError(t, err)
	require.Equal(t, 2, inst.Cycle)

	res, err := f.svc.SubmitVisual(ctx, tech, "REG-001", map[string]any{"horn": "NOT_OK"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Record.Cycle)

	st, err = f.svc.Status(ctx, "REG-001")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceInProgress, st.Status)
	require.NotNil(t, st.Visual)
	assert.Equal(t, catalog.Fail, st.Visual.Results["horn"])
	assert.True(t, st.Visual.IsCompleted)
	require.NotNil(t, st.Functional)
	assert.False(t, st.Functional.IsCompleted)
}
