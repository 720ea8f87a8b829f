package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
)

func lifecycleFixture(visualDone, functionalDone bool, cycle int) (*model.Vehicle, *model.TestInstance, *model.SubInspection, *model.SubInspection) {
	v := &model.Vehicle{ID: "v1", RegnNo: "REG-001", Status: model.VehicleInProgress}
	inst := &model.TestInstance{ID: "t1", VehicleID: "v1", Status: model.InstanceInProgress, Cycle: 1}
	visual := &model.SubInspection{Category: catalog.Visual, Cycle: cycle, IsCompleted: visualDone}
	functional := &model.SubInspection{Category: catalog.Functional, Cycle: cycle, IsCompleted: functionalDone}
	return v, inst, visual, functional
}

func TestLifecycleGuard(t *testing.T) {
	tests := []struct {
		name       string
		visual     bool
		functional bool
		cycle      int
		want       error
	}{
		{"both done", true, true, 1, nil},
		{"visual pending", false, true, 1, errNotReady},
		{"functional pending", true, false, 1, errNotReady},
		{"records of another cycle", true, true, 0, errNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clocktesting.NewFakeClock(t0)
			v, inst, visual, functional := lifecycleFixture(tt.visual, tt.functional, tt.cycle)

			err := newLifecycle(clk, v, inst, visual, functional).Complete(context.Background())
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				assert.Equal(t, model.InstanceInProgress, inst.Status)
				assert.Equal(t, model.VehicleInProgress, v.Status)
				assert.Nil(t, v.LaneExitTime)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, model.InstanceCompleted, inst.Status)
			assert.Equal(t, model.VehicleCompleted, v.Status)
			assert.Equal(t, t0, *inst.CompletedAt)
			assert.Equal(t, t0, *v.LaneExitTime)
		})
	}
}

func TestLifecycleMissingRecords(t *testing.T) {
	v, inst, _, _ := lifecycleFixture(true, true, 1)
	err := newLifecycle(clocktesting.NewFakeClock(t0), v, inst, nil, nil).Complete(context.Background())
	assert.ErrorIs(t, err, errNotReady)
}

func TestLifecycleAlreadyCompleted(t *testing.T) {
	v, inst, visual, functional := lifecycleFixture(true, true, 1)
	inst.Status = model.InstanceCompleted

	err := newLifecycle(clocktesting.NewFakeClock(t0), v, inst, visual, functional).Complete(context.Background())
	assert.ErrorIs(t, err, errAlreadyCompleted)
	assert.Nil(t, inst.CompletedAt)
}
