package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/pkg/util"
)

// --- vehicles ---

var _ core.VehicleRepository = (*vehicleStore)(nil)

const vehicleColumns = `id, regn_no, booking_id, center_id, engine_no, chassis_no, status, lane_exit_time, created_at, updated_at`

type vehicleStore struct {
	q      querier
	tracer trace.Tracer
	// lock takes a row lock on reads; set inside transactions.
	lock bool
}

func scanVehicle(row pgx.Row) (*model.Vehicle, error) {
	var v model.Vehicle
	err := row.Scan(&v.ID, &v.RegnNo, &v.BookingID, &v.CenterID, &v.EngineNo, &v.ChassisNo,
		&v.Status, &v.LaneExitTime, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *vehicleStore) GetByRegistration(ctx context.Context, regnNo string) (*model.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE regn_no = $1`
	if s.lock {
		query += ` FOR UPDATE`
	}

	var v *model.Vehicle
	err := executeAndTrace(ctx, s.tracer, "postgres.vehicle.get", []attribute.KeyValue{
		attribute.String("regn_no", regnNo),
		attribute.Bool("for_update", s.lock),
	}, func(ctx context.Context) error {
		var err error
		v, err = scanVehicle(s.q.QueryRow(ctx, query, regnNo))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("vehicle %s: %w", regnNo, classify(err))
	}
	return v, nil
}

func (s *vehicleStore) Create(ctx context.Context, v *model.Vehicle) error {
	err := executeAndTrace(ctx, s.tracer, "postgres.vehicle.create", []attribute.KeyValue{
		attribute.String("regn_no", v.RegnNo),
	}, func(ctx context.Context) error {
		tag, err := s.q.Exec(ctx, `
			INSERT INTO vehicles (`+vehicleColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT DO NOTHING`,
			v.ID, v.RegnNo, v.BookingID, v.CenterID, v.EngineNo, v.ChassisNo,
			v.Status, v.LaneExitTime, v.CreatedAt, v.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return util.ErrAlreadyExists
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("vehicle %s: %w", v.RegnNo, classify(err))
	}
	return nil
}

func (s *vehicleStore) Save(ctx context.Context, v *model.Vehicle) error {
	err := executeAndTrace(ctx, s.tracer, "postgres.vehicle.save", []attribute.KeyValue{
		attribute.String("regn_no", v.RegnNo),
	}, func(ctx context.Context) error {
		tag, err := s.q.Exec(ctx, `
			UPDATE vehicles
			SET booking_id = $2, center_id = $3, engine_no = $4, chassis_no = $5,
			    status = $6, lane_exit_time = $7, updated_at = $8
			WHERE regn_no = $1`,
			v.RegnNo, v.BookingID, v.CenterID, v.EngineNo, v.ChassisNo,
			v.Status, v.LaneExitTime, v.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return util.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("vehicle %s: %w", v.RegnNo, classify(err))
	}
	return nil
}

func (s *vehicleStore) ListByCenter(ctx context.Context, centerID string) ([]*model.Vehicle, error) {
	var out []*model.Vehicle
	err := executeAndTrace(ctx, s.tracer, "postgres.vehicle.list_by_center", []attribute.KeyValue{
		attribute.String("center_id", centerID),
	}, func(ctx context.Context) error {
		rows, err := s.q.Query(ctx,
			`SELECT `+vehicleColumns+` FROM vehicles WHERE center_id = $1 ORDER BY regn_no`, centerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVehicle(rows)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("vehicles of center %s: %w", centerID, classify(err))
	}
	return out, nil
}

// --- test instances ---

var _ core.TestInstanceRepository = (*instanceStore)(nil)

const instanceColumns = `id, vehicle_id, booking_id, visual_id, functional_id, status,
	submitted_by_id, submitted_by_name, submitted_by_role, cycle, started_at, completed_at`

type instanceStore struct {
	q      querier
	tracer trace.Tracer
}

func scanInstance(row pgx.Row) (*model.TestInstance, error) {
	var t model.TestInstance
	err := row.Scan(&t.ID, &t.VehicleID, &t.BookingID, &t.VisualID, &t.FunctionalID, &t.Status,
		&t.SubmittedBy.ID, &t.SubmittedBy.Name, &t.SubmittedBy.Role, &t.Cycle, &t.StartedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func instanceArgs(t *model.TestInstance) []any {
	return []any{
		t.ID, t.VehicleID, t.BookingID, t.VisualID, t.FunctionalID, t.Status,
		t.SubmittedBy.ID, t.SubmittedBy.Name, t.SubmittedBy.Role, t.Cycle, t.StartedAt, t.CompletedAt,
	}
}

func (s *instanceStore) GetByVehicle(ctx context.Context, vehicleID string) (*model.TestInstance, error) {
	var t *model.TestInstance
	err := executeAndTrace(ctx, s.tracer, "postgres.test_instance.get", []attribute.KeyValue{
		attribute.String("vehicle_id", vehicleID),
	}, func(ctx context.Context) error {
		var err error
		t, err = scanInstance(s.q.QueryRow(ctx,
			`SELECT `+instanceColumns+` FROM test_instances WHERE vehicle_id = $1`, vehicleID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("test instance of vehicle %s: %w", vehicleID, classify(err))
	}
	return t, nil
}

func (s *instanceStore) Create(ctx context.Context, t *model.TestInstance) error {
	err := executeAndTrace(ctx, s.tracer, "postgres.test_instance.create", []attribute.KeyValue{
		attribute.String("vehicle_id", t.VehicleID),
		attribute.Int("cycle", t.Cycle),
	}, func(ctx context.Context) error {
		tag, err := s.q.Exec(ctx, `
			INSERT INTO test_instances (`+instanceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT DO NOTHING`, instanceArgs(t)...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return util.ErrAlreadyExists
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("test instance of vehicle %s: %w", t.VehicleID, classify(err))
	}
	return nil
}

func (s *instanceStore) Save(ctx context.Context, t *model.TestInstance) error {
	err := executeAndTrace(ctx, s.tracer, "postgres.test_instance.save", []attribute.KeyValue{
		attribute.String("vehicle_id", t.VehicleID),
		attribute.String("status", string(t.Status)),
	}, func(ctx context.Context) error {
		_, err := s.q.Exec(ctx, `
			INSERT INTO test_instances (`+instanceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (vehicle_id) DO UPDATE SET
				id = EXCLUDED.id,
				booking_id = EXCLUDED.booking_id,
				visual_id = EXCLUDED.visual_id,
				functional_id = EXCLUDED.functional_id,
				status = EXCLUDED.status,
				submitted_by_id = EXCLUDED.submitted_by_id,
				submitted_by_name = EXCLUDED.submitted_by_name,
				submitted_by_role = EXCLUDED.submitted_by_role,
				cycle = EXCLUDED.cycle,
				started_at = EXCLUDED.started_at,
				completed_at = EXCLUDED.completed_at`, instanceArgs(t)...)
		return err
	})
	if err != nil {
		return fmt.Errorf("test instance of vehicle %s: %w", t.VehicleID, classify(err))
	}
	return nil
}

func (s *instanceStore) ListByVehicles(ctx context.Context, vehicleIDs []string) ([]*model.TestInstance, error) {
	var out []*model.TestInstance
	err := executeAndTrace(ctx, s.tracer, "postgres.test_instance.list_by_vehicles", []attribute.KeyValue{
		attribute.Int("vehicles", len(vehicleIDs)),
	}, func(ctx context.Context) error {
		rows, err := s.q.Query(ctx, `
			SELECT `+instanceColumns+`
			FROM test_instances
			WHERE vehicle_id = ANY($1)
			ORDER BY array_position($1, vehicle_id)`, vehicleIDs)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanInstance(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("test instances: %w", classify(err))
	}
	return out, nil
}

// --- sub-inspections ---

var _ core.SubInspectionRepository = (*subInspectionStore)(nil)

const subInspectionColumns = `id, category, vehicle_id, booking_id, cycle, results, is_completed, created_at, updated_at`

type subInspectionStore struct {
	q      querier
	tracer trace.Tracer
}

func scanSubInspection(row pgx.Row) (*model.SubInspection, error) {
	var (
		s       model.SubInspection
		results []byte
	)
	err := row.Scan(&s.ID, &s.Category, &s.VehicleID, &s.BookingID, &s.Cycle, &results,
		&s.IsCompleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &s.Results); err != nil {
		return nil, fmt.Errorf("decode results of %s: %w", s.ID, err)
	}
	return &s, nil
}

func subInspectionArgs(s *model.SubInspection) ([]any, error) {
	results, err := json.Marshal(s.Results)
	if err != nil {
		return nil, fmt.Errorf("encode results of %s: %w", s.ID, err)
	}
	return []any{
		s.ID, s.Category, s.VehicleID, s.BookingID, s.Cycle, results, s.IsCompleted, s.CreatedAt, s.UpdatedAt,
	}, nil
}

func (s *subInspectionStore) Get(ctx context.Context, c catalog.Category, vehicleID string) (*model.SubInspection, error) {
	var rec *model.SubInspection
	err := executeAndTrace(ctx, s.tracer, "postgres.sub_inspection.get", []attribute.KeyValue{
		attribute.String("category", string(c)),
		attribute.String("vehicle_id", vehicleID),
	}, func(ctx context.Context) error {
		var err error
		rec, err = scanSubInspection(s.q.QueryRow(ctx,
			`SELECT `+subInspectionColumns+` FROM sub_inspections WHERE category = $1 AND vehicle_id = $2`,
			c, vehicleID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s inspection of vehicle %s: %w", c, vehicleID, classify(err))
	}
	return rec, nil
}

func (s *subInspectionStore) Create(ctx context.Context, rec *model.SubInspection) error {
	err := executeAndTrace(ctx, s.tracer, "postgres.sub_inspection.create", []attribute.KeyValue{
		attribute.String("category", string(rec.Category)),
		attribute.String("vehicle_id", rec.VehicleID),
	}, func(ctx context.Context) error {
		args, err := subInspectionArgs(rec)
		if err != nil {
			return err
		}
		tag, err := s.q.Exec(ctx, `
			INSERT INTO sub_inspections (`+subInspectionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT DO NOTHING`, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return util.ErrAlreadyExists
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s inspection of vehicle %s: %w", rec.Category, rec.VehicleID, classify(err))
	}
	return nil
}

func (s *subInspectionStore) Save(ctx context.Context, rec *model.SubInspection) error {
	err := executeAndTrace(ctx, s.tracer, "postgres.sub_inspection.save", []attribute.KeyValue{
		attribute.String("category", string(rec.Category)),
		attribute.String("vehicle_id", rec.VehicleID),
	}, func(ctx context.Context) error {
		args, err := subInspectionArgs(rec)
		if err != nil {
			return err
		}
		_, err = s.q.Exec(ctx, `
			INSERT INTO sub_inspections (`+subInspectionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (category, vehicle_id) DO UPDATE SET
				id = EXCLUDED.id,
				booking_id = EXCLUDED.booking_id,
				cycle = EXCLUDED.cycle,
				results = EXCLUDED.results,
				is_completed = EXCLUDED.is_completed,
				created_at = EXCLUDED.created_at,
				updated_at = EXCLUDED.updated_at`, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s inspection of vehicle %s: %w", rec.Category, rec.VehicleID, classify(err))
	}
	return nil
}

func (s *subInspectionStore) ListByVehicles(ctx context.Context, c catalog.Category, vehicleIDs []string) ([]*model.SubInspection, error) {
	var out []*model.SubInspection
	err := executeAndTrace(ctx, s.tracer, "postgres.sub_inspection.list_by_vehicles", []attribute.KeyValue{
		attribute.String("category", string(c)),
		attribute.Int("vehicles", len(vehicleIDs)),
	}, func(ctx context.Context) error {
		rows, err := s.q.Query(ctx, `
			SELECT `+subInspectionColumns+`
			FROM sub_inspections
			WHERE category = $1 AND vehicle_id = ANY($2)
			ORDER BY array_position($2, vehicle_id)`, c, vehicleIDs)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanSubInspection(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%s inspections: %w", c, classify(err))
	}
	return out, nil
}
