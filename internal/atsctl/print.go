package atsctl

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/service"
)

func newTable() *uitable.Table {
	t := uitable.New()
	t.MaxColWidth = 60
	t.Wrap = true
	return t
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func printVehicle(w io.Writer, v *model.Vehicle) {
	t := newTable()
	t.AddRow("REGN NO", "BOOKING", "CENTER", "STATUS")
	t.AddRow(v.RegnNo, v.BookingID, v.CenterID, v.Status)
	fmt.Fprintln(w, t)
}

func printRules(w io.Writer, rules []catalog.Rule) {
	t := newTable()
	t.AddRow("RULE", "DOMAIN", "UNIT", "DESCRIPTION")
	for _, r := range rules {
		unit := r.Unit
		if unit == "" {
			unit = "-"
		}
		t.AddRow(r.ID, r.Domain, unit, r.Description)
	}
	fmt.Fprintln(w, t)
}

func printInstance(w io.Writer, regnNo string, inst *model.TestInstance) {
	t := newTable()
	t.AddRow("REGN NO", "INSTANCE", "CYCLE", "STATUS", "STARTED", "COMPLETED")
	t.AddRow(regnNo, inst.ID, inst.Cycle, inst.Status, formatTime(&inst.StartedAt), formatTime(inst.CompletedAt))
	fmt.Fprintln(w, t)
}

func printSubmit(w io.Writer, res *SubmitResult) {
	fmt.Fprintln(w, res.Message)
	if res.InstanceCompleted {
		fmt.Fprintln(w, "Inspection completed.")
	}
}

func printPending(w io.Writer, regnNos []string) {
	if len(regnNos) == 0 {
		fmt.Fprintln(w, "No pending vehicles.")
		return
	}
	t := newTable()
	t.AddRow("REGN NO")
	for _, r := range regnNos {
		t.AddRow(r)
	}
	fmt.Fprintln(w, t)
}

func printStatus(w io.Writer, v *service.StatusView) {
	t := newTable()
	t.AddRow("REGN NO:", v.RegnNo)
	t.AddRow("BOOKING:", v.BookingID)
	t.AddRow("INSTANCE:", fmt.Sprintf("%s (cycle %d)", v.InstanceID, v.Cycle))
	t.AddRow("STATUS:", v.Status)
	t.AddRow("INSPECTOR:", v.SubmittedBy.Name)
	t.AddRow("STARTED:", formatTime(&v.StartedAt))
	t.AddRow("LANE EXIT:", formatTime(v.LaneExitTime))
	t.AddRow("VISUAL:", summarize(v.Visual))
	t.AddRow("FUNCTIONAL:", summarize(v.Functional))
	fmt.Fprintln(w, t)
}

// summarize renders "done" or the list of rules still not assessed.
func summarize(rec *model.SubInspection) string {
	if rec == nil {
		return "not started"
	}
	if rec.IsCompleted {
		return "done"
	}
	var pending []string
	for id, v := range rec.Results {
		if v == catalog.NotAssessed {
			pending = append(pending, id)
		}
	}
	slices.Sort(pending)
	return "pending: " + strings.Join(pending, ", ")
}

func printList(w io.Writer, list []service.InstanceSummary) {
	t := newTable()
	t.AddRow("REGN NO", "BOOKING", "STATUS", "CYCLE", "INSPECTOR", "STARTED", "COMPLETED")
	for _, s := range list {
		t.AddRow(s.Vehicle.RegnNo, s.Vehicle.BookingID, s.Status, s.Cycle, s.SubmittedBy.Name,
			formatTime(&s.StartedAt), formatTime(s.CompletedAt))
	}
	fmt.Fprintln(w, t)
}
