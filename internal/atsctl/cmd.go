// Package atsctl implements the command line client of the inspection API.
package atsctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/service"
)

type globalOptions struct {
	v      *viper.Viper
	out    io.Writer
	client *Client
}

func (o *globalOptions) output() string { return o.v.GetString("output") }

// NewCommand returns the root atsctl command. Connection and identity flags
// can also be set through ATSCTL_* environment variables, e.g. ATSCTL_SERVER.
func NewCommand(out io.Writer) *cobra.Command {
	o := &globalOptions{v: viper.New(), out: out}
	o.v.SetEnvPrefix("ATSCTL")
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "atsctl",
		Short:         "Drive vehicle inspections on an ATS API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			switch o.output() {
			case "table", "json":
			default:
				return fmt.Errorf("unknown output format %q", o.output())
			}
			o.client = NewClient(o.v.GetString("server"), Identity{
				UserID:   o.v.GetString("user"),
				Name:     o.v.GetString("name"),
				Role:     o.v.GetString("role"),
				CenterID: o.v.GetString("center"),
			}, o.v.GetDuration("timeout"))
			return nil
		},
	}
	cmd.SetOut(out)

	fs := cmd.PersistentFlags()
	fs.String("server", "http://localhost:8080", "Base URL of the API server.")
	fs.String("user", "", "Inspector user id.")
	fs.String("name", "", "Inspector display name.")
	fs.String("role", "TECHNICIAN", "Inspector role.")
	fs.String("center", "", "Testing station the inspector works at.")
	fs.Duration("timeout", 10*time.Second, "Request timeout.")
	fs.StringP("output", "o", "table", "Output format: table or json.")

	cmd.AddCommand(
		newRegisterCommand(o),
		newRulesCommand(o),
		newStartCommand(o),
		newSubmitCommand(o),
		newPendingCommand(o),
		newStatusCommand(o),
		newListCommand(o),
		newCompleteCommand(o),
		newWatchCommand(o),
	)
	return cmd
}

func newRegisterCommand(o *globalOptions) *cobra.Command {
	var in service.VehicleInput
	cmd := &cobra.Command{
		Use:   "register REGN_NO --booking BOOKING_ID",
		Short: "Register a vehicle for inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.RegnNo = args[0]
			v, err := o.client.RegisterVehicle(cmd.Context(), in)
			if err != nil {
				return err
			}
			return o.print(v, func() { printVehicle(o.out, v) })
		},
	}
	cmd.Flags().StringVar(&in.BookingID, "booking", "", "Booking id.")
	cmd.Flags().StringVar(&in.CenterID, "vehicle-center", "", "Center of the vehicle, defaults to --center.")
	cmd.Flags().StringVar(&in.EngineNo, "engine-no", "", "Engine number.")
	cmd.Flags().StringVar(&in.ChassisNo, "chassis-no", "", "Chassis number.")
	_ = cmd.MarkFlagRequired("booking")
	return cmd
}

func newRulesCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "rules visual|functional",
		Short:     "List the rules of an inspection category",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"visual", "functional"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := o.client.Rules(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.print(rules, func() { printRules(o.out, rules) })
		},
	}
}

func newStartCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start REGN_NO",
		Short: "Start an inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := o.client.Start(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.print(inst, func() { printInstance(o.out, args[0], inst) })
		},
	}
}

func newSubmitCommand(o *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit inspection results",
	}

	visual := &cobra.Command{
		Use:   "visual REGN_NO RULE=VALUE...",
		Short: "Submit the visual inspection in one batch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			res, err := o.client.SubmitVisual(cmd.Context(), args[0], rules)
			if err != nil {
				return err
			}
			return o.print(res, func() { printSubmit(o.out, res) })
		},
	}

	functional := &cobra.Command{
		Use:   "functional REGN_NO RULE VALUE",
		Short: "Submit one functional rule result",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.client.SubmitFunctional(cmd.Context(), args[0], args[1], parseValue(args[2]))
			if err != nil {
				return err
			}
			return o.print(res, func() { printSubmit(o.out, res) })
		},
	}

	cmd.AddCommand(visual, functional)
	return cmd
}

func newPendingCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending visual | pending RULE",
		Short: "List vehicles of your center still waiting for an assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				regnNos []string
				err     error
			)
			if args[0] == "visual" {
				regnNos, err = o.client.PendingVisual(cmd.Context())
			} else {
				regnNos, err = o.client.PendingFunctional(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return o.print(regnNos, func() { printPending(o.out, regnNos) })
		},
	}
}

func newStatusCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status REGN_NO",
		Short: "Show the current test instance of a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := o.client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.print(view, func() { printStatus(o.out, view) })
		},
	}
}

func newListCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the test instances of your center",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := o.client.List(cmd.Context())
			if err != nil {
				return err
			}
			return o.print(list, func() { printList(o.out, list) })
		},
	}
}

func newCompleteCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete REGN_NO",
		Short: "Complete an inspection whose sub-inspections are done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := o.client.Complete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.print(inst, func() { printInstance(o.out, args[0], inst) })
		},
	}
}

func (o *globalOptions) print(v any, table func()) error {
	if o.output() == "json" {
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table()
	return nil
}

// parseAssignments turns rule=value arguments into a rule map.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected RULE=VALUE, got %q", a)
		}
		out[k] = parseValue(v)
	}
	return out, nil
}

// parseValue sends numbers as JSON numbers and everything else as strings.
func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, cmd *cobra.Command) error {
	return cmd.ExecuteContext(ctx)
}
