package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

var _ IOptions = (*StoreOptions)(nil)

// StoreOptions selects the record store backend.
type StoreOptions struct {
	// Backend is either "memory" or "postgres".
	Backend string `json:"backend" mapstructure:"backend"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{Backend: StoreMemory}
}

func (o *StoreOptions) Validate() []error {
	switch o.Backend {
	case StoreMemory, StorePostgres:
		return nil
	default:
		return []error{fmt.Errorf("store.backend must be %q or %q, got %q", StoreMemory, StorePostgres, o.Backend)}
	}
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, "store.backend", o.Backend, "Record store backend: memory or postgres.")
}
