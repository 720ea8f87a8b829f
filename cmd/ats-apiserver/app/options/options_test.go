package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/atsinspect/pkg/options"
)

func TestServerOptionsValidate(t *testing.T) {
	o := NewServerOptions()
	require.NoError(t, o.Validate())

	// Postgres settings only matter when it is the selected backend.
	o.PostgresOptions.DSN = ""
	assert.NoError(t, o.Validate())

	o.StoreOptions.Backend = options.StorePostgres
	o.HttpOptions.Addr = "nope"
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.dsn")
	assert.Contains(t, err.Error(), "nope")
}

func TestServerOptionsFlagSections(t *testing.T) {
	fss := NewServerOptions().Flags()
	assert.Equal(t, []string{"http", "store", "postgres", "mqtt", "log"}, fss.Order)
	assert.NotNil(t, fss.FlagSet("postgres").Lookup("postgres.dsn"))
}
