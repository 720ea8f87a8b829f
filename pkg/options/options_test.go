package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:8080", false},
		{":9090", false},
		{"localhost:65535", false},
		{"localhost", true},
		{"localhost:0", true},
		{"localhost:http", true},
		{"localhost:70000", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultsAreValid(t *testing.T) {
	for name, o := range map[string]IOptions{
		"http":     NewHttpOptions(),
		"mqtt":     NewMqttOptions(),
		"postgres": NewPostgresOptions(),
		"store":    NewStoreOptions(),
	} {
		assert.Empty(t, o.Validate(), name)
	}
}

func TestMqttOptionsValidateOnlyWhenEnabled(t *testing.T) {
	o := NewMqttOptions()
	o.Broker = ""
	o.QoS = 5
	assert.Empty(t, o.Validate())

	o.Enabled = true
	assert.Len(t, o.Validate(), 2)
}

func TestStoreOptionsFlags(t *testing.T) {
	o := NewStoreOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--store.backend=postgres"}))
	assert.Equal(t, StorePostgres, o.Backend)
	assert.Empty(t, o.Validate())

	o.Backend = "mongo"
	assert.Len(t, o.Validate(), 1)
}

func TestPostgresOptionsValidate(t *testing.T) {
	o := NewPostgresOptions()
	o.MinConns = 20
	errs := o.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "min-conns")
}
