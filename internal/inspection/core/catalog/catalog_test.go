package catalog

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesAreCategorized(t *testing.T) {
	for _, c := range []Category{Visual, Functional} {
		rules := Rules(c)
		require.NotEmpty(t, rules)
		for _, r := range rules {
			assert.Equal(t, c, r.Category, r.ID)
			got, ok := Lookup(c, r.ID)
			assert.True(t, ok)
			assert.Equal(t, r, got)
		}
	}

	assert.Nil(t, Rules("unknown"))
}

func TestRulesReturnsCopy(t *testing.T) {
	rules := Rules(Visual)
	rules[0].ID = "mutated"

	assert.NotEqual(t, "mutated", Rules(Visual)[0].ID)
}

func TestFunctionalRules(t *testing.T) {
	ids := FunctionalRules()
	require.Len(t, ids, len(Rules(Functional)))
	for _, id := range ids {
		assert.True(t, IsFunctionalRule(id))
	}

	for _, r := range Rules(Visual) {
		assert.False(t, IsFunctionalRule(r.ID), r.ID)
	}
}

func TestBlank(t *testing.T) {
	blank := Blank(Functional)
	assert.Len(t, blank, len(FunctionalRules()))
	for _, v := range blank {
		assert.Equal(t, NotAssessed, v)
	}
}

func TestParse(t *testing.T) {
	passFail := Rule{ID: "horn", Domain: PassFail}
	numeric := Rule{ID: FunctionalPrefix + "4", Domain: Numeric}

	tests := []struct {
		name    string
		rule    Rule
		raw     any
		want    Value
		wantErr error
	}{
		{"pass", passFail, "OK", Pass, nil},
		{"fail lower case", passFail, " not_ok ", Fail, nil},
		{"sentinel on pass/fail", passFail, "NA", NotAssessed, nil},
		{"bool rejected", passFail, true, "", ErrInvalidValue},
		{"other string rejected", passFail, "maybe", "", ErrInvalidValue},
		{"nil", passFail, nil, "", ErrNilValue},
		{"float", numeric, 72.5, "72.5", nil},
		{"integer float", numeric, float64(60), "60", nil},
		{"int", numeric, 45, "45", nil},
		{"numeric string", numeric, "58.0", "58", nil},
		{"json number", numeric, json.Number("61.25"), "61.25", nil},
		{"sentinel on numeric", numeric, "NA", NotAssessed, nil},
		{"word rejected", numeric, "high", "", ErrInvalidValue},
		{"NaN string rejected", numeric, "NaN", "", ErrInvalidValue},
		{"infinity string rejected", numeric, "+Inf", "", ErrInvalidValue},
		{"infinite float rejected", numeric, math.Inf(-1), "", ErrInvalidValue},
		{"NaN json number rejected", numeric, json.Number("NaN"), "", ErrInvalidValue},
		{"object rejected", numeric, map[string]any{}, "", ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Parse(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
