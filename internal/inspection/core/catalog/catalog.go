// Package catalog defines the fixed set of rule checks that make up the
// visual and functional sub-inspections, and how submitted values are
// validated against them.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Category identifies a sub-inspection.
type Category string

const (
	Visual     Category = "visual"
	Functional Category = "functional"
)

// Valid reports whether c names a known sub-inspection.
func (c Category) Valid() bool {
	return c == Visual || c == Functional
}

// Domain is the set of values a rule admits in addition to NotAssessed.
type Domain string

const (
	PassFail Domain = "PASS_FAIL"
	Numeric  Domain = "NUMERIC"
)

// Value is a normalized rule result.
type Value string

const (
	// NotAssessed marks a rule nobody has graded yet.
	NotAssessed Value = "NA"

	Pass Value = "OK"
	Fail Value = "NOT_OK"
)

// FunctionalPrefix is shared by every functional rule identifier.
const FunctionalPrefix = "rule189_"

var (
	ErrNilValue     = errors.New("value is required")
	ErrInvalidValue = errors.New("value does not match the rule domain")
)

// Rule is a single gradable check.
type Rule struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Domain      Domain   `json:"domain"`
	Description string   `json:"description"`
	Unit        string   `json:"unit,omitempty"`
}

// Parse validates raw against the rule domain and returns its normalized form.
// Numbers may arrive as JSON numbers or numeric strings.
func (r Rule) Parse(raw any) (Value, error) {
	if raw == nil {
		return "", fmt.Errorf("rule %s: %w", r.ID, ErrNilValue)
	}

	if s, ok := raw.(string); ok && Value(strings.TrimSpace(s)) == NotAssessed {
		return NotAssessed, nil
	}

	switch r.Domain {
	case PassFail:
		s, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("rule %s expects %q or %q: %w", r.ID, Pass, Fail, ErrInvalidValue)
		}
		switch v := Value(strings.ToUpper(strings.TrimSpace(s))); v {
		case Pass, Fail:
			return v, nil
		default:
			return "", fmt.Errorf("rule %s expects %q or %q, got %q: %w", r.ID, Pass, Fail, s, ErrInvalidValue)
		}

	case Numeric:
		f, err := toFloat(raw)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("rule %s expects a number: %w", r.ID, ErrInvalidValue)
		}
		return Value(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}

	return "", fmt.Errorf("rule %s has unknown domain %q", r.ID, r.Domain)
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

var visualRules = []Rule{
	{ID: "registrationPlate", Domain: PassFail, Description: "Registration plate present, legible and compliant"},
	{ID: "windscreen", Domain: PassFail, Description: "Windscreen free of cracks obstructing the view"},
	{ID: "wipers", Domain: PassFail, Description: "Wipers and washers operational"},
	{ID: "rearViewMirrors", Domain: PassFail, Description: "Rear view mirrors present and adjustable"},
	{ID: "headlamps", Domain: PassFail, Description: "Head lamps intact"},
	{ID: "indicators", Domain: PassFail, Description: "Direction indicators intact"},
	{ID: "stopLamps", Domain: PassFail, Description: "Stop lamps intact"},
	{ID: "reflectors", Domain: PassFail, Description: "Rear and side reflectors fitted"},
	{ID: "seatBelts", Domain: PassFail, Description: "Seat belts fitted and latching"},
	{ID: "horn", Domain: PassFail, Description: "Horn fitted"},
	{ID: "tyres", Domain: PassFail, Description: "Tyre condition and matching sizes"},
	{ID: "tyreTreadDepth", Domain: Numeric, Unit: "mm", Description: "Minimum tread depth"},
	{ID: "spareWheel", Domain: PassFail, Description: "Spare wheel present"},
	{ID: "speedometer", Domain: PassFail, Description: "Speedometer fitted and illuminated"},
	{ID: "fireExtinguisher", Domain: PassFail, Description: "Fire extinguisher present where mandated"},
	{ID: "firstAidKit", Domain: PassFail, Description: "First aid kit present where mandated"},
	{ID: "bodyCondition", Domain: PassFail, Description: "No sharp edges or loose body parts"},
}

var functionalRules = []Rule{
	{ID: FunctionalPrefix + "3", Domain: PassFail, Description: "Head lamp beam alignment"},
	{ID: FunctionalPrefix + "4", Domain: Numeric, Unit: "%", Description: "Service brake efficiency"},
	{ID: FunctionalPrefix + "5", Domain: Numeric, Unit: "%", Description: "Parking brake efficiency"},
	{ID: FunctionalPrefix + "6", Domain: Numeric, Unit: "m/km", Description: "Side slip"},
	{ID: FunctionalPrefix + "7", Domain: PassFail, Description: "Suspension"},
	{ID: FunctionalPrefix + "8", Domain: Numeric, Unit: "%", Description: "Speedometer deviation"},
	{ID: FunctionalPrefix + "9", Domain: Numeric, Unit: "HSU", Description: "Smoke density"},
	{ID: FunctionalPrefix + "10", Domain: Numeric, Unit: "dB(A)", Description: "Exhaust noise level"},
	{ID: FunctionalPrefix + "11", Domain: Numeric, Unit: "dB(A)", Description: "Horn sound level"},
}

var index = map[Category]map[string]Rule{}

func init() {
	for _, set := range []struct {
		c     Category
		rules []Rule
	}{{Visual, visualRules}, {Functional, functionalRules}} {
		index[set.c] = make(map[string]Rule, len(set.rules))
		for i := range set.rules {
			set.rules[i].Category = set.c
			index[set.c][set.rules[i].ID] = set.rules[i]
		}
	}
}

// Rules returns the rules of category c in catalog order.
// The returned slice is a copy.
func Rules(c Category) []Rule {
	switch c {
	case Visual:
		return append([]Rule(nil), visualRules...)
	case Functional:
		return append([]Rule(nil), functionalRules...)
	default:
		return nil
	}
}

// Lookup finds a rule by identifier within a category.
func Lookup(c Category, id string) (Rule, bool) {
	r, ok := index[c][id]
	return r, ok
}

// IsFunctionalRule reports whether id carries the functional prefix.
func IsFunctionalRule(id string) bool {
	return strings.HasPrefix(id, FunctionalPrefix)
}

// FunctionalRules returns the identifiers of every functional rule, sorted.
func FunctionalRules() []string {
	ids := make([]string, 0, len(functionalRules))
	for id := range index[Functional] {
		if IsFunctionalRule(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Blank returns a result set with every rule of c marked NotAssessed.
func Blank(c Category) map[string]Value {
	rules := Rules(c)
	out := make(map[string]Value, len(rules))
	for _, r := range rules {
		out[r.ID] = NotAssessed
	}
	return out
}
