package verifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

const includesOperator = "includes"

type claimAssertion struct {
	claim    string
	includes bool
	expected any
}

// parseAssertClaims turns the AssertClaims map into a stable, ordered list of
// assertions.
func parseAssertClaims(assertClaims map[string]any) ([]claimAssertion, error) {
	names := make([]string, 0, len(assertClaims))
	for name := range assertClaims {
		names = append(names, name)
	}
	sort.Strings(names)

	assertions := make([]claimAssertion, 0, len(names))
	for _, name := range names {
		claim, operator, hasOperator := strings.Cut(name, ".")
		if hasOperator && operator != includesOperator {
			return nil, fmt.Errorf("operator: '%s' is not supported in assertClaims", operator)
		}
		assertions = append(assertions, claimAssertion{
			claim:    claim,
			includes: hasOperator,
			expected: assertClaims[name],
		})
	}
	return assertions, nil
}

func (a claimAssertion) check(claims map[string]any) error {
	actual := claims[a.claim]

	if !a.includes {
		if !claimEquals(actual, a.expected) {
			return fmt.Errorf("claim '%s' value '%v' does not match expected value '%v'", a.claim, actual, a.expected)
		}
		return nil
	}

	values, ok := asSlice(actual)
	if !ok {
		return fmt.Errorf("claim '%s' value '%v' is not an array", a.claim, actual)
	}

	expected, ok := asSlice(a.expected)
	if !ok {
		expected = []any{a.expected}
	}

	for _, want := range expected {
		if !containsClaim(values, want) {
			return fmt.Errorf("claim '%s' value '%v' does not include expected value '%v'", a.claim, actual, want)
		}
	}
	return nil
}

// claimEquals compares claim values by their JSON encoding, so numbers decoded
// as float64 match integers from the configuration. A single element array
// matches its element, which is how audiences come out of the token.
func claimEquals(actual, expected any) bool {
	if values, ok := asSlice(actual); ok && len(values) == 1 {
		if _, expectedIsSlice := asSlice(expected); !expectedIsSlice {
			actual = values[0]
		}
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false
	}
	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		return false
	}
	return bytes.Equal(actualJSON, expectedJSON)
}

func containsClaim(values []any, want any) bool {
	for _, v := range values {
		if claimEquals(v, want) {
			return true
		}
	}
	return false
}

func asSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
