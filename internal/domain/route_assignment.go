package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// RouteAssignment maps a 0-based route index to the ordered station names
// visited on that route. It is the user-facing form of a solution and the
// payload persisted by the solution store.
type RouteAssignment map[int][]string

// MarshalJSON writes routes as an object keyed by decimal route index, in
// ascending numeric order, so equal assignments always produce equal bytes.
// Empty routes are written as [] rather than null.
func (a RouteAssignment) MarshalJSON() ([]byte, error) {
	keys := make([]int, 0, len(a))
	for k := range a {
		if k < 0 {
			return nil, fmt.Errorf("marshal route assignment: negative route index %d", k)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.Itoa(k))
		buf.WriteString(`":`)

		names := a[k]
		if names == nil {
			names = []string{}
		}
		b, err := json.Marshal(names)
		if err != nil {
			return nil, fmt.Errorf("marshal route assignment: route %d: %w", k, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (a *RouteAssignment) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal route assignment: %w", err)
	}
	if raw == nil {
		return errors.New("unmarshal route assignment: payload is null")
	}

	out := make(RouteAssignment, len(raw))
	for k, names := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return fmt.Errorf("unmarshal route assignment: invalid route index %q", k)
		}
		if names == nil {
			names = []string{}
		}
		out[idx] = names
	}
	*a = out

	return nil
}

// EncodeRouteAssignment serializes an assignment into its stored form.
func EncodeRouteAssignment(a RouteAssignment) ([]byte, error) {
	return json.Marshal(a)
}

// DecodeRouteAssignment parses a stored payload back into an assignment.
func DecodeRouteAssignment(payload []byte) (RouteAssignment, error) {
	var a RouteAssignment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, err
	}
	return a, nil
}

// Clone returns a deep copy so callers sharing a result cannot alias each other.
func (a RouteAssignment) Clone() RouteAssignment {
	if a == nil {
		return nil
	}
	out := make(RouteAssignment, len(a))
	for k, names := range a {
		out[k] = append([]string{}, names...)
	}
	return out
}
