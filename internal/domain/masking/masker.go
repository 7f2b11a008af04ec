// Package masking removes client identifying data from arbitrary nested
// values before they leave the service.
package masking

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

var ErrMasking = errors.New("masking failed")

// MaskingError is fatal: a value that cannot be fully masked must not be
// sent anywhere.
type MaskingError struct {
	Path   string
	Reason string
}

func (e *MaskingError) Error() string {
	return fmt.Sprintf("masking %s: %s", e.Path, e.Reason)
}

func (e *MaskingError) Unwrap() error { return ErrMasking }

// Masker applies a rule table to nested maps, slices and scalars.
type Masker struct {
	rules *Rules
}

func New(rules *Rules) *Masker {
	return &Masker{rules: rules}
}

// Mask returns a masked copy of v with the same shape: maps keep their keys,
// sequences keep their length and order. Maps come back as map[string]any
// and sequences as []any. v itself is not modified.
func (m *Masker) Mask(v any) (any, error) {
	w := &walker{rules: m.rules, onPath: make(map[visitKey]struct{})}
	return w.walk(reflect.ValueOf(v), "$", nil)
}

// MaskJSON converts v to its JSON tree and masks the result. It is the way to
// mask structs, which Mask refuses to look into.
func (m *Masker) MaskJSON(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &MaskingError{Path: "$", Reason: fmt.Sprintf("encode: %v", err)}
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, &MaskingError{Path: "$", Reason: fmt.Sprintf("decode: %v", err)}
	}
	masked, err := m.Mask(tree)
	if err != nil {
		return nil, err
	}
	out, _ := masked.(map[string]any)
	return out, nil
}

type visitKey struct {
	kind reflect.Kind
	ptr  uintptr
}

type walker struct {
	rules  *Rules
	onPath map[visitKey]struct{}
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// walk visits v. strategy is the rule inherited from the field holding v,
// nil when that field is not sensitive.
func (w *walker) walk(v reflect.Value, at string, strategy Strategy) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v.Interface(), nil
		}
		return w.walk(v.Elem(), at, strategy)

	case reflect.Pointer:
		if v.IsNil() {
			return v.Interface(), nil
		}
		if v.Type().Implements(textMarshalerType) {
			return w.scalar(v, at, strategy)
		}
		leave, err := w.enter(v, at)
		if err != nil {
			return nil, err
		}
		defer leave()
		return w.walk(v.Elem(), at, strategy)

	case reflect.Map:
		return w.mapping(v, at)

	case reflect.Slice, reflect.Array:
		return w.sequence(v, at, strategy)

	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return w.scalar(v, at, strategy)

	case reflect.Struct:
		if v.Type().Implements(textMarshalerType) {
			return w.scalar(v, at, strategy)
		}
		return nil, &MaskingError{Path: at, Reason: fmt.Sprintf("cannot inspect struct %s", v.Type())}

	default:
		return nil, &MaskingError{Path: at, Reason: fmt.Sprintf("unsupported value of kind %s", v.Kind())}
	}
}

func (w *walker) mapping(v reflect.Value, at string) (any, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, &MaskingError{Path: at, Reason: fmt.Sprintf("map key type %s is not a string", v.Type().Key())}
	}
	if v.IsNil() {
		return map[string]any(nil), nil
	}
	leave, err := w.enter(v, at)
	if err != nil {
		return nil, err
	}
	defer leave()

	keys := make([]string, 0, v.Len())
	values := make(map[string]reflect.Value, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		keys = append(keys, k)
		values[k] = iter.Value()
	}
	sort.Strings(keys)

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		strategy, _ := w.rules.Match(k)
		masked, err := w.walk(values[k], at+"."+k, strategy)
		if err != nil {
			return nil, err
		}
		out[k] = masked
	}
	return out, nil
}

func (w *walker) sequence(v reflect.Value, at string, strategy Strategy) (any, error) {
	if v.Kind() == reflect.Slice {
		if v.IsNil() {
			return []any(nil), nil
		}
		if v.Len() > 0 {
			leave, err := w.enter(v, at)
			if err != nil {
				return nil, err
			}
			defer leave()
		}
	}

	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		masked, err := w.walk(v.Index(i), at+"["+strconv.Itoa(i)+"]", strategy)
		if err != nil {
			return nil, err
		}
		out[i] = masked
	}
	return out, nil
}

func (w *walker) scalar(v reflect.Value, at string, strategy Strategy) (any, error) {
	if strategy == nil {
		return v.Interface(), nil
	}
	if v.Kind() == reflect.String {
		return strategy(v.String()), nil
	}
	if tm, ok := v.Interface().(encoding.TextMarshaler); ok {
		text, err := tm.MarshalText()
		if err != nil {
			return nil, &MaskingError{Path: at, Reason: fmt.Sprintf("marshal text: %v", err)}
		}
		return strategy(string(text)), nil
	}
	return strategy(fmt.Sprint(v.Interface())), nil
}

// enter marks a reference value as being on the current path and fails when
// it is already there.
func (w *walker) enter(v reflect.Value, at string) (func(), error) {
	key := visitKey{kind: v.Kind(), ptr: v.Pointer()}
	if _, seen := w.onPath[key]; seen {
		return nil, &MaskingError{Path: at, Reason: "cycle detected"}
	}
	w.onPath[key] = struct{}{}
	return func() { delete(w.onPath, key) }, nil
}
