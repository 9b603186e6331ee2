package phpser

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/elliotchance/phpserialize"
)

// ErrUnsupported is returned for serialized types outside the supported subset.
var ErrUnsupported = errors.New("unsupported serialized type")

// Marshal encodes v in PHP serialize() format.
func Marshal(v Value) ([]byte, error) {
	native, err := toNative(v)
	if err != nil {
		return nil, err
	}
	return phpserialize.Marshal(native, phpserialize.DefaultMarshalOptions())
}

func toNative(v Value) (any, error) {
	switch t := v.(type) {
	case nil, Null:
		return nil, nil
	case Bool:
		return bool(t), nil
	case Int:
		return int64(t), nil
	case Float:
		return float64(t), nil
	case String:
		return string(t), nil
	case *Array:
		m := make(map[any]any, t.Len())
		for _, e := range t.entries {
			val, err := toNative(e.Value)
			if err != nil {
				return nil, err
			}
			if e.Key.IsInt {
				m[e.Key.Int] = val
			} else {
				m[e.Key.Str] = val
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// Unmarshal decodes a single serialized value. Array entries come back with
// integer keys first, in ascending order, followed by string keys sorted.
func Unmarshal(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("phpser: empty input")
	}

	var err error
	switch data[0] {
	case 'N':
		if string(data) != "N;" {
			return nil, fmt.Errorf("phpser: invalid null %q", data)
		}
		return Null{}, nil
	case 'b':
		var b bool
		err = phpserialize.Unmarshal(data, &b)
		if err == nil {
			return Bool(b), nil
		}
	case 'i':
		var n int64
		err = phpserialize.Unmarshal(data, &n)
		if err == nil {
			return Int(n), nil
		}
	case 'd':
		var f float64
		err = phpserialize.Unmarshal(data, &f)
		if err == nil {
			return Float(f), nil
		}
	case 's':
		var s string
		err = phpserialize.Unmarshal(data, &s)
		if err == nil {
			return String(s), nil
		}
	case 'a':
		var m map[any]any
		m, err = phpserialize.UnmarshalAssociativeArray(data)
		if err == nil {
			return fromNative(m)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupported, data[0])
	}
	return nil, fmt.Errorf("phpser: %w", err)
}

func fromNative(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case int64:
		return Int(t), nil
	case int:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []any:
		arr := NewArray()
		for _, item := range t {
			val, err := fromNative(item)
			if err != nil {
				return nil, err
			}
			arr.Append(val)
		}
		return arr, nil
	case map[any]any:
		keys := make([]Key, 0, len(t))
		values := make(map[Key]any, len(t))
		for k, val := range t {
			key, err := nativeKey(k)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
			values[key] = val
		}
		slices.SortFunc(keys, compareKeys)

		arr := NewArray()
		for _, key := range keys {
			val, err := fromNative(values[key])
			if err != nil {
				return nil, err
			}
			arr.Set(key, val)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

func nativeKey(k any) (Key, error) {
	switch t := k.(type) {
	case int64:
		return IntKey(t), nil
	case int:
		return IntKey(int64(t)), nil
	case string:
		return StrKey(t), nil
	default:
		return Key{}, fmt.Errorf("%w: array key of type %T", ErrUnsupported, k)
	}
}

func compareKeys(a, b Key) int {
	switch {
	case a.IsInt && b.IsInt:
		return cmp.Compare(a.Int, b.Int)
	case a.IsInt:
		return -1
	case b.IsInt:
		return 1
	}
	return cmp.Compare(a.Str, b.Str)
}
