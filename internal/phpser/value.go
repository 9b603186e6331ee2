// Package phpser models the subset of PHP's serialize() format used by PEAR
// configuration files (null, bool, int, float, string and array) as a tree
// of typed values. Encoding and decoding go through elliotchance/phpserialize.
package phpser

import "strconv"

// Value is one of String, Int, Float, Bool, Null or *Array.
type Value interface {
	isValue()
}

type (
	String string
	Int    int64
	Float  float64
	Bool   bool
	Null   struct{}
)

func (String) isValue() {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (Bool) isValue()   {}
func (Null) isValue()   {}
func (*Array) isValue() {}

// Key is an array key. PHP array keys are either integers or strings.
type Key struct {
	Int   int64
	Str   string
	IsInt bool
}

// StrKey returns a string key.
func StrKey(s string) Key { return Key{Str: s} }

// IntKey returns an integer key.
func IntKey(i int64) Key { return Key{Int: i, IsInt: true} }

func (k Key) String() string {
	if k.IsInt {
		return strconv.FormatInt(k.Int, 10)
	}
	return k.Str
}

// Entry is a key/value pair of an Array.
type Entry struct {
	Key   Key
	Value Value
}

// Array is an ordered map, like a PHP array.
type Array struct {
	entries []Entry
	index   map[Key]int
}

// NewArray returns an empty array.
func NewArray() *Array {
	return &Array{index: make(map[Key]int)}
}

// Len returns the number of entries.
func (a *Array) Len() int { return len(a.entries) }

// Entries returns the entries in insertion order. The slice must not be modified.
func (a *Array) Entries() []Entry { return a.entries }

// Get returns the value stored under k.
func (a *Array) Get(k Key) (Value, bool) {
	i, ok := a.index[k]
	if !ok {
		return nil, false
	}
	return a.entries[i].Value, true
}

// Lookup returns the value stored under the string key name.
func (a *Array) Lookup(name string) (Value, bool) {
	return a.Get(StrKey(name))
}

// Set stores v under k, keeping the original position of an existing key.
func (a *Array) Set(k Key, v Value) *Array {
	if a.index == nil {
		a.index = make(map[Key]int)
	}
	if i, ok := a.index[k]; ok {
		a.entries[i].Value = v
		return a
	}
	a.index[k] = len(a.entries)
	a.entries = append(a.entries, Entry{Key: k, Value: v})
	return a
}

// SetString stores v under the string key name.
func (a *Array) SetString(name string, v Value) *Array {
	return a.Set(StrKey(name), v)
}

// Append stores v under the next integer key.
func (a *Array) Append(v Value) *Array {
	next := int64(0)
	for _, e := range a.entries {
		if e.Key.IsInt && e.Key.Int >= next {
			next = e.Key.Int + 1
		}
	}
	return a.Set(IntKey(next), v)
}

// Keys returns the keys in insertion order.
func (a *Array) Keys() []Key {
	keys := make([]Key, len(a.entries))
	for i, e := range a.entries {
		keys[i] = e.Key
	}
	return keys
}
