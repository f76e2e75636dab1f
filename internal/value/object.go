package value

// Object is an insertion-ordered string-keyed map of values.
type Object struct {
	keys  []string
	vals  []Value
	index map[string]int
}

// NewObject returns an empty object sized for n keys.
func NewObject(n int) *Object {
	return &Object{
		keys:  make([]string, 0, n),
		vals:  make([]Value, 0, n),
		index: make(map[string]int, n),
	}
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v Value) *Object {
	if i, ok := o.index[key]; ok {
		o.vals[i] = v
		return o
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, v)
	return o
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Null(), false
	}
	i, ok := o.index[key]
	if !ok {
		return Null(), false
	}
	return o.vals[i], true
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Range calls fn for each entry in order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for i, k := range o.keys {
		if !fn(k, o.vals[i]) {
			return
		}
	}
}

// Equal compares keys, order and values.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for i, k := range o.Keys() {
		if other.keys[i] != k || !o.vals[i].Equal(other.vals[i]) {
			return false
		}
	}
	return true
}
