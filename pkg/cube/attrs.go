// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

// Attr is a free-form key/value annotation.
type Attr struct {
	Key, Value string
}

// Attrs is an ordered list of annotations. Setting an existing key replaces
// its value in place.
type Attrs []Attr

// Set adds or replaces the value of key.
func (a *Attrs) Set(key, value string) {
	for i := range *a {
		if (*a)[i].Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attr{Key: key, Value: value})
}

// Get returns the value of key.
func (a Attrs) Get(key string) (string, bool) {
	for _, kv := range a {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}
