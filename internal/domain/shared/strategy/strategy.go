// Package strategy carries the plumbing shared by pluggable domain policies:
// a self-describing Strategy and a keyed Registry of them.
package strategy

import "fmt"

// Strategy is a named, documented policy
type Strategy interface {
	Name() string
	Description() string
}

// Descriptor implements Strategy for embedding
type Descriptor struct {
	name        string
	description string
}

// Describe creates a Descriptor
func Describe(name, description string) Descriptor {
	return Descriptor{name: name, description: description}
}

func (d Descriptor) Name() string        { return d.name }
func (d Descriptor) Description() string { return d.description }

// Registry maps selector keys to strategies. It is built once at package
// init and read concurrently afterwards.
type Registry[K comparable, S Strategy] struct {
	byKey map[K]S
	keys  []K
}

// NewRegistry creates an empty registry
func NewRegistry[K comparable, S Strategy]() *Registry[K, S] {
	return &Registry[K, S]{byKey: make(map[K]S)}
}

// MustRegister adds s under key and panics on a duplicate key
func (r *Registry[K, S]) MustRegister(key K, s S) *Registry[K, S] {
	if _, dup := r.byKey[key]; dup {
		panic(fmt.Sprintf("strategy: duplicate key %v", key))
	}
	r.byKey[key] = s
	r.keys = append(r.keys, key)
	return r
}

// Get returns the strategy registered under key
func (r *Registry[K, S]) Get(key K) (S, bool) {
	s, ok := r.byKey[key]
	return s, ok
}

// Keys lists registered keys in registration order
func (r *Registry[K, S]) Keys() []K {
	return append([]K(nil), r.keys...)
}
