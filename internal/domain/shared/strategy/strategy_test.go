package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type discount struct {
	Descriptor
	rate int
}

func TestRegistry(t *testing.T) {
	r := NewRegistry[string, discount]().
		MustRegister("none", discount{Descriptor: Describe("no_discount", "Full price")}).
		MustRegister("loyal", discount{Descriptor: Describe("loyalty", "Ten percent off"), rate: 10})

	s, ok := r.Get("loyal")
	assert.True(t, ok)
	assert.Equal(t, "loyalty", s.Name())
	assert.Equal(t, "Ten percent off", s.Description())
	assert.Equal(t, 10, s.rate)

	_, ok = r.Get("staff")
	assert.False(t, ok)

	keys := r.Keys()
	assert.Equal(t, []string{"none", "loyal"}, keys)
	keys[0] = "mutated"
	assert.Equal(t, []string{"none", "loyal"}, r.Keys())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry[int, Descriptor]().MustRegister(1, Describe("a", ""))
	assert.Panics(t, func() { r.MustRegister(1, Describe("b", "")) })
}
