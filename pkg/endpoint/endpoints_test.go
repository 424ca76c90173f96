package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointsHashOrderIndependent(t *testing.T) {
	a := Endpoint{Host: "node1", Path: "/idx", Port: DefaultBinaryPort}
	b := Endpoint{Host: "node2", Path: "/idx", Port: DefaultBinaryPort}

	s1 := NewEndpoints(a, b)
	s2 := NewEndpoints(b, a)

	assert.Equal(t, s1.Hash(), s2.Hash())
}

func TestEndpointsDeduplicates(t *testing.T) {
	a := Endpoint{Host: "node1", Path: "/idx", Port: DefaultBinaryPort}
	s := NewEndpoints(a, a)
	assert.Equal(t, 1, s.Len())
}

func TestEndpointsEqual(t *testing.T) {
	a := Endpoint{Host: "node1", Path: "/idx", Port: DefaultBinaryPort}
	b := Endpoint{Host: "node2", Path: "/idx", Port: DefaultBinaryPort}

	s1 := NewEndpoints(a, b)
	s2 := NewEndpoints(b, a)
	assert.True(t, s1.Equal(s2))
}

func TestEndpointsUnequalOnMembership(t *testing.T) {
	a := Endpoint{Host: "node1", Path: "/idx", Port: DefaultBinaryPort}
	b := Endpoint{Host: "node2", Path: "/idx", Port: DefaultBinaryPort}
	c := Endpoint{Host: "node3", Path: "/idx", Port: DefaultBinaryPort}

	s1 := NewEndpoints(a, b)
	s2 := NewEndpoints(a, c)
	assert.False(t, s1.Equal(s2))
}
