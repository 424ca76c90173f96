package raft

import "testing"

func TestNodeEqualIsCaseInsensitiveOnName(t *testing.T) {
	a := Node{Name: "Node1", Address: "10.0.0.1", HTTPPort: 8880, BinaryPort: 8890}
	b := Node{Name: "node1", Address: "10.0.0.1", HTTPPort: 8880, BinaryPort: 8890}
	if !a.Equal(b) {
		t.Fatal("expected case-insensitive name match to be equal")
	}
}

func TestNodeEqualRequiresMatchingAddressAndPorts(t *testing.T) {
	a := Node{Name: "node1", Address: "10.0.0.1", HTTPPort: 8880, BinaryPort: 8890}
	b := Node{Name: "node1", Address: "10.0.0.2", HTTPPort: 8880, BinaryPort: 8890}
	if a.Equal(b) {
		t.Fatal("expected differing address to make nodes unequal")
	}
}

func TestNodeIsLocal(t *testing.T) {
	n := Node{Name: "node1", Address: "10.0.0.1"}
	if !n.IsLocal([]string{"127.0.0.1", "10.0.0.1"}) {
		t.Fatal("expected 10.0.0.1 to be recognized as local")
	}
	if n.IsLocal([]string{"127.0.0.1"}) {
		t.Fatal("expected no match against unrelated interfaces")
	}
}
