package raft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketRoundTrip(t *testing.T) {
	p := Packet{Major: ProtocolMajor, Minor: ProtocolMinor, Type: RequestVote, ClusterName: "xapiand", Payload: []byte("payload-bytes")}
	got, err := DecodePacket(EncodePacket(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodePacketTooShort(t *testing.T) {
	_, err := DecodePacket([]byte{1, 2})
	assert.Error(t, err)
}

func TestRequestVoteArgsRoundTrip(t *testing.T) {
	a := RequestVoteArgs{
		Node:         Node{Name: "node1", Address: "10.0.0.1", HTTPPort: 8880, BinaryPort: 8890},
		Term:         7,
		LastLogTerm:  3,
		LastLogIndex: 42,
	}
	got, err := DecodeRequestVoteArgs(a.Encode())
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestRequestVoteResponseArgsRoundTrip(t *testing.T) {
	a := RequestVoteResponseArgs{Node: Node{Name: "node2"}, Term: 7, Granted: true}
	got, err := DecodeRequestVoteResponseArgs(a.Encode())
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAppendEntriesArgsRoundTrip(t *testing.T) {
	a := AppendEntriesArgs{
		Node: Node{Name: "leader"}, Term: 5, PrevLogIndex: 10, PrevLogTerm: 4,
		LastLogIndex: 11, EntryTerm: 5, EntryCmd: "add-node node3", LeaderCommit: 9,
	}
	got, err := DecodeAppendEntriesArgs(a.Encode())
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAppendEntriesResponseArgsRoundTripSuccess(t *testing.T) {
	a := AppendEntriesResponseArgs{Node: Node{Name: "follower"}, Term: 5, Success: true, NextIndex: 12, MatchIndex: 11}
	got, err := DecodeAppendEntriesResponseArgs(a.Encode())
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAppendEntriesResponseArgsRoundTripFailureOmitsIndexes(t *testing.T) {
	a := AppendEntriesResponseArgs{Node: Node{Name: "follower"}, Term: 5, Success: false}
	got, err := DecodeAppendEntriesResponseArgs(a.Encode())
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestHeartbeatArgsRoundTrip(t *testing.T) {
	a := HeartbeatArgs{Node: Node{Name: "leader"}, Term: 5, LastLogIndex: 11, LastLogTerm: 5, LeaderCommit: 9}
	got, err := DecodeHeartbeatArgs(a.Encode())
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAddCommandArgsRoundTrip(t *testing.T) {
	a := AddCommandArgs{Node: Node{Name: "follower"}, Cmd: "add-node node4"}
	got, err := DecodeAddCommandArgs(a.Encode())
	require.NoError(t, err)
	assert.Equal(t, a, got)
}
