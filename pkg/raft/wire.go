package raft

import (
	"encoding/binary"

	"github.com/dubalu/xapiand-go/pkg/xerror"
	"google.golang.org/protobuf/encoding/protowire"
)

// ProtocolMajor/ProtocolMinor is this implementation's Raft wire
// version, carried in every packet header.
const (
	ProtocolMajor = 1
	ProtocolMinor = 0
)

// MessageType identifies a UDP Raft packet's payload shape (spec.md
// §4.I, §6 "Wire — UDP Raft packets").
type MessageType byte

const (
	Heartbeat MessageType = iota
	HeartbeatResponse
	AppendEntries
	AppendEntriesResponse
	RequestVote
	RequestVoteResponse
	AddCommand
)

// Packet is one decoded UDP Raft datagram: a version/type header, the
// cluster name (mismatched names are dropped silently, spec.md
// §4.I "Transport"), and the type-specific payload.
type Packet struct {
	Major       uint8
	Minor       uint8
	Type        MessageType
	ClusterName string
	Payload     []byte
}

// EncodePacket serializes p as
// "major:u8, minor:u8, type:u8, len-prefixed(cluster_name), payload"
// (spec.md §6).
func EncodePacket(p Packet) []byte {
	buf := make([]byte, 0, 3+len(p.ClusterName)+len(p.Payload)+4)
	buf = append(buf, p.Major, p.Minor, byte(p.Type))
	buf = protowire.AppendBytes(buf, []byte(p.ClusterName))
	buf = append(buf, p.Payload...)
	return buf
}

// DecodePacket parses a datagram written by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < 3 {
		return Packet{}, xerror.New(xerror.ClientError, "raft packet too short")
	}
	major, minor, typ := data[0], data[1], data[2]
	clusterName, n := protowire.ConsumeBytes(data[3:])
	if n < 0 {
		return Packet{}, xerror.New(xerror.ClientError, "malformed raft packet cluster name")
	}
	return Packet{
		Major:       major,
		Minor:       minor,
		Type:        MessageType(typ),
		ClusterName: string(clusterName),
		Payload:     data[3+n:],
	}, nil
}

// payloadWriter accumulates a packet payload's length-prefixed string
// fields and big-endian fixed-width integer fields, per spec.md §6
// "Payload layout per type is length-prefixed fields" and the packet
// header's big-endian convention.
type payloadWriter struct {
	buf []byte
}

func (w *payloadWriter) putString(s string) {
	w.buf = protowire.AppendBytes(w.buf, []byte(s))
}

func (w *payloadWriter) putUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *payloadWriter) putBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

type payloadReader struct {
	buf []byte
}

func (r *payloadReader) getString() (string, error) {
	s, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		return "", xerror.New(xerror.ClientError, "malformed raft payload string field")
	}
	r.buf = r.buf[n:]
	return string(s), nil
}

func (r *payloadReader) getUint64() (uint64, error) {
	if len(r.buf) < 8 {
		return 0, xerror.New(xerror.ClientError, "malformed raft payload uint64 field")
	}
	v := binary.BigEndian.Uint64(r.buf[:8])
	r.buf = r.buf[8:]
	return v, nil
}

func (r *payloadReader) getBool() (bool, error) {
	if len(r.buf) < 1 {
		return false, xerror.New(xerror.ClientError, "malformed raft payload bool field")
	}
	v := r.buf[0] != 0
	r.buf = r.buf[1:]
	return v, nil
}

func encodeNode(w *payloadWriter, node Node) {
	w.putString(node.Name)
	w.putString(node.Address)
	w.putUint64(uint64(node.HTTPPort))
	w.putUint64(uint64(node.BinaryPort))
}

func decodeNode(r *payloadReader) (Node, error) {
	name, err := r.getString()
	if err != nil {
		return Node{}, err
	}
	addr, err := r.getString()
	if err != nil {
		return Node{}, err
	}
	httpPort, err := r.getUint64()
	if err != nil {
		return Node{}, err
	}
	binaryPort, err := r.getUint64()
	if err != nil {
		return Node{}, err
	}
	return Node{Name: name, Address: addr, HTTPPort: int(httpPort), BinaryPort: int(binaryPort)}, nil
}

// RequestVoteArgs is RequestVote's payload: node, term, lastLogTerm,
// lastLogIndex.
type RequestVoteArgs struct {
	Node         Node
	Term         uint64
	LastLogTerm  uint64
	LastLogIndex uint64
}

func (a RequestVoteArgs) Encode() []byte {
	w := &payloadWriter{}
	encodeNode(w, a.Node)
	w.putUint64(a.Term)
	w.putUint64(a.LastLogTerm)
	w.putUint64(a.LastLogIndex)
	return w.buf
}

func DecodeRequestVoteArgs(payload []byte) (RequestVoteArgs, error) {
	r := &payloadReader{buf: payload}
	node, err := decodeNode(r)
	if err != nil {
		return RequestVoteArgs{}, err
	}
	term, err := r.getUint64()
	if err != nil {
		return RequestVoteArgs{}, err
	}
	lastLogTerm, err := r.getUint64()
	if err != nil {
		return RequestVoteArgs{}, err
	}
	lastLogIndex, err := r.getUint64()
	if err != nil {
		return RequestVoteArgs{}, err
	}
	return RequestVoteArgs{Node: node, Term: term, LastLogTerm: lastLogTerm, LastLogIndex: lastLogIndex}, nil
}

// RequestVoteResponseArgs is RequestVoteResponse's payload: node,
// term, granted:bool.
type RequestVoteResponseArgs struct {
	Node    Node
	Term    uint64
	Granted bool
}

func (a RequestVoteResponseArgs) Encode() []byte {
	w := &payloadWriter{}
	encodeNode(w, a.Node)
	w.putUint64(a.Term)
	w.putBool(a.Granted)
	return w.buf
}

func DecodeRequestVoteResponseArgs(payload []byte) (RequestVoteResponseArgs, error) {
	r := &payloadReader{buf: payload}
	node, err := decodeNode(r)
	if err != nil {
		return RequestVoteResponseArgs{}, err
	}
	term, err := r.getUint64()
	if err != nil {
		return RequestVoteResponseArgs{}, err
	}
	granted, err := r.getBool()
	if err != nil {
		return RequestVoteResponseArgs{}, err
	}
	return RequestVoteResponseArgs{Node: node, Term: term, Granted: granted}, nil
}

// AppendEntriesArgs is AppendEntries's payload: node, term,
// prevLogIndex, prevLogTerm, lastLogIndex, entryTerm, entryCmd:string,
// leaderCommit. An empty EntryCmd (with EntryTerm 0) represents a bare
// heartbeat carrying no log entry.
type AppendEntriesArgs struct {
	Node         Node
	Term         uint64
	PrevLogIndex uint64
	PrevLogTerm  uint64
	LastLogIndex uint64
	EntryTerm    uint64
	EntryCmd     string
	LeaderCommit uint64
}

func (a AppendEntriesArgs) Encode() []byte {
	w := &payloadWriter{}
	encodeNode(w, a.Node)
	w.putUint64(a.Term)
	w.putUint64(a.PrevLogIndex)
	w.putUint64(a.PrevLogTerm)
	w.putUint64(a.LastLogIndex)
	w.putUint64(a.EntryTerm)
	w.putString(a.EntryCmd)
	w.putUint64(a.LeaderCommit)
	return w.buf
}

func DecodeAppendEntriesArgs(payload []byte) (AppendEntriesArgs, error) {
	r := &payloadReader{buf: payload}
	node, err := decodeNode(r)
	if err != nil {
		return AppendEntriesArgs{}, err
	}
	term, err := r.getUint64()
	if err != nil {
		return AppendEntriesArgs{}, err
	}
	prevLogIndex, err := r.getUint64()
	if err != nil {
		return AppendEntriesArgs{}, err
	}
	prevLogTerm, err := r.getUint64()
	if err != nil {
		return AppendEntriesArgs{}, err
	}
	lastLogIndex, err := r.getUint64()
	if err != nil {
		return AppendEntriesArgs{}, err
	}
	entryTerm, err := r.getUint64()
	if err != nil {
		return AppendEntriesArgs{}, err
	}
	entryCmd, err := r.getString()
	if err != nil {
		return AppendEntriesArgs{}, err
	}
	leaderCommit, err := r.getUint64()
	if err != nil {
		return AppendEntriesArgs{}, err
	}
	return AppendEntriesArgs{
		Node: node, Term: term, PrevLogIndex: prevLogIndex, PrevLogTerm: prevLogTerm,
		LastLogIndex: lastLogIndex, EntryTerm: entryTerm, EntryCmd: entryCmd, LeaderCommit: leaderCommit,
	}, nil
}

// AppendEntriesResponseArgs is AppendEntriesResponse's (and
// HeartbeatResponse's) payload: node, term, success:bool, and — only
// when success — nextIndex, matchIndex.
type AppendEntriesResponseArgs struct {
	Node       Node
	Term       uint64
	Success    bool
	NextIndex  uint64
	MatchIndex uint64
}

func (a AppendEntriesResponseArgs) Encode() []byte {
	w := &payloadWriter{}
	encodeNode(w, a.Node)
	w.putUint64(a.Term)
	w.putBool(a.Success)
	if a.Success {
		w.putUint64(a.NextIndex)
		w.putUint64(a.MatchIndex)
	}
	return w.buf
}

func DecodeAppendEntriesResponseArgs(payload []byte) (AppendEntriesResponseArgs, error) {
	r := &payloadReader{buf: payload}
	node, err := decodeNode(r)
	if err != nil {
		return AppendEntriesResponseArgs{}, err
	}
	term, err := r.getUint64()
	if err != nil {
		return AppendEntriesResponseArgs{}, err
	}
	success, err := r.getBool()
	if err != nil {
		return AppendEntriesResponseArgs{}, err
	}
	out := AppendEntriesResponseArgs{Node: node, Term: term, Success: success}
	if success {
		out.NextIndex, err = r.getUint64()
		if err != nil {
			return AppendEntriesResponseArgs{}, err
		}
		out.MatchIndex, err = r.getUint64()
		if err != nil {
			return AppendEntriesResponseArgs{}, err
		}
	}
	return out, nil
}

// HeartbeatArgs is Heartbeat's payload: node, term, lastLogIndex,
// lastLogTerm, leaderCommit.
type HeartbeatArgs struct {
	Node         Node
	Term         uint64
	LastLogIndex uint64
	LastLogTerm  uint64
	LeaderCommit uint64
}

func (a HeartbeatArgs) Encode() []byte {
	w := &payloadWriter{}
	encodeNode(w, a.Node)
	w.putUint64(a.Term)
	w.putUint64(a.LastLogIndex)
	w.putUint64(a.LastLogTerm)
	w.putUint64(a.LeaderCommit)
	return w.buf
}

func DecodeHeartbeatArgs(payload []byte) (HeartbeatArgs, error) {
	r := &payloadReader{buf: payload}
	node, err := decodeNode(r)
	if err != nil {
		return HeartbeatArgs{}, err
	}
	term, err := r.getUint64()
	if err != nil {
		return HeartbeatArgs{}, err
	}
	lastLogIndex, err := r.getUint64()
	if err != nil {
		return HeartbeatArgs{}, err
	}
	lastLogTerm, err := r.getUint64()
	if err != nil {
		return HeartbeatArgs{}, err
	}
	leaderCommit, err := r.getUint64()
	if err != nil {
		return HeartbeatArgs{}, err
	}
	return HeartbeatArgs{Node: node, Term: term, LastLogIndex: lastLogIndex, LastLogTerm: lastLogTerm, LeaderCommit: leaderCommit}, nil
}

// AddCommandArgs is AddCommand's payload: node, cmd:string.
type AddCommandArgs struct {
	Node Node
	Cmd  string
}

func (a AddCommandArgs) Encode() []byte {
	w := &payloadWriter{}
	encodeNode(w, a.Node)
	w.putString(a.Cmd)
	return w.buf
}

func DecodeAddCommandArgs(payload []byte) (AddCommandArgs, error) {
	r := &payloadReader{buf: payload}
	node, err := decodeNode(r)
	if err != nil {
		return AddCommandArgs{}, err
	}
	cmd, err := r.getString()
	if err != nil {
		return AddCommandArgs{}, err
	}
	return AddCommandArgs{Node: node, Cmd: cmd}, nil
}
