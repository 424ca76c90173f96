package remote

import "google.golang.org/protobuf/encoding/protowire"

// Version is the remote protocol's (major, minor) greeting pair
// (spec.md §4.H "initial greeting carries (major, minor); either side
// rejects a higher major").
type Version struct {
	Major uint32
	Minor uint32
}

// ProtocolMajor/ProtocolMinor is this implementation's own protocol
// version, sent in every greeting.
const (
	ProtocolMajor = 1
	ProtocolMinor = 0
)

// MessageType identifies a request frame's payload shape (spec.md
// §4.H message table). The zero value is not a valid message.
type MessageType byte

const (
	_ MessageType = iota
	MsgKeepAlive
	MsgAllTerms
	MsgDocument
	MsgTermExists
	MsgQuery
	MsgGetMSet
	MsgAddDocument
	MsgDeleteDocumentTerm
	MsgReplaceDocumentTerm
	MsgCommit
	MsgGetMetadata
	MsgSetMetadata
	MsgWriteAccess
	MsgReadAccess
	MsgReopen
	MsgShutdown
	MsgGetChangesets
)

// ReplyType identifies a response frame's payload shape.
type ReplyType byte

const (
	_ ReplyType = iota
	ReplyAllTerms
	ReplyDone
	ReplyDocData
	ReplyTermExists
	ReplyTermDoesntExist
	ReplyStats
	ReplyResults
	ReplyAddDocument
	ReplyMetadata
	ReplyUpdate
	ReplyException
	ReplyChangeset
)

// FileFollows introduces a file-follows payload: length is the size
// of a temporary file streamed immediately after the header, rather
// than an in-memory frame payload (spec.md §4.H).
const FileFollows byte = 0xFD

// GreetingFrameType tags the version-exchange frame each side sends
// once, before any MessageType/ReplyType traffic.
const GreetingFrameType byte = 0x00

// Replies lists the valid reply type(s) for each request message,
// per spec.md §4.H's message table. MsgShutdown and MsgKeepAlive are
// handled directly by the connection state machine and have no entry
// here.
var Replies = map[MessageType][]ReplyType{
	MsgAllTerms:            {ReplyAllTerms, ReplyDone},
	MsgDocument:            {ReplyDocData},
	MsgTermExists:          {ReplyTermExists, ReplyTermDoesntExist},
	MsgQuery:               {ReplyStats},
	MsgGetMSet:             {ReplyResults},
	MsgAddDocument:         {ReplyAddDocument},
	MsgDeleteDocumentTerm:  {ReplyDone},
	MsgReplaceDocumentTerm: {ReplyAddDocument},
	MsgCommit:              {ReplyDone},
	MsgGetMetadata:         {ReplyMetadata},
	MsgSetMetadata:         {ReplyDone},
	MsgWriteAccess:         {ReplyUpdate},
	MsgReadAccess:          {ReplyUpdate},
	MsgReopen:              {ReplyUpdate},
	MsgGetChangesets:       {ReplyChangeset, ReplyDone},
}

// AcceptsReply reports whether reply is one of the replies spec.md
// §4.H's message table allows for msg.
func AcceptsReply(msg MessageType, reply ReplyType) bool {
	for _, r := range Replies[msg] {
		if r == reply {
			return true
		}
	}
	return reply == ReplyException
}

// EncodeGetChangesets serializes a GetChangesets request's
// (start_rev, end_rev) payload (spec.md §4.H "Replication subset:
// adds GetChangesets(start_rev, end_rev)"). endRev of 0 means
// "latest", per spec.md §4.J step 4.
func EncodeGetChangesets(startRev, endRev uint64) []byte {
	buf := protowire.AppendVarint(nil, startRev)
	buf = protowire.AppendVarint(buf, endRev)
	return buf
}

// DecodeGetChangesets parses a GetChangesets request payload.
func DecodeGetChangesets(payload []byte) (startRev, endRev uint64, ok bool) {
	startRev, n := protowire.ConsumeVarint(payload)
	if n < 0 {
		return 0, 0, false
	}
	endRev, n2 := protowire.ConsumeVarint(payload[n:])
	if n2 < 0 {
		return 0, 0, false
	}
	return startRev, endRev, true
}

// EncodeChangeset wraps one changeset's opaque data for a
// ReplyChangeset frame.
func EncodeChangeset(revision uint64, data []byte) []byte {
	buf := protowire.AppendVarint(nil, revision)
	buf = protowire.AppendBytes(buf, data)
	return buf
}

// DecodeChangeset parses a ReplyChangeset frame's payload.
func DecodeChangeset(payload []byte) (revision uint64, data []byte, ok bool) {
	revision, n := protowire.ConsumeVarint(payload)
	if n < 0 {
		return 0, nil, false
	}
	data, n2 := protowire.ConsumeBytes(payload[n:])
	if n2 < 0 {
		return 0, nil, false
	}
	return revision, data, true
}
