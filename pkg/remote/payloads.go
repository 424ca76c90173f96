package remote

import (
	"github.com/dubalu/xapiand-go/pkg/backend"
	"github.com/dubalu/xapiand-go/pkg/doc"
	"google.golang.org/protobuf/encoding/protowire"
)

// This file defines the request/reply payload encodings for the
// document/query messages of spec.md §4.H's message table
// (AllTerms, Document, TermExists, Query, GetMSet, AddDocument,
// DeleteDocumentTerm, ReplaceDocumentTerm, Commit, GetMetadata,
// SetMetadata, ReadAccess/WriteAccess, Reopen). spec.md names the
// message/reply pairs but not a byte layout, so these follow the same
// varint/length-delimited protowire framing already used by
// EncodeVersion/EncodeException/EncodeChangeset.

// EncodeAllTerms serializes a list of terms for a ReplyAllTerms frame.
func EncodeAllTerms(terms []string) []byte {
	var buf []byte
	buf = protowire.AppendVarint(buf, uint64(len(terms)))
	for _, t := range terms {
		buf = protowire.AppendString(buf, t)
	}
	return buf
}

// DecodeAllTerms parses a ReplyAllTerms payload.
func DecodeAllTerms(payload []byte) (terms []string, ok bool) {
	n, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return nil, false
	}
	payload = payload[m:]
	terms = make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s, m := protowire.ConsumeString(payload)
		if m < 0 {
			return nil, false
		}
		payload = payload[m:]
		terms = append(terms, s)
	}
	return terms, true
}

// EncodeDocument serializes an already-assembled backend.Document —
// used by tests and debugging tools that need a Document wire form
// without going through the schema engine.
func EncodeDocument(doc *backend.Document) []byte {
	var buf []byte
	buf = protowire.AppendVarint(buf, uint64(len(doc.Terms)))
	for _, t := range doc.Terms {
		buf = protowire.AppendString(buf, t.Prefix)
		buf = protowire.AppendString(buf, t.Term)
		buf = protowire.AppendVarint(buf, uint64(t.Wdf))
		boolByte := uint64(0)
		if t.Boolean {
			boolByte = 1
		}
		buf = protowire.AppendVarint(buf, boolByte)
	}
	buf = protowire.AppendVarint(buf, uint64(len(doc.Values)))
	for slot, val := range doc.Values {
		buf = protowire.AppendVarint(buf, uint64(slot))
		buf = protowire.AppendBytes(buf, val)
	}
	buf = protowire.AppendBytes(buf, doc.Data)
	return buf
}

// DecodeDocument parses an EncodeDocument payload.
func DecodeDocument(payload []byte) (*backend.Document, bool) {
	doc := backend.NewDocument()

	nTerms, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return nil, false
	}
	payload = payload[m:]
	for i := uint64(0); i < nTerms; i++ {
		prefix, m := protowire.ConsumeString(payload)
		if m < 0 {
			return nil, false
		}
		payload = payload[m:]
		term, m := protowire.ConsumeString(payload)
		if m < 0 {
			return nil, false
		}
		payload = payload[m:]
		wdf, m := protowire.ConsumeVarint(payload)
		if m < 0 {
			return nil, false
		}
		payload = payload[m:]
		boolByte, m := protowire.ConsumeVarint(payload)
		if m < 0 {
			return nil, false
		}
		payload = payload[m:]
		if boolByte != 0 {
			doc.AddBooleanTerm(prefix, term)
		} else {
			doc.AddTerm(prefix, term, int(wdf))
		}
	}

	nValues, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return nil, false
	}
	payload = payload[m:]
	for i := uint64(0); i < nValues; i++ {
		slot, m := protowire.ConsumeVarint(payload)
		if m < 0 {
			return nil, false
		}
		payload = payload[m:]
		val, m := protowire.ConsumeBytes(payload)
		if m < 0 {
			return nil, false
		}
		payload = payload[m:]
		doc.AddValue(uint32(slot), append([]byte(nil), val...))
	}

	data, m := protowire.ConsumeBytes(payload)
	if m < 0 {
		return nil, false
	}
	doc.SetData(append([]byte(nil), data...))

	return doc, true
}

// EncodeIndexRequest wraps the raw object AddDocument/ReplaceDocumentTerm
// carry: the schema engine, not the client, assembles the
// backend.Document (spec.md §4.F), so the wire payload for both
// messages is just the MsgPack-encoded object to index.
func EncodeIndexRequest(object doc.Value) []byte { return doc.Marshal(object) }

// DecodeIndexRequest parses an EncodeIndexRequest payload.
func DecodeIndexRequest(payload []byte) (doc.Value, bool) {
	v, _, err := doc.Unmarshal(payload)
	if err != nil {
		return doc.Value{}, false
	}
	return v, true
}

// EncodeDocID/DecodeDocID wrap a document id for
// ReplyAddDocument frames.
func EncodeDocID(docID string) []byte { return protowire.AppendString(nil, docID) }

func DecodeDocID(payload []byte) (docID string, ok bool) {
	docID, m := protowire.ConsumeString(payload)
	return docID, m >= 0
}

// EncodeStats/DecodeStats wrap backend.Stats for ReplyStats frames.
func EncodeStats(s backend.Stats) []byte {
	return protowire.AppendVarint(nil, uint64(s.Matches))
}

func DecodeStats(payload []byte) (backend.Stats, bool) {
	matches, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return backend.Stats{}, false
	}
	return backend.Stats{Matches: int(matches)}, true
}

// EncodeGetMSetRequest wraps a GetMSet request's (query, offset,
// limit).
func EncodeGetMSetRequest(query string, offset, limit int) []byte {
	buf := protowire.AppendString(nil, query)
	buf = protowire.AppendVarint(buf, uint64(offset))
	buf = protowire.AppendVarint(buf, uint64(limit))
	return buf
}

func DecodeGetMSetRequest(payload []byte) (query string, offset, limit int, ok bool) {
	query, m := protowire.ConsumeString(payload)
	if m < 0 {
		return "", 0, 0, false
	}
	payload = payload[m:]
	off, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return "", 0, 0, false
	}
	payload = payload[m:]
	lim, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return "", 0, 0, false
	}
	return query, int(off), int(lim), true
}

// EncodeMSet/DecodeMSet wrap a backend.MSet for ReplyResults frames.
func EncodeMSet(ms backend.MSet) []byte {
	buf := protowire.AppendVarint(nil, uint64(ms.Matches))
	buf = protowire.AppendVarint(buf, uint64(ms.FirstOfSet))
	buf = protowire.AppendVarint(buf, uint64(len(ms.Hits)))
	for _, h := range ms.Hits {
		buf = protowire.AppendString(buf, h.DocID)
		buf = protowire.AppendVarint(buf, uint64(h.Rank))
	}
	return buf
}

func DecodeMSet(payload []byte) (backend.MSet, bool) {
	matches, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return backend.MSet{}, false
	}
	payload = payload[m:]
	firstOfSet, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return backend.MSet{}, false
	}
	payload = payload[m:]
	n, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return backend.MSet{}, false
	}
	payload = payload[m:]
	hits := make([]backend.Hit, 0, n)
	for i := uint64(0); i < n; i++ {
		docID, m := protowire.ConsumeString(payload)
		if m < 0 {
			return backend.MSet{}, false
		}
		payload = payload[m:]
		rank, m := protowire.ConsumeVarint(payload)
		if m < 0 {
			return backend.MSet{}, false
		}
		payload = payload[m:]
		hits = append(hits, backend.Hit{DocID: docID, Rank: int(rank)})
	}
	return backend.MSet{Hits: hits, Matches: int(matches), FirstOfSet: int(firstOfSet)}, true
}

// EncodeKeyValue/DecodeKeyValue wrap a (key, value) pair for
// GetMetadata/SetMetadata request/reply payloads.
func EncodeKeyValue(key string, value []byte) []byte {
	buf := protowire.AppendString(nil, key)
	return protowire.AppendBytes(buf, value)
}

func DecodeKeyValue(payload []byte) (key string, value []byte, ok bool) {
	key, m := protowire.ConsumeString(payload)
	if m < 0 {
		return "", nil, false
	}
	payload = payload[m:]
	value, m = protowire.ConsumeBytes(payload)
	return key, value, m >= 0
}

// EncodeUpdate/DecodeUpdate wrap the handle state a ReadAccess/
// WriteAccess/Reopen reply reports: the original's MSG_UPDATE carried
// doc-count/avlength stats; this port's Database handle only tracks
// revision and mastery level (spec.md §3 "Database handle"), so those
// are what Update reports back to the caller.
func EncodeUpdate(revision, masteryLevel uint64) []byte {
	buf := protowire.AppendVarint(nil, revision)
	return protowire.AppendVarint(buf, masteryLevel)
}

func DecodeUpdate(payload []byte) (revision, masteryLevel uint64, ok bool) {
	revision, m := protowire.ConsumeVarint(payload)
	if m < 0 {
		return 0, 0, false
	}
	payload = payload[m:]
	masteryLevel, m = protowire.ConsumeVarint(payload)
	return revision, masteryLevel, m >= 0
}
