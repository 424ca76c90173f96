package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/xerror"
	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketDocs     = []byte("docs")
	bucketIDTerms  = []byte("idterms")
	bucketPostings = []byte("postings")
	bucketMeta     = []byte("metadata")
)

// RESERVED_SCHEMA is the metadata key under which the persisted
// schema tree is stored (spec.md §3 "Schema tree").
const ReservedSchemaKey = "RESERVED_SCHEMA"

// BoltBackend is the reference IndexBackend implementation: one bbolt
// file per endpoint path, one bucket per concern, grounded on the
// teacher's pkg/storage.BoltStore shape (bolt.Update/View transactions,
// []byte keys, marshaled record values) re-keyed to document/postings
// concerns instead of node/service/task records.
type BoltBackend struct {
	mu       sync.Mutex
	db       *bolt.DB
	dir      string
	mastery  uint64
	revision uint64
	pending  []func(tx *bolt.Tx) error
}

// OpenBoltBackend opens (creating if absent, per spawn) the bbolt file
// at dir/index.db, along with the mastery and iamglass markers
// alongside it (spec.md §3 "persisted state").
func OpenBoltBackend(dir string, spawn bool) (*BoltBackend, error) {
	if !hasIamglass(dir) {
		if !spawn {
			return nil, xerror.New(xerror.NotFound, "no local copy at "+dir)
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, xerror.Wrap(xerror.BackendError, "creating endpoint directory", err)
		}
	}

	dbPath := filepath.Join(dir, "index.db")
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, xerror.Wrap(xerror.BackendError, "opening backend database", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketIDTerms, bucketPostings, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, xerror.Wrap(xerror.BackendError, "creating backend buckets", err)
	}

	mastery, err := readOrCreateMastery(dir)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := markIamglass(dir); err != nil {
		db.Close()
		return nil, err
	}

	b := &BoltBackend{db: db, dir: dir, mastery: mastery}
	b.revision = b.readRevision()
	return b, nil
}

func (b *BoltBackend) readRevision() uint64 {
	var rev uint64
	_ = b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte("\x00revision"))
		if len(data) > 0 {
			v, _, err := msgp.ReadUint64Bytes(data)
			if err == nil {
				rev = v
			}
		}
		return nil
	})
	return rev
}

func marshalDocument(d *Document) []byte {
	b := msgp.AppendArrayHeader(nil, uint32(len(d.Terms)))
	for _, t := range d.Terms {
		b = msgp.AppendString(b, t.Prefix)
		b = msgp.AppendString(b, t.Term)
		b = msgp.AppendInt(b, t.Wdf)
		b = msgp.AppendBool(b, t.Boolean)
	}
	b = msgp.AppendMapHeader(b, uint32(len(d.Values)))
	for slot, blob := range d.Values {
		b = msgp.AppendUint32(b, slot)
		b = msgp.AppendBytes(b, blob)
	}
	b = msgp.AppendBytes(b, d.Data)
	return b
}

func unmarshalDocument(raw []byte) (*Document, error) {
	doc := NewDocument()
	termCount, b, err := msgp.ReadArrayHeaderBytes(raw)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < termCount; i++ {
		var prefix, term string
		var wdf int
		var boolean bool
		prefix, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, err
		}
		term, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, err
		}
		wdf, b, err = msgp.ReadIntBytes(b)
		if err != nil {
			return nil, err
		}
		boolean, b, err = msgp.ReadBoolBytes(b)
		if err != nil {
			return nil, err
		}
		doc.Terms = append(doc.Terms, Term{Prefix: prefix, Term: term, Wdf: wdf, Boolean: boolean})
	}
	valCount, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < valCount; i++ {
		var slot uint32
		var blob []byte
		slot, b, err = msgp.ReadUint32Bytes(b)
		if err != nil {
			return nil, err
		}
		blob, b, err = msgp.ReadBytesBytes(b, nil)
		if err != nil {
			return nil, err
		}
		doc.Values[slot] = blob
	}
	data, _, err := msgp.ReadBytesBytes(b, nil)
	if err != nil {
		return nil, err
	}
	doc.Data = data
	return doc, nil
}

func appendStringList(list []string) []byte {
	b := msgp.AppendArrayHeader(nil, uint32(len(list)))
	for _, s := range list {
		b = msgp.AppendString(b, s)
	}
	return b
}

func readStringList(raw []byte) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	n, b, err := msgp.ReadArrayHeaderBytes(raw)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		var s string
		s, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// AddDocument implements IndexBackend.
func (b *BoltBackend) AddDocument(doc *Document) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	docID := uuid.New().String()
	b.pending = append(b.pending, func(tx *bolt.Tx) error {
		return b.putDocument(tx, docID, doc)
	})
	return docID, nil
}

// ReplaceDocumentTerm implements IndexBackend.
func (b *BoltBackend) ReplaceDocumentTerm(term string, doc *Document) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var docID string
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketIDTerms).Get([]byte(term)); v != nil {
			docID = string(v)
		}
		return nil
	})
	if err != nil {
		return "", xerror.Wrap(xerror.BackendError, "reading id-term index", err)
	}
	if docID == "" {
		docID = uuid.New().String()
	} else {
		b.pending = append(b.pending, func(tx *bolt.Tx) error {
			return b.removePostings(tx, docID)
		})
	}

	b.pending = append(b.pending, func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketIDTerms).Put([]byte(term), []byte(docID)); err != nil {
			return err
		}
		return b.putDocument(tx, docID, doc)
	})
	return docID, nil
}

func (b *BoltBackend) putDocument(tx *bolt.Tx, docID string, doc *Document) error {
	if err := tx.Bucket(bucketDocs).Put([]byte(docID), marshalDocument(doc)); err != nil {
		return err
	}
	postings := tx.Bucket(bucketPostings)
	for _, t := range doc.Terms {
		key := []byte(t.Prefix + t.Term)
		list, err := readStringList(postings.Get(key))
		if err != nil {
			return err
		}
		list = append(list, docID)
		if err := postings.Put(key, appendStringList(list)); err != nil {
			return err
		}
	}
	return nil
}

func (b *BoltBackend) removePostings(tx *bolt.Tx, docID string) error {
	raw := tx.Bucket(bucketDocs).Get([]byte(docID))
	if raw == nil {
		return nil
	}
	doc, err := unmarshalDocument(raw)
	if err != nil {
		return err
	}
	postings := tx.Bucket(bucketPostings)
	for _, t := range doc.Terms {
		key := []byte(t.Prefix + t.Term)
		list, err := readStringList(postings.Get(key))
		if err != nil {
			return err
		}
		filtered := list[:0]
		for _, id := range list {
			if id != docID {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) == 0 {
			if err := postings.Delete(key); err != nil {
				return err
			}
		} else if err := postings.Put(key, appendStringList(filtered)); err != nil {
			return err
		}
	}
	return tx.Bucket(bucketDocs).Delete([]byte(docID))
}

// DeleteDocumentTerm implements IndexBackend.
func (b *BoltBackend) DeleteDocumentTerm(term string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var docID string
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketIDTerms).Get([]byte(term)); v != nil {
			docID = string(v)
		}
		return nil
	})
	if err != nil {
		return xerror.Wrap(xerror.BackendError, "reading id-term index", err)
	}
	if docID == "" {
		return xerror.New(xerror.NotFound, "no document for term "+term)
	}
	b.pending = append(b.pending, func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketIDTerms).Delete([]byte(term)); err != nil {
			return err
		}
		return b.removePostings(tx, docID)
	})
	return nil
}

// TermExists implements IndexBackend.
func (b *BoltBackend) TermExists(term string) (bool, error) {
	var exists bool
	err := b.db.View(func(tx *bolt.Tx) error {
		list, err := readStringList(tx.Bucket(bucketPostings).Get([]byte(term)))
		if err != nil {
			return err
		}
		exists = len(list) > 0
		return nil
	})
	if err != nil {
		return false, xerror.Wrap(xerror.BackendError, "reading postings", err)
	}
	return exists, nil
}

// AllTerms implements IndexBackend.
func (b *BoltBackend) AllTerms(prefix string) ([]string, error) {
	var terms []string
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketPostings).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && hasBytesPrefix(k, p); k, _ = c.Next() {
			terms = append(terms, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, xerror.Wrap(xerror.BackendError, "scanning postings", err)
	}
	return terms, nil
}

func hasBytesPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Query implements IndexBackend: it reports the number of documents
// carrying query as an exact term, a minimal stand-in for a real
// query-language execution, which is outside this port's scope
// (spec.md §1 treats the query planner/executor as part of the
// black-box IndexBackend).
func (b *BoltBackend) Query(query string) (Stats, error) {
	var list []string
	err := b.db.View(func(tx *bolt.Tx) error {
		l, err := readStringList(tx.Bucket(bucketPostings).Get([]byte(query)))
		list = l
		return err
	})
	if err != nil {
		return Stats{}, xerror.Wrap(xerror.BackendError, "executing query", err)
	}
	return Stats{Matches: len(list)}, nil
}

// GetMSet implements IndexBackend over the same single-term match set
// Query uses, windowed by offset/limit.
func (b *BoltBackend) GetMSet(query string, offset, limit int) (MSet, error) {
	var list []string
	err := b.db.View(func(tx *bolt.Tx) error {
		l, err := readStringList(tx.Bucket(bucketPostings).Get([]byte(query)))
		list = l
		return err
	})
	if err != nil {
		return MSet{}, xerror.Wrap(xerror.BackendError, "executing query", err)
	}

	mset := MSet{Matches: len(list), FirstOfSet: offset}
	for i := offset; i < len(list) && i < offset+limit; i++ {
		mset.Hits = append(mset.Hits, Hit{DocID: list[i], Rank: i})
	}
	return mset, nil
}

// Commit implements IndexBackend.
func (b *BoltBackend) Commit() error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, op := range pending {
			if err := op(tx); err != nil {
				return err
			}
		}
		next := atomic.AddUint64(&b.revision, 1)
		var buf []byte
		buf = msgp.AppendUint64(buf, next)
		return tx.Bucket(bucketMeta).Put([]byte("\x00revision"), buf)
	})
	if err != nil {
		return xerror.Wrap(xerror.BackendError, "committing", err)
	}
	log.Logger.Debug().Str("dir", b.dir).Uint64("revision", b.Revision()).Msg("backend commit")
	return nil
}

// Cancel implements IndexBackend: it discards the pending operation
// queue without touching the database (spec.md §4.H "Cancellation").
func (b *BoltBackend) Cancel() error {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
	return nil
}

// GetMetadata implements IndexBackend.
func (b *BoltBackend) GetMetadata(key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get([]byte(key))
		if v == nil {
			return xerror.New(xerror.NotFound, fmt.Sprintf("metadata key %q not found", key))
		}
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// SetMetadata implements IndexBackend.
func (b *BoltBackend) SetMetadata(key string, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(key), value)
	})
	if err != nil {
		return xerror.Wrap(xerror.BackendError, "writing metadata", err)
	}
	return nil
}

// Revision implements IndexBackend.
func (b *BoltBackend) Revision() uint64 {
	return atomic.LoadUint64(&b.revision)
}

// MasteryLevel implements IndexBackend.
func (b *BoltBackend) MasteryLevel() uint64 {
	return b.mastery
}

// Close implements IndexBackend.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}
