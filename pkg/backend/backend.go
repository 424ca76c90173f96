package backend

// Term is one posting the schema engine emits while indexing a field:
// a prefixed, serialized term string, its within-document frequency,
// and whether it is a boolean (unweighted) term.
type Term struct {
	Prefix  string
	Term    string
	Wdf     int
	Boolean bool
}

// Document accumulates the terms, value slots and opaque data blob
// the schema engine builds while walking an input object (spec.md
// §4.F), before being handed to AddDocument/ReplaceDocumentTerm.
type Document struct {
	Terms  []Term
	Values map[uint32][]byte
	Data   []byte
}

// NewDocument returns an empty Document ready for accumulation.
func NewDocument() *Document {
	return &Document{Values: make(map[uint32][]byte)}
}

// AddTerm records a weighted (non-boolean) posting.
func (d *Document) AddTerm(prefix, term string, wdf int) {
	d.Terms = append(d.Terms, Term{Prefix: prefix, Term: term, Wdf: wdf})
}

// AddBooleanTerm records an unweighted posting, used for category and
// namespace partial-path terms.
func (d *Document) AddBooleanTerm(prefix, term string) {
	d.Terms = append(d.Terms, Term{Prefix: prefix, Term: term, Boolean: true})
}

// AddValue sets (overwriting) the blob stored at a value slot. The
// schema engine calls this once per slot with the length-prefixed
// StringList produced by accumulating that slot's values (spec.md
// §4.F step 5).
func (d *Document) AddValue(slot uint32, blob []byte) {
	d.Values[slot] = blob
}

// SetData sets the document's opaque data blob (the fields the schema
// marks non-indexed, stored verbatim).
func (d *Document) SetData(blob []byte) {
	d.Data = blob
}

// Stats is the result of a non-retrieving query execution (term/
// document counts), used by the Query operation of the message table
// in spec.md §4.H.
type Stats struct {
	Matches int
}

// Hit is one ranked result of a GetMSet call.
type Hit struct {
	DocID string
	Rank  int
}

// MSet is a ranked result set from a query execution (spec.md
// GLOSSARY).
type MSet struct {
	Hits       []Hit
	Matches    int
	FirstOfSet int
}

// IndexBackend is the black-box inverted-index contract the core
// assumes (spec.md §1): term posting lists, value slots, MSet
// retrieval, document add/replace/delete, commit, and uuid/revision
// metadata. A Database handle (pkg/dbpool) is checked out against one
// IndexBackend per endpoint path.
type IndexBackend interface {
	// AddDocument inserts doc as a new document, returning its
	// generated id.
	AddDocument(doc *Document) (docID string, err error)
	// ReplaceDocumentTerm atomically replaces the document uniquely
	// identified by term (typically the Q<uuid> term), inserting it
	// if absent.
	ReplaceDocumentTerm(term string, doc *Document) (docID string, err error)
	// DeleteDocumentTerm deletes the document identified by term.
	DeleteDocumentTerm(term string) error
	// TermExists reports whether any document carries term.
	TermExists(term string) (bool, error)
	// AllTerms lists every term carrying the given prefix (spec.md
	// §4.H's AllTerms message).
	AllTerms(prefix string) ([]string, error)
	// Query executes query without fetching results, returning match
	// statistics only.
	Query(query string) (Stats, error)
	// GetMSet executes query and returns a ranked window of results.
	GetMSet(query string, offset, limit int) (MSet, error)
	// Commit makes all pending writes visible and advances Revision.
	Commit() error
	// Cancel discards all pending writes since the last Commit
	// (spec.md §4.H "Cancellation").
	Cancel() error
	// GetMetadata reads an opaque metadata blob (e.g. RESERVED_SCHEMA).
	GetMetadata(key string) ([]byte, error)
	// SetMetadata writes an opaque metadata blob.
	SetMetadata(key string, value []byte) error
	// Revision returns the last committed revision, used by
	// replication to negotiate a resync range.
	Revision() uint64
	// MasteryLevel returns the monotonic generation read from the
	// on-disk mastery marker (spec.md §3 "Database handle").
	MasteryLevel() uint64
	// Close releases all resources held by the backend.
	Close() error
}
