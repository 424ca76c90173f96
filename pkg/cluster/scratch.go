package cluster

import (
	"context"
	"strconv"

	"github.com/dubalu/xapiand-go/pkg/dbpool"
	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/replication"
)

// changesetMetadataPrefix namespaces replicated changeset blobs inside
// a backend's opaque metadata store, the same mechanism spec.md §4.H
// uses for RESERVED_SCHEMA: SetMetadata/GetMetadata is the only
// durable side-channel IndexBackend exposes alongside the document
// API, so a changeset is carried there until Commit makes it visible.
const changesetMetadataPrefix = "replication:changeset:"

// preimageMetadataPrefix namespaces the document-change map's pre-image
// side-channel inside the same metadata store: RemoteHandler.index
// writes the indexed object here after a scripted write's CAS succeeds,
// and changeReader reads it back to seed the next cache miss for the
// same term (spec.md §4.G).
const preimageMetadataPrefix = "schema:preimage:"

// scratchSink adapts a checked-out dbpool.Handle to
// replication.ScratchSink: ApplyChangeset stages each changeset's
// opaque payload as metadata, Commit calls through to the backend's
// own Commit (advancing Revision atomically), and Abort calls Cancel
// (spec.md §4.H "on mid-stream failure it rolls back to the last
// committed revision").
type scratchSink struct {
	pool    *dbpool.Pool
	handle  *dbpool.Handle
	applied []uint64
}

// OpenScratch returns a func(endpoint.Endpoint) (replication.ScratchSink, error)
// suitable for replication.Driver.OpenScratch, checking out a
// writable, spawn-if-missing handle from pool for dst.
func OpenScratch(pool *dbpool.Pool) func(endpoint.Endpoint) (replication.ScratchSink, error) {
	return func(dst endpoint.Endpoint) (replication.ScratchSink, error) {
		eps := endpoint.NewEndpoints(dst)
		h, err := pool.Checkout(context.Background(), eps, dbpool.Writable|dbpool.Spawn)
		if err != nil {
			return nil, err
		}
		return &scratchSink{pool: pool, handle: h}, nil
	}
}

func (s *scratchSink) Revision() uint64 {
	return s.handle.Backend.Revision()
}

func (s *scratchSink) ApplyChangeset(revision uint64, data []byte) error {
	if err := s.handle.Backend.SetMetadata(changesetMetadataPrefix+strconv.FormatUint(revision, 10), data); err != nil {
		return err
	}
	s.applied = append(s.applied, revision)
	return nil
}

func (s *scratchSink) Commit() error {
	defer s.pool.Checkin(s.handle)
	return s.handle.Backend.Commit()
}

func (s *scratchSink) Abort() error {
	defer s.pool.Checkin(s.handle)
	return s.handle.Backend.Cancel()
}
