// Package replication implements the catch-up driver that pulls a
// database endpoint up to date from a peer over the remote binary
// protocol (spec.md §4.J), on top of pkg/remote's Client/Server (H).
package replication

import (
	"fmt"

	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/remote"
	"github.com/dubalu/xapiand-go/pkg/xerror"
	"github.com/rs/zerolog"
)

// NodeRef is the minimal node identity the driver needs to resolve
// which cluster members own a path, kept separate from pkg/raft.Node
// so this package has no compile-time dependency on the consensus
// core (the same decoupling as pkg/remote's Handler).
type NodeRef struct {
	Name string
	Addr string // host:binary_port, dialable via remote.Dial
}

// MembershipResolver answers which nodes currently own a given
// endpoint path, per spec.md §4.J step 3 ("resolve the set of nodes
// that own src.path per the cluster membership table"). pkg/cluster
// supplies the concrete implementation, backed by pkg/raft's applied
// log.
type MembershipResolver interface {
	NodesForPath(path string) ([]NodeRef, error)
}

// MarkerChecker reports whether dst already holds an up-to-date copy
// (spec.md §4.J step 2: "marker file present at target path").
type MarkerChecker interface {
	UpToDate(path string) (bool, error)
}

// ScratchSink receives a changeset stream into scratch storage and
// either commits it (atomic swap into dst) or aborts it (rollback to
// the last committed revision), per spec.md §4.H "on mid-stream
// failure it rolls back to the last committed revision".
type ScratchSink interface {
	// Revision is the last revision already applied locally; it seeds
	// the GetChangesets(start_rev, ...) request.
	Revision() uint64
	// ApplyChangeset applies one changeset atomically. A failure here
	// must leave the sink's on-disk state at the last Commit.
	ApplyChangeset(revision uint64, data []byte) error
	// Commit finalizes the stream, swapping scratch storage into dst.
	Commit() error
	// Abort discards every change since the last Commit.
	Abort() error
}

// Args names a replication request (spec.md §4.J "trigger_replication
// (src, dst)").
type Args struct {
	Src endpoint.Endpoint
	Dst endpoint.Endpoint
}

// Driver implements spec.md §4.J's trigger_replication steps. All
// four collaborators are interfaces so the driver itself stays free
// of pkg/backend/pkg/dbpool/pkg/raft/pkg/cluster imports; cmd/xapiand
// wires the concrete implementations together.
type Driver struct {
	// LocalAddr is this node's own host:binary_port, used to detect a
	// self-replication request (step 1).
	LocalAddr string
	// Self is this node's name, matched against MembershipResolver's
	// results (step 3).
	Self string

	Dial        func(addr string) (*remote.Client, error)
	Members     MembershipResolver
	Markers     MarkerChecker
	OpenScratch func(dst endpoint.Endpoint) (ScratchSink, error)
}

// NewDriver returns a Driver with Dial defaulting to remote.Dial.
func NewDriver(localAddr, self string, members MembershipResolver, markers MarkerChecker, openScratch func(endpoint.Endpoint) (ScratchSink, error)) *Driver {
	return &Driver{
		LocalAddr:   localAddr,
		Self:        self,
		Dial:        remote.Dial,
		Members:     members,
		Markers:     markers,
		OpenScratch: openScratch,
	}
}

// Trigger runs spec.md §4.J's trigger_replication steps for args.
func (d *Driver) Trigger(args Args) error {
	logger := log.WithComponent("replication")

	srcAddr := fmt.Sprintf("%s:%d", args.Src.Host, args.Src.Port)
	if srcAddr == d.LocalAddr {
		logger.Debug().Str("path", args.Src.Path).Msg("replication: source is local, no-op")
		return nil
	}

	upToDate, err := d.Markers.UpToDate(args.Dst.Path)
	if err != nil {
		return xerror.Wrap(xerror.ReplicationFailed, "checking destination marker", err)
	}
	if upToDate {
		logger.Debug().Str("path", args.Dst.Path).Msg("replication: destination already up to date, no-op")
		return nil
	}

	nodes, err := d.Members.NodesForPath(args.Src.Path)
	if err != nil {
		return xerror.Wrap(xerror.ReplicationFailed, "resolving nodes for path", err)
	}
	owned := false
	for _, n := range nodes {
		if n.Name == d.Self {
			owned = true
			break
		}
	}
	if !owned {
		return xerror.New(xerror.ClientError, "local node does not own "+args.Src.Path)
	}

	return d.pull(logger.With().Str("path", args.Src.Path).Str("src", srcAddr).Logger(), args, srcAddr)
}

// pull implements spec.md §4.J step 4: dial src, stream changesets
// into scratch storage, and commit or abort atomically.
func (d *Driver) pull(logger zerolog.Logger, args Args, srcAddr string) error {
	sink, err := d.OpenScratch(args.Dst)
	if err != nil {
		return xerror.Wrap(xerror.ReplicationFailed, "opening scratch storage", err)
	}

	cli, err := d.Dial(srcAddr)
	if err != nil {
		return xerror.Wrap(xerror.ReplicationFailed, "dialing replication source", err)
	}
	defer cli.Close()

	startRev := sink.Revision()
	logger.Info().Uint64("start_rev", startRev).Msg("replication: starting catch-up")

	applied := 0
	streamErr := cli.Stream(remote.MsgGetChangesets, remote.EncodeGetChangesets(startRev, 0), func(frame remote.Frame) error {
		revision, data, ok := remote.DecodeChangeset(frame.Payload)
		if !ok {
			return xerror.New(xerror.ClientError, "malformed changeset frame")
		}
		if err := sink.ApplyChangeset(revision, data); err != nil {
			return err
		}
		applied++
		return nil
	})
	if streamErr != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			logger.Warn().Err(abortErr).Msg("replication: rollback after failed catch-up also failed")
		}
		logger.Warn().Err(streamErr).Int("applied", applied).Msg("replication: catch-up failed, rolled back")
		return xerror.Wrap(xerror.ReplicationFailed, "streaming changesets", streamErr)
	}

	if err := sink.Commit(); err != nil {
		return xerror.Wrap(xerror.ReplicationFailed, "committing replicated changesets", err)
	}
	logger.Info().Int("applied", applied).Msg("replication: catch-up complete")
	return nil
}
