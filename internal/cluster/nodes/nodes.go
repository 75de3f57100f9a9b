package nodes

import (
	"context"
	"errors"
)

// ErrNoNodes is returned by NodePicker.Select while no broker has been discovered.
var ErrNoNodes = errors.New("no broker nodes known")

// NodePicker holds the broker nodes currently known to be part of the cluster and maps keys, such as
// queue names, onto them.  Implementations are safe for concurrent use.
type NodePicker interface {
	// List returns the known nodes sorted by name.  The slice is a copy.
	List() []string

	// Select returns the node owning key.  self reports whether that node is the local broker.
	// Returns ErrNoNodes when no node is known.
	Select(key string) (node string, self bool, err error)

	// Add starts tracking node.  Adding a known node is a no-op.
	Add(node string)

	// Remove stops tracking node.  Removing an unknown node is a no-op.
	Remove(node string)
}

// NodeTracker keeps a NodePicker in sync with discovery.
type NodeTracker interface {
	// Run tracks nodes until ctx is done.  The caller must wait for Run to return.
	Run(ctx context.Context)
}
