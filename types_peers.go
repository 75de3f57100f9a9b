package ec2discovery

import (
	"context"
)

// NodeType is the cluster node type a discovered peer should join as.
type NodeType string

// NodeTypeDisc is the only node type produced by EC2 discovery.
const NodeTypeDisc NodeType = "disc"

// PeerResult is the outcome of a single discovery run.
type PeerResult struct {
	Nodes    []string `json:"nodes"`
	NodeType NodeType `json:"node_type"`
}

// EmptyPeerResult returns a result with no nodes, used for soft failures.
func EmptyPeerResult() PeerResult {
	return PeerResult{
		Nodes:    []string{},
		NodeType: NodeTypeDisc,
	}
}

// PeerDiscoverer answers "what are my peers right now" for one invocation.
type PeerDiscoverer interface {
	Discover(ctx context.Context) (PeerResult, error)
}
