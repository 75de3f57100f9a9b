package nodes

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"

	"github.com/atlassian/ec2discovery"
	"github.com/atlassian/ec2discovery/pkg/util"
)

type discoveryNodeTracker struct {
	logger logrus.FieldLogger

	picker     NodePicker
	discoverer ec2discovery.PeerDiscoverer
	nodes      map[string]struct{}

	interval       time.Duration
	backoffFactory util.BackoffFactory
}

// NewDiscoveryNodeTracker returns a NodeTracker which runs discovery immediately and then every interval,
// and updates the provided NodePicker with the difference.  A failed run is retried according to the
// backoffFactory.  An empty result never removes nodes, as it is what discovery reports on soft failures.
func NewDiscoveryNodeTracker(
	logger logrus.FieldLogger,
	picker NodePicker,
	discoverer ec2discovery.PeerDiscoverer,
	interval time.Duration,
	backoffFactory util.BackoffFactory,
) NodeTracker {
	return &discoveryNodeTracker{
		logger:         logger,
		picker:         picker,
		discoverer:     discoverer,
		nodes:          make(map[string]struct{}),
		interval:       interval,
		backoffFactory: backoffFactory,
	}
}

// Run will track nodes until the context is closed.
func (dnt *discoveryNodeTracker) Run(ctx context.Context) {
	clck := clock.FromContext(ctx)

	dnt.refresh(ctx)

	ticker := clck.NewTicker(dnt.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dnt.refresh(ctx)
		}
	}
}

func (dnt *discoveryNodeTracker) refresh(ctx context.Context) {
	result, err := dnt.discover(ctx)
	if err != nil {
		if ctx.Err() == nil {
			dnt.logger.WithError(err).Warning("Peer discovery failed, keeping known nodes")
		}
		return
	}
	if len(result.Nodes) == 0 {
		dnt.logger.WithField("known", len(dnt.nodes)).Info("No peers discovered, keeping known nodes")
		return
	}
	dnt.reconcile(result.Nodes)
}

// discover runs discovery, retrying hard failures until the backoff policy gives up.
func (dnt *discoveryNodeTracker) discover(ctx context.Context) (ec2discovery.PeerResult, error) {
	clck := clock.FromContext(ctx)
	bo := dnt.backoffFactory()
	for {
		result, err := dnt.discoverer.Discover(ctx)
		if err == nil {
			return result, nil
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			return ec2discovery.PeerResult{}, err
		}
		dnt.logger.WithError(err).WithField("retry_in", next).Info("Peer discovery failed, retrying")

		timer := clck.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ec2discovery.PeerResult{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// reconcile adds nodes which are new and removes nodes which are gone.  Does not talk to AWS.
func (dnt *discoveryNodeTracker) reconcile(discovered []string) {
	current := make(map[string]struct{}, len(discovered))
	for _, node := range discovered {
		current[node] = struct{}{}
		if _, ok := dnt.nodes[node]; !ok {
			dnt.logger.WithField("node", node).Info("Added node")
			dnt.picker.Add(node)
			dnt.nodes[node] = struct{}{}
		}
	}

	var gone []string
	for node := range dnt.nodes {
		if _, ok := current[node]; !ok {
			gone = append(gone, node)
		}
	}
	sort.Strings(gone)
	for _, node := range gone {
		dnt.logger.WithField("node", node).Info("Removing node")
		dnt.picker.Remove(node)
		delete(dnt.nodes, node)
	}
}
