// Package discovery finds the sibling broker nodes of this instance in EC2, either through membership of
// the same autoscaling group or through a set of instance tags.
package discovery

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/ec2discovery"
	"github.com/atlassian/ec2discovery/pkg/cloudapi"
	"github.com/atlassian/ec2discovery/pkg/config"
	"github.com/atlassian/ec2discovery/pkg/metadata"
)

// ClientFactory creates the AWS API client used for one discovery run.
type ClientFactory func(cfg cloudapi.Config) (cloudapi.Client, error)

// Discoverer performs EC2 peer discovery.  Each call to Discover resolves configuration afresh and builds
// its own API client, so no state is carried between runs.
type Discoverer struct {
	logger    logrus.FieldLogger
	viper     *viper.Viper
	metadata  metadata.Client
	newClient ClientFactory
	base      cloudapi.Config
	namer     ec2discovery.NodeNamer
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithClientFactory replaces cloudapi.NewClient.
func WithClientFactory(f ClientFactory) Option {
	return func(d *Discoverer) {
		d.newClient = f
	}
}

// WithClientConfig sets the transport level settings (timeout, limiter, endpoint) of every client.
// Region and credentials always come from the resolved options.
func WithClientConfig(cfg cloudapi.Config) Option {
	return func(d *Discoverer) {
		d.base = cfg
	}
}

// WithNodeNamer replaces the prefix@host node namer built from the node_name_prefix option.
func WithNodeNamer(namer ec2discovery.NodeNamer) Option {
	return func(d *Discoverer) {
		d.namer = namer
	}
}

// NewDiscoverer returns a Discoverer reading explicit option values from v, which may be nil.
func NewDiscoverer(logger logrus.FieldLogger, v *viper.Viper, md metadata.Client, opts ...Option) *Discoverer {
	d := &Discoverer{
		logger:    logger,
		viper:     v,
		metadata:  md,
		newClient: cloudapi.NewClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the current peers.  Soft failures (no tags configured, local instance id unavailable,
// local instance not in a group, tag based lookup failure) are logged and produce an empty result.  An
// error is returned only when listing autoscaling instances or resolving autoscaling group hostnames fails.
func (d *Discoverer) Discover(ctx context.Context) (ec2discovery.PeerResult, error) {
	opts := config.Resolve(d.viper)

	client, err := d.client(opts)
	if err != nil {
		return ec2discovery.PeerResult{}, fmt.Errorf("error creating AWS API client: %v", err)
	}

	if opts.Autoscaling {
		return d.discoverAutoscaling(ctx, client, opts)
	}
	return d.discoverTagged(ctx, client, opts)
}

func (d *Discoverer) client(opts config.Options) (cloudapi.Client, error) {
	cfg := d.base
	cfg.Region = opts.Region
	cfg.AccessKey = opts.AccessKey
	cfg.SecretKey = opts.SecretKey
	if cfg.Logger == nil {
		cfg.Logger = d.logger
	}
	return d.newClient(cfg)
}

func (d *Discoverer) discoverAutoscaling(ctx context.Context, client cloudapi.Client, opts config.Options) (ec2discovery.PeerResult, error) {
	instanceID, err := d.metadata.InstanceID(ctx)
	if err != nil {
		d.logger.WithError(err).Warn("Could not determine local instance id, no peers discovered")
		return ec2discovery.EmptyPeerResult(), nil
	}
	logger := d.logger.WithField("instance", instanceID)

	instances, err := ListAutoscalingInstances(ctx, client)
	if err != nil {
		return ec2discovery.PeerResult{}, err
	}

	group, err := FindOwningGroup(instances, instanceID)
	if err != nil {
		logger.Warn("Local instance is not part of an autoscaling group, no peers discovered")
		return ec2discovery.EmptyPeerResult(), nil
	}
	members := GroupMembers(instances, group)
	logger.WithFields(logrus.Fields{
		"group":   group,
		"members": len(members),
	}).Debug("Found autoscaling group")

	filters := cloudapi.Merge(cloudapi.InstanceIDParams(members), cloudapi.TagParams(opts.Tags))
	hostnames, err := ResolveHostnames(ctx, client, filters, NewHostnamePolicy(opts.UsePrivateIP))
	if err != nil {
		return ec2discovery.PeerResult{}, err
	}
	return d.peerResult(opts, hostnames), nil
}

func (d *Discoverer) discoverTagged(ctx context.Context, client cloudapi.Client, opts config.Options) (ec2discovery.PeerResult, error) {
	if len(opts.Tags) == 0 {
		d.logger.Warn("Tag based discovery requires at least one tag, no peers discovered")
		return ec2discovery.EmptyPeerResult(), nil
	}

	hostnames, err := ResolveHostnames(ctx, client, cloudapi.TagParams(opts.Tags), NewHostnamePolicy(opts.UsePrivateIP))
	if err != nil {
		d.logger.WithError(err).WithField("tags", opts.Tags).Warn("Tag based discovery failed, no peers discovered")
		return ec2discovery.EmptyPeerResult(), nil
	}
	return d.peerResult(opts, hostnames), nil
}

func (d *Discoverer) peerResult(opts config.Options, hostnames []string) ec2discovery.PeerResult {
	namer := d.namer
	if namer == nil {
		namer = ec2discovery.PrefixNodeNamer{Prefix: opts.NodeNamePrefix}
	}
	result := ec2discovery.EmptyPeerResult()
	for _, host := range hostnames {
		result.Nodes = append(result.Nodes, namer.NodeName(host))
	}
	d.logger.WithField("nodes", result.Nodes).Debug("Discovered peers")
	return result
}
