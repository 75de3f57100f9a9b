package main

import (
	"context"
	"fmt"

	"github.com/ash2k/stager/wait"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/ec2discovery"
	"github.com/atlassian/ec2discovery/internal/cluster/nodes"
	"github.com/atlassian/ec2discovery/pkg/util"
)

// watch keeps the consistent hash ring in sync with EC2 until ctx is done.
func watch(ctx context.Context, logger logrus.FieldLogger, v *viper.Viper, d ec2discovery.PeerDiscoverer) error {
	interval := v.GetDuration(ec2discovery.ParamInterval)
	if interval <= 0 {
		return fmt.Errorf("%s must be positive", ec2discovery.ParamInterval)
	}

	backoffFactory, err := util.GetRetryFromViper(v)
	if err != nil {
		return err
	}

	picker := nodes.NewConsistentNodePicker(v.GetString(ec2discovery.ParamSelf), v.GetInt(ec2discovery.ParamNumReplicas))
	tracker := nodes.NewDiscoveryNodeTracker(
		logger.WithField("component", "tracker"),
		picker,
		d,
		interval,
		backoffFactory,
	)

	var g wait.Group
	defer g.Wait()

	g.StartWithContext(ctx, tracker.Run)

	if addr := v.GetString(ec2discovery.ParamHTTPAddr); addr != "" {
		server := newHTTPServer(logger.WithField("component", "http"), addr, picker)
		g.StartWithContext(ctx, server.Run)
	}

	logger.Info("Watching for peers")
	<-ctx.Done()
	return nil
}
