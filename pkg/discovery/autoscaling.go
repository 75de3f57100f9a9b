package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlassian/ec2discovery/pkg/cloudapi"
)

const (
	actionDescribeAutoScalingInstances = "DescribeAutoScalingInstances"
	autoscalingAPIVersion              = "2011-01-01"
)

// ErrGroupNotFound is returned when the local instance is not part of any autoscaling group.
var ErrGroupNotFound = errors.New("autoscaling group not found")

// ListAutoscalingInstances returns every autoscaling instance visible to the client, following NextToken
// until the listing is exhausted.  A failure on any page discards everything collected so far.
func ListAutoscalingInstances(ctx context.Context, client cloudapi.Client) ([]AutoscalingInstance, error) {
	var results []AutoscalingInstance
	nextToken := ""
	for {
		params := cloudapi.Action(actionDescribeAutoScalingInstances, autoscalingAPIVersion)
		if nextToken != "" {
			params = append(params, cloudapi.Param{Name: "NextToken", Value: nextToken})
		}

		body, err := client.Get(ctx, cloudapi.ServiceAutoscaling, params)
		if err != nil {
			return nil, fmt.Errorf("error listing autoscaling instances: %v", err)
		}
		instances, token, err := parseAutoscalingInstances(body)
		if err != nil {
			return nil, err
		}
		results = append(results, instances...)

		if token == "" {
			return results, nil
		}
		nextToken = token
	}
}

// FindOwningGroup returns the autoscaling group of the first instance whose id is instanceID.
func FindOwningGroup(instances []AutoscalingInstance, instanceID string) (string, error) {
	for _, i := range instances {
		if i.InstanceID == instanceID {
			return i.GroupName, nil
		}
	}
	return "", ErrGroupNotFound
}

// GroupMembers returns the ids of all instances in the named group.
func GroupMembers(instances []AutoscalingInstance, group string) []string {
	ids := make([]string, 0, len(instances))
	for _, i := range instances {
		if i.GroupName == group {
			ids = append(ids, i.InstanceID)
		}
	}
	return ids
}
