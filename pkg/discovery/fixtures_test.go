package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlassian/ec2discovery/pkg/cloudapi"
)

type apiCall struct {
	service string
	params  cloudapi.Params
}

// fakeClient implements cloudapi.Client by delegating to fn and recording every call.
type fakeClient struct {
	mu    sync.Mutex
	fn    func(service string, params cloudapi.Params) ([]byte, error)
	calls []apiCall
}

func (c *fakeClient) Get(ctx context.Context, service string, params cloudapi.Params) ([]byte, error) {
	c.mu.Lock()
	c.calls = append(c.calls, apiCall{service: service, params: params})
	c.mu.Unlock()
	return c.fn(service, params)
}

func (c *fakeClient) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	actions := make([]string, 0, len(c.calls))
	for _, call := range c.calls {
		a, _ := call.params.Get("Action")
		actions = append(actions, a)
	}
	return actions
}

// awsFake routes requests by action to canned responses.  Autoscaling pages are served in order, the page
// index being the number of the NextToken ("page-N").
type awsFake struct {
	t                *testing.T
	autoscalingPages [][]byte
	autoscalingErr   map[int]error
	describe         []byte
	describeErr      error
}

func (f *awsFake) handle(service string, params cloudapi.Params) ([]byte, error) {
	action, _ := params.Get("Action")
	switch action {
	case actionDescribeAutoScalingInstances:
		require.Equal(f.t, cloudapi.ServiceAutoscaling, service)
		page := 0
		if token, ok := params.Get("NextToken"); ok {
			_, err := fmt.Sscanf(token, "page-%d", &page)
			require.NoError(f.t, err)
		}
		if err := f.autoscalingErr[page]; err != nil {
			return nil, err
		}
		require.Less(f.t, page, len(f.autoscalingPages))
		return f.autoscalingPages[page], nil
	case actionDescribeInstances:
		require.Equal(f.t, cloudapi.ServiceEC2, service)
		if f.describeErr != nil {
			return nil, f.describeErr
		}
		return f.describe, nil
	}
	f.t.Fatalf("unexpected action %q", action)
	return nil, nil
}

type asgMember struct {
	id    string
	group string
}

func autoscalingPage(nextToken string, members ...asgMember) []byte {
	var sb strings.Builder
	sb.WriteString(`<DescribeAutoScalingInstancesResponse xmlns="http://autoscaling.amazonaws.com/doc/2011-01-01/">
  <DescribeAutoScalingInstancesResult>
    <AutoScalingInstances>`)
	for _, m := range members {
		fmt.Fprintf(&sb, `
      <member>
        <HealthStatus>HEALTHY</HealthStatus>
        <AutoScalingGroupName>%s</AutoScalingGroupName>
        <InstanceId>%s</InstanceId>
        <LifecycleState>InService</LifecycleState>
        <AvailabilityZone>us-east-1a</AvailabilityZone>
      </member>`, m.group, m.id)
	}
	sb.WriteString(`
    </AutoScalingInstances>`)
	if nextToken != "" {
		fmt.Fprintf(&sb, `
    <NextToken>%s</NextToken>`, nextToken)
	}
	sb.WriteString(`
  </DescribeAutoScalingInstancesResult>
  <ResponseMetadata><RequestId>8d798a29-f083-11e1-bdfb-cb223EXAMPLE</RequestId></ResponseMetadata>
</DescribeAutoScalingInstancesResponse>`)
	return []byte(sb.String())
}

type ec2Instance struct {
	id  string
	dns string
	ip  string
}

// describeInstances renders one reservation per slice of instances.
func describeInstances(reservations ...[]ec2Instance) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<DescribeInstancesResponse xmlns="http://ec2.amazonaws.com/doc/2015-10-01/">
  <requestId>fdcdcab1-ae5c-489e-9c33-4637c5dda355</requestId>
  <reservationSet>`)
	for n, instances := range reservations {
		fmt.Fprintf(&sb, `
    <item>
      <reservationId>r-%d</reservationId>
      <ownerId>123456789012</ownerId>
      <groupSet/>
      <instancesSet>`, n)
		for _, i := range instances {
			fmt.Fprintf(&sb, `
        <item>
          <instanceId>%s</instanceId>
          <imageId>ami-bff32ccc</imageId>
          <instanceState><code>16</code><name>running</name></instanceState>
          <privateDnsName>%s</privateDnsName>
          <dnsName/>
          <privateIpAddress>%s</privateIpAddress>
          <tagSet>
            <item><key>Name</key><value>broker</value></item>
          </tagSet>
          <networkInterfaceSet>
            <item>
              <privateDnsName>eni-%s.internal</privateDnsName>
              <privateIpAddress>192.0.2.1</privateIpAddress>
            </item>
          </networkInterfaceSet>
        </item>`, i.id, i.dns, i.ip, i.id)
		}
		sb.WriteString(`
      </instancesSet>
    </item>`)
	}
	sb.WriteString(`
  </reservationSet>
</DescribeInstancesResponse>`)
	return []byte(sb.String())
}
