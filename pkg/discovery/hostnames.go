package discovery

import (
	"context"
	"fmt"

	"github.com/atlassian/ec2discovery/pkg/cloudapi"
)

const (
	actionDescribeInstances = "DescribeInstances"
	ec2APIVersion           = "2015-10-01"
)

// HostnamePolicy selects which address of an instance is used as its hostname.
type HostnamePolicy int

const (
	// PrivateDNSName uses the private DNS name, the default.
	PrivateDNSName HostnamePolicy = iota
	// PrivateIP uses the primary private IPv4 address.
	PrivateIP
)

// NewHostnamePolicy returns PrivateIP if usePrivateIP is set and PrivateDNSName otherwise.
func NewHostnamePolicy(usePrivateIP bool) HostnamePolicy {
	if usePrivateIP {
		return PrivateIP
	}
	return PrivateDNSName
}

// Hostname returns the address of i selected by the policy.
func (p HostnamePolicy) Hostname(i Instance) string {
	if p == PrivateIP {
		return i.PrivateIPAddress
	}
	return i.PrivateDNSName
}

// ResolveHostnames issues one DescribeInstances request with the given filters and returns the selected
// address of every instance that has one.
func ResolveHostnames(ctx context.Context, client cloudapi.Client, filters cloudapi.Params, policy HostnamePolicy) ([]string, error) {
	params := cloudapi.Merge(cloudapi.Action(actionDescribeInstances, ec2APIVersion), filters)
	body, err := client.Get(ctx, cloudapi.ServiceEC2, params)
	if err != nil {
		return nil, fmt.Errorf("error describing instances: %v", err)
	}
	instances, err := parseInstances(body)
	if err != nil {
		return nil, err
	}

	hostnames := make([]string, 0, len(instances))
	for _, i := range instances {
		if host := policy.Hostname(i); host != "" {
			hostnames = append(hostnames, host)
		}
	}
	return hostnames, nil
}
