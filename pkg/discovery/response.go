package discovery

import (
	"encoding/xml"
	"fmt"
)

// AutoscalingInstance is one member of the DescribeAutoScalingInstances listing.
type AutoscalingInstance struct {
	InstanceID       string `xml:"InstanceId"`
	GroupName        string `xml:"AutoScalingGroupName"`
	AvailabilityZone string `xml:"AvailabilityZone"`
	LifecycleState   string `xml:"LifecycleState"`
	HealthStatus     string `xml:"HealthStatus"`
}

// Instance is one instance item of a DescribeInstances response.
type Instance struct {
	InstanceID       string `xml:"instanceId"`
	PrivateDNSName   string `xml:"privateDnsName"`
	PrivateIPAddress string `xml:"privateIpAddress"`
	State            string `xml:"instanceState>name"`
}

type autoscalingInstancesPage struct {
	Instances []AutoscalingInstance `xml:"DescribeAutoScalingInstancesResult>AutoScalingInstances>member"`
	NextToken string                `xml:"DescribeAutoScalingInstancesResult>NextToken"`
}

type reservation struct {
	ReservationID string     `xml:"reservationId"`
	Instances     []Instance `xml:"instancesSet>item"`
}

type describeInstancesResponse struct {
	Reservations []reservation `xml:"reservationSet>item"`
}

// parseAutoscalingInstances decodes one page of a DescribeAutoScalingInstancesResponse.
func parseAutoscalingInstances(body []byte) ([]AutoscalingInstance, string, error) {
	var page autoscalingInstancesPage
	if err := xml.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("error parsing DescribeAutoScalingInstances response: %v", err)
	}
	return page.Instances, page.NextToken, nil
}

// parseInstances decodes a DescribeInstancesResponse, flattening reservations.
func parseInstances(body []byte) ([]Instance, error) {
	var resp describeInstancesResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error parsing DescribeInstances response: %v", err)
	}
	var instances []Instance
	for _, r := range resp.Reservations {
		instances = append(instances, r.Instances...)
	}
	return instances, nil
}
