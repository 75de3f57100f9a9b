package ec2discovery

import (
	"time"

	"github.com/spf13/pflag"
)

const (
	// DefaultInterval is the default interval between discovery runs in watch mode.
	DefaultInterval = 30 * time.Second
	// DefaultMaxCloudRequests is the maximum number of AWS API requests per second.
	DefaultMaxCloudRequests = 10
	// DefaultBurstCloudRequests is the burst number of AWS API requests per second.
	DefaultBurstCloudRequests = DefaultMaxCloudRequests + 5
	// DefaultClientTimeout is the default timeout for AWS API requests.
	DefaultClientTimeout = 9 * time.Second
	// DefaultHTTPAddr is the default address of the peers endpoint in watch mode.
	DefaultHTTPAddr = "127.0.0.1:8181"
	// DefaultNumReplicas is the default number of replicas per node in the consistent hash ring.
	DefaultNumReplicas = 20
)

const (
	// ParamWatch keeps discovering peers at a fixed interval instead of exiting after one run.
	ParamWatch = "watch"
	// ParamInterval is the name of parameter with the interval between discovery runs.
	ParamInterval = "interval"
	// ParamHTTPAddr is the name of parameter with the address of the peers endpoint.
	ParamHTTPAddr = "http-addr"
	// ParamMaxCloudRequests is the name of parameter with maximum number of AWS API requests per second.
	ParamMaxCloudRequests = "max-cloud-requests"
	// ParamBurstCloudRequests is the name of parameter with burst number of AWS API requests per second.
	ParamBurstCloudRequests = "burst-cloud-requests"
	// ParamClientTimeout is the name of parameter with the timeout for AWS API requests.
	ParamClientTimeout = "client-timeout"
	// ParamNumReplicas is the name of parameter with the number of replicas per node in the hash ring.
	ParamNumReplicas = "num-replicas"
	// ParamSelf is the name of parameter with the node name of the local broker, used by the hash ring.
	ParamSelf = "self"
)

// AddFlags adds flags to the specified FlagSet.
func AddFlags(fs *pflag.FlagSet) {
	fs.Bool(ParamWatch, false, "Keep discovering peers at a fixed interval")
	fs.Duration(ParamInterval, DefaultInterval, "Interval between discovery runs in watch mode")
	fs.String(ParamHTTPAddr, DefaultHTTPAddr, "Address to serve discovered peers on in watch mode, empty to disable")
	fs.Int(ParamMaxCloudRequests, DefaultMaxCloudRequests, "Maximum number of AWS API requests per second")
	fs.Int(ParamBurstCloudRequests, DefaultBurstCloudRequests, "Burst number of AWS API requests per second")
	fs.Duration(ParamClientTimeout, DefaultClientTimeout, "Timeout for AWS API requests")
	fs.Int(ParamNumReplicas, DefaultNumReplicas, "Number of replicas per node in the consistent hash ring")
	fs.String(ParamSelf, "", "Node name of the local broker")
}
