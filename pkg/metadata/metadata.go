// Package metadata reads facts about the local instance from the EC2 instance metadata service.
package metadata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
)

// DefaultTimeout bounds a metadata request.  It stays below the usual synchronous call timeout of the
// caller so that a host without a metadata service fails fast.
const DefaultTimeout = 2250 * time.Millisecond

const instanceIDPath = "instance-id"

// Client is an abstraction over the EC2 metadata service, to allow mocking/other implementations.
type Client interface {
	// InstanceID returns the id of the instance this process runs on.
	InstanceID(ctx context.Context) (string, error)
}

type ec2Client struct {
	metadata *ec2metadata.EC2Metadata
}

// apiVersion is the path prefix of the metadata API.  The SDK's default endpoint already carries it, a
// custom endpoint gets it appended.
const apiVersion = "/latest"

// NewEC2Client returns a Client backed by the aws-sdk-go metadata client.  endpoint overrides the
// well known metadata address when not empty, given as scheme and host with or without /latest.  A
// timeout of zero or less means DefaultTimeout.
func NewEC2Client(endpoint string, timeout time.Duration) (Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cfg := aws.NewConfig().
		WithHTTPClient(&http.Client{Timeout: timeout}).
		WithMaxRetries(0)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(metadataEndpoint(endpoint))
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating a new Metadata session: %v", err)
	}
	return &ec2Client{metadata: ec2metadata.New(sess)}, nil
}

func metadataEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if strings.HasSuffix(endpoint, apiVersion) {
		return endpoint
	}
	return endpoint + apiVersion
}

type metadataResult struct {
	value string
	err   error
}

// InstanceID implements Client.  The request itself is bounded by the client timeout, ctx only stops
// the caller from waiting on it.
func (c *ec2Client) InstanceID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("error getting local instance id: %v", err)
	}

	ch := make(chan metadataResult, 1)
	go func() {
		id, err := c.metadata.GetMetadata(instanceIDPath)
		ch <- metadataResult{value: id, err: err}
	}()

	var res metadataResult
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("error getting local instance id: %v", ctx.Err())
	case res = <-ch:
	}
	if res.err != nil {
		return "", fmt.Errorf("error getting local instance id: %v", res.err)
	}
	id := strings.TrimSpace(res.value)
	if id == "" {
		return "", fmt.Errorf("error getting local instance id: empty response")
	}
	return id, nil
}
