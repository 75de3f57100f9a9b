// Package cloudapi issues signed AWS query API requests.
package cloudapi

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/endpoints"
	"github.com/aws/aws-sdk-go/aws/session"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/atlassian/ec2discovery/pkg/config"
)

const (
	// ServiceEC2 is the endpoint id of the EC2 API.
	ServiceEC2 = endpoints.Ec2ServiceID
	// ServiceAutoscaling is the endpoint id of the Auto Scaling API.
	ServiceAutoscaling = endpoints.AutoscalingServiceID

	// DefaultRegion is used when no region is configured.
	DefaultRegion = endpoints.UsEast1RegionID

	defaultClientTimeout = 9 * time.Second
	maxErrorBodySize     = 64 * 1024
)

// Client issues a single GET against an AWS query API.
type Client interface {
	// Get sends params to the named service and returns the raw response body.  Any non-2xx response is
	// returned as an awserr.RequestFailure.
	Get(ctx context.Context, service string, params Params) ([]byte, error)
}

// Config is the per-invocation client context.  Values that are empty or config.Unset are ignored.
type Config struct {
	Region    string
	AccessKey string
	SecretKey string

	// Endpoint overrides the resolved endpoint URL for every service, used for testing.
	Endpoint string
	// HTTPClient defaults to a client with a timeout of Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	// Limiter optionally bounds the rate of requests.
	Limiter *rate.Limiter
	Logger  logrus.FieldLogger
}

type sdkClient struct {
	logger     logrus.FieldLogger
	region     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	creds      *credentials.Credentials
	signer     *v4.Signer
}

// NewClient returns a Client backed by aws-sdk-go endpoint resolution, credentials and request signing.
func NewClient(cfg Config) (Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	region := DefaultRegion
	if config.IsSet(cfg.Region) {
		region = cfg.Region
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultClientTimeout
		}
		var err error
		if httpClient, err = newHTTPClient(timeout); err != nil {
			return nil, err
		}
	}

	creds, err := newCredentials(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	return &sdkClient{
		logger:     logger,
		region:     region,
		endpoint:   cfg.Endpoint,
		httpClient: httpClient,
		limiter:    cfg.Limiter,
		creds:      creds,
		signer:     v4.NewSigner(creds),
	}, nil
}

func newHTTPClient(timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 3 * time.Second,
		TLSClientConfig: &tls.Config{
			// Can't use SSLv3 because of POODLE and BEAST
			// Can't use TLSv1.0 because of POODLE and BEAST using CBC cipher
			// Can't use TLSv1.1 because of RC4 cipher usage
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    50,
		IdleConnTimeout: 1 * time.Minute,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// newCredentials uses the configured keys when both are present, otherwise the usual chain of
// environment, instance role and shared credentials file.
func newCredentials(cfg Config, httpClient *http.Client) (*credentials.Credentials, error) {
	if config.IsSet(cfg.AccessKey) && config.IsSet(cfg.SecretKey) {
		return credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""), nil
	}
	metadataSession, err := session.NewSession(aws.NewConfig().
		WithHTTPClient(httpClient).
		WithMaxRetries(0))
	if err != nil {
		return nil, fmt.Errorf("error creating a new Metadata session: %v", err)
	}
	return credentials.NewChainCredentials(
		[]credentials.Provider{
			&credentials.EnvProvider{},
			&ec2rolecreds.EC2RoleProvider{
				Client: ec2metadata.New(metadataSession),
			},
			&credentials.SharedCredentialsProvider{},
		}), nil
}

func (c *sdkClient) resolve(service string) (url, signingName, signingRegion string, err error) {
	resolved, err := endpoints.DefaultResolver().EndpointFor(service, c.region)
	if err != nil {
		return "", "", "", fmt.Errorf("error resolving %s endpoint in %s: %v", service, c.region, err)
	}
	url = resolved.URL
	if c.endpoint != "" {
		url = c.endpoint
	}
	signingName = resolved.SigningName
	if signingName == "" {
		signingName = service
	}
	return url, signingName, resolved.SigningRegion, nil
}

// Get implements Client.
func (c *sdkClient) Get(ctx context.Context, service string, params Params) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url, signingName, signingRegion, err := c.resolve(service)
	if err != nil {
		return nil, err
	}

	query := Merge(params).Encode()
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(url, "/")+"/?"+query, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	action, _ := params.Get("Action")
	logger := c.logger.WithFields(logrus.Fields{
		"service": service,
		"action":  action,
	})

	if _, err := c.creds.Get(); err != nil {
		logger.WithError(err).Debug("No AWS credentials available, sending unsigned request")
	} else if _, err := c.signer.Sign(req, nil, signingName, signingRegion, clock.FromContext(ctx).Now()); err != nil {
		return nil, fmt.Errorf("error signing %s request: %v", action, err)
	}

	logger.Debug("Sending request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending %s request: %v", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, decodeError(resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s response: %v", action, err)
	}
	return body, nil
}

type apiError struct {
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

// apiErrorResponse covers both the EC2 (Response>Errors>Error) and the query protocol
// (ErrorResponse>Error) error shapes.
type apiErrorResponse struct {
	Errors     []apiError `xml:"Errors>Error"`
	ErrorList  []apiError `xml:"Error"`
	RequestID  string     `xml:"RequestID"`
	RequestId2 string     `xml:"RequestId"`
}

func decodeError(statusCode int, body []byte) error {
	var resp apiErrorResponse
	code := "UnknownError"
	message := http.StatusText(statusCode)
	if err := xml.Unmarshal(body, &resp); err == nil {
		errs := append(resp.Errors, resp.ErrorList...)
		if len(errs) > 0 {
			code = errs[0].Code
			message = errs[0].Message
		}
	}
	requestID := resp.RequestID
	if requestID == "" {
		requestID = resp.RequestId2
	}
	return awserr.NewRequestFailure(awserr.New(code, message, nil), statusCode, requestID)
}
