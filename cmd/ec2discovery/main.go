package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/atlassian/ec2discovery"
	"github.com/atlassian/ec2discovery/pkg/cloudapi"
	"github.com/atlassian/ec2discovery/pkg/discovery"
	"github.com/atlassian/ec2discovery/pkg/metadata"
	"github.com/atlassian/ec2discovery/pkg/util"
)

var (
	// BuildDate is the date when the binary was built.
	BuildDate string
	// GitCommit is the commit hash when the binary was built.
	GitCommit string
	// Version is the version of the binary.
	Version string
)

const (
	// ParamVerbose enables verbose logging.
	ParamVerbose = "verbose"
	// ParamJSON makes logger log in JSON format.
	ParamJSON = "json"
	// ParamConfigPath provides file with configuration.
	ParamConfigPath = "config-path"
	// ParamVersion makes program output its version.
	ParamVersion = "version"
	// ParamMetadataEndpoint overrides the EC2 metadata service address.
	ParamMetadataEndpoint = "metadata-endpoint"
)

func main() {
	v, version, err := setupConfiguration()
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		logrus.Fatalf("Error while parsing configuration: %v", err)
	}
	if version {
		fmt.Printf("Version: %s - Commit: %s - Date: %s\n", Version, GitCommit, BuildDate)
		return
	}
	if err := run(v); err != nil {
		logrus.Fatalf("%v", err)
	}
}

func run(v *viper.Viper) error {
	logger := logrus.StandardLogger()

	d, err := constructDiscoverer(logger, v)
	if err != nil {
		return err
	}

	ctx, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	if v.GetBool(ec2discovery.ParamWatch) {
		return watch(ctx, logger, v, d)
	}

	result, err := d.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %v", err)
	}
	return jsoniter.NewEncoder(os.Stdout).Encode(result)
}

func constructDiscoverer(logger logrus.FieldLogger, v *viper.Viper) (*discovery.Discoverer, error) {
	md, err := metadata.NewEC2Client(v.GetString(ParamMetadataEndpoint), metadata.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	maxRequests := v.GetInt(ec2discovery.ParamMaxCloudRequests)
	if maxRequests <= 0 {
		return nil, fmt.Errorf("%s must be positive", ec2discovery.ParamMaxCloudRequests)
	}
	clientTimeout := v.GetDuration(ec2discovery.ParamClientTimeout)
	if clientTimeout <= 0 {
		return nil, fmt.Errorf("%s must be positive", ec2discovery.ParamClientTimeout)
	}

	return discovery.NewDiscoverer(logger, v, md, discovery.WithClientConfig(cloudapi.Config{
		Timeout: clientTimeout,
		Limiter: rate.NewLimiter(rate.Limit(maxRequests), v.GetInt(ec2discovery.ParamBurstCloudRequests)),
		Logger:  logger.WithField("component", "cloudapi"),
	})), nil
}

func setupConfiguration() (*viper.Viper, bool, error) {
	v := viper.New()
	defer setupLogger(v) // Apply logging configuration in case of early exit
	util.InitViper(v)

	var version bool

	cmd := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)

	cmd.BoolVar(&version, ParamVersion, false, "Print the version and exit")
	cmd.Bool(ParamVerbose, false, "Verbose")
	cmd.Bool(ParamJSON, false, "Log in JSON format")
	cmd.String(ParamConfigPath, "", "Path to the configuration file")
	cmd.String(ParamMetadataEndpoint, "", "EC2 metadata service address such as http://127.0.0.1:1338, empty for the default")

	ec2discovery.AddFlags(cmd)
	util.AddRetryFlags(cmd)

	cmd.VisitAll(func(flag *pflag.Flag) {
		if err := v.BindPFlag(flag.Name, flag); err != nil {
			panic(err) // Should never happen
		}
	})

	if err := cmd.Parse(os.Args[1:]); err != nil {
		return nil, false, err
	}

	configPath := v.GetString(ParamConfigPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, false, err
		}
	}

	return v, version, nil
}

func setupLogger(v *viper.Viper) {
	if v.GetBool(ParamVerbose) {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if v.GetBool(ParamJSON) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
