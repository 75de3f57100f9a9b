// Package config resolves the options of a single discovery run.
//
// Every option has a declared type, environment variable and default. A value explicitly present in the
// caller's viper (flag, config file or Set) wins over the environment variable, which wins over the default.
// Malformed values fall back to the default, so resolution never fails.
package config

import (
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/atlassian/ec2discovery"
	"github.com/atlassian/ec2discovery/pkg/util"
)

// Unset is the sentinel default of string options that have no value.
const Unset = "unset"

const (
	KeyAutoscaling    = "aws_autoscaling"
	KeyEC2Tags        = "aws_ec2_tags"
	KeyAccessKey      = "aws_access_key"
	KeySecretKey      = "aws_secret_key"
	KeyEC2Region      = "aws_ec2_region"
	KeyUsePrivateIP   = "aws_use_private_ip"
	KeyNodeNamePrefix = "node_name_prefix"
)

type kind int

const (
	kindBool kind = iota
	kindString
	kindTags
)

type option struct {
	key  string
	env  string
	kind kind
	def  interface{}
}

var options = []option{
	{key: KeyAutoscaling, env: "AWS_AUTOSCALING", kind: kindBool, def: false},
	{key: KeyEC2Tags, env: "AWS_EC2_TAGS", kind: kindTags, def: TagSet{}},
	{key: KeyAccessKey, env: "AWS_ACCESS_KEY_ID", kind: kindString, def: Unset},
	{key: KeySecretKey, env: "AWS_SECRET_ACCESS_KEY", kind: kindString, def: Unset},
	{key: KeyEC2Region, env: "AWS_EC2_REGION", kind: kindString, def: Unset},
	{key: KeyUsePrivateIP, env: "AWS_USE_PRIVATE_IP", kind: kindBool, def: false},
	{key: KeyNodeNamePrefix, env: "NODE_NAME_PREFIX", kind: kindString, def: ec2discovery.DefaultNodeNamePrefix},
}

// TagSet maps EC2 tag keys to the values an instance must carry.
type TagSet map[string]string

// Keys returns the tag keys in sorted order.
func (ts TagSet) Keys() []string {
	keys := make([]string, 0, len(ts))
	for k := range ts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Options are the resolved values for one discovery run.
type Options struct {
	Autoscaling    bool
	Tags           TagSet
	AccessKey      string
	SecretKey      string
	Region         string
	UsePrivateIP   bool
	NodeNamePrefix string
}

// IsSet reports whether a string option carries a real value.
func IsSet(s string) bool {
	return s != "" && s != Unset
}

// Resolve returns the Options for one discovery run. v may be nil, in which case only the environment and
// the defaults are consulted.
func Resolve(v *viper.Viper) Options {
	bindings := make(map[string]string, len(options))
	for _, o := range options {
		bindings[o.key] = o.env
	}
	env := util.NewEnvViper(bindings)

	values := make(map[string]interface{}, len(options))
	for _, o := range options {
		values[o.key] = resolveOption(o, v, env)
	}

	return Options{
		Autoscaling:    values[KeyAutoscaling].(bool),
		Tags:           values[KeyEC2Tags].(TagSet),
		AccessKey:      values[KeyAccessKey].(string),
		SecretKey:      values[KeySecretKey].(string),
		Region:         values[KeyEC2Region].(string),
		UsePrivateIP:   values[KeyUsePrivateIP].(bool),
		NodeNamePrefix: values[KeyNodeNamePrefix].(string),
	}
}

func resolveOption(o option, v, env *viper.Viper) interface{} {
	var raw interface{}
	switch {
	case v != nil && v.IsSet(o.key):
		raw = v.Get(o.key)
	case env.IsSet(o.key):
		raw = env.Get(o.key)
	default:
		return o.def
	}

	var (
		val interface{}
		err error
	)
	switch o.kind {
	case kindBool:
		val, err = cast.ToBoolE(raw)
	case kindString:
		val, err = cast.ToStringE(raw)
	case kindTags:
		val, err = toTagSet(raw)
	}
	if err != nil {
		return o.def
	}
	return val
}

// toTagSet accepts a map, a JSON object or a comma separated list of key=value pairs.
func toTagSet(raw interface{}) (TagSet, error) {
	if ts, ok := raw.(TagSet); ok {
		return ts, nil
	}
	s, ok := raw.(string)
	if !ok {
		m, err := cast.ToStringMapStringE(raw)
		if err != nil {
			return nil, err
		}
		return TagSet(m), nil
	}

	s = strings.TrimSpace(s)
	tags := TagSet{}
	if s == "" {
		return tags, nil
	}
	if strings.HasPrefix(s, "{") {
		m := map[string]string{}
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(s, &m); err != nil {
			return nil, err
		}
		return TagSet(m), nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("malformed tag %q, expected key=value", pair)
		}
		tags[kv[0]] = kv[1]
	}
	return tags, nil
}
