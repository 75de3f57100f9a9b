package cloudapi

import (
	"sort"
	"strconv"
	"strings"

	"github.com/atlassian/ec2discovery/pkg/config"
)

// Param is a single query parameter of an AWS query API request.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered list of query parameters.
type Params []Param

// Action returns the Action and Version parameters of a request.
func Action(action, version string) Params {
	return Params{
		{Name: "Action", Value: action},
		{Name: "Version", Value: version},
	}
}

// InstanceIDParams returns one InstanceId.<n> parameter per id, numbered from 1.
func InstanceIDParams(ids []string) Params {
	ps := make(Params, 0, len(ids))
	for i, id := range ids {
		ps = append(ps, Param{Name: "InstanceId." + strconv.Itoa(i+1), Value: id})
	}
	return ps
}

// TagParams returns a Filter.<n>.Name / Filter.<n>.Value.1 pair per tag. Tags are numbered in key order so
// the same tag set always produces the same parameters.
func TagParams(tags config.TagSet) Params {
	ps := make(Params, 0, 2*len(tags))
	for i, key := range tags.Keys() {
		prefix := "Filter." + strconv.Itoa(i+1)
		ps = append(ps,
			Param{Name: prefix + ".Name", Value: "tag:" + key},
			Param{Name: prefix + ".Value.1", Value: tags[key]},
		)
	}
	return ps
}

// Merge concatenates the parameter lists and sorts the result by name.
func Merge(lists ...Params) Params {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	merged := make(Params, 0, n)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Name < merged[j].Name
	})
	return merged
}

// Get returns the value of the first parameter with the given name.
func (ps Params) Get(name string) (string, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Encode renders the parameters as a query string, in their current order, escaped per RFC 3986.
func (ps Params) Encode() string {
	var sb strings.Builder
	for i, p := range ps {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(escape(p.Name))
		sb.WriteByte('=')
		sb.WriteString(escape(p.Value))
	}
	return sb.String()
}

// escape percent-encodes everything except the RFC 3986 unreserved characters.
func escape(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}
