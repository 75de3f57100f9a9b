package ec2discovery

// DefaultNodeNamePrefix is the node name prefix used when none is configured.
const DefaultNodeNamePrefix = "rabbit"

// NodeNamer converts a resolved hostname or IP into a broker node identifier.
type NodeNamer interface {
	NodeName(host string) string
}

// PrefixNodeNamer produces node names of the form prefix@host.
type PrefixNodeNamer struct {
	Prefix string
}

// NodeName implements NodeNamer.
func (n PrefixNodeNamer) NodeName(host string) string {
	prefix := n.Prefix
	if prefix == "" {
		prefix = DefaultNodeNamePrefix
	}
	return prefix + "@" + host
}

// NodeNamerFunc adapts a function into a NodeNamer.
type NodeNamerFunc func(host string) string

// NodeName implements NodeNamer.
func (f NodeNamerFunc) NodeName(host string) string {
	return f(host)
}
