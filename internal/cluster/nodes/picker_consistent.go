package nodes

import (
	"sort"

	"stathat.com/c/consistent"
)

type consistentNodePicker struct {
	self string
	ring *consistent.Consistent
}

// NewConsistentNodePicker returns a NodePicker placing every node numReplicas times on a consistent hash
// ring, so a membership change only moves the keys of the node that joined or left.  self is the node
// name of the local broker.
func NewConsistentNodePicker(self string, numReplicas int) NodePicker {
	ring := consistent.New()
	if numReplicas > 0 {
		ring.NumberOfReplicas = numReplicas
	}
	return &consistentNodePicker{
		self: self,
		ring: ring,
	}
}

func (cnp *consistentNodePicker) List() []string {
	members := cnp.ring.Members()
	sort.Strings(members)
	return members
}

func (cnp *consistentNodePicker) Select(key string) (string, bool, error) {
	node, err := cnp.ring.Get(key)
	if err == consistent.ErrEmptyCircle {
		return "", false, ErrNoNodes
	}
	if err != nil {
		return "", false, err
	}
	return node, node == cnp.self, nil
}

func (cnp *consistentNodePicker) Add(node string) {
	cnp.ring.Add(node)
}

func (cnp *consistentNodePicker) Remove(node string) {
	cnp.ring.Remove(node)
}
