package engine

import (
	"fmt"
	"strings"

	"github.com/sealix-io/sealix/internal/ir"
)

// ephemeralScheme prefixes a reference to another resource's ephemeral
// payload: ephemeral://type.name/key.
const ephemeralScheme = "ephemeral://"

// DAG represents a directed acyclic graph of resources for dependency
// ordering.
type DAG struct {
	nodes map[string]*dagNode
	order []string // topological order (apply order)
}

type dagNode struct {
	addr     string
	edges    []string // resources this node depends on
	revEdges []string // resources that depend on this node
}

// BuildDAG constructs a dependency graph from resources. It resolves both
// explicit DependsOn entries and implicit ephemeral:// references, so an
// ephemeral read is always ordered after the resource it reads from.
func BuildDAG(resources []*ir.Resource) (*DAG, error) {
	dag := &DAG{
		nodes: make(map[string]*dagNode),
	}

	for _, res := range resources {
		dag.nodes[res.Addr()] = &dagNode{addr: res.Addr()}
	}

	for _, res := range resources {
		node := dag.nodes[res.Addr()]

		for _, dep := range res.DependsOn {
			if _, ok := dag.nodes[dep]; ok {
				node.edges = append(node.edges, dep)
			}
		}

		for _, ref := range extractEphemeralRefs(res) {
			depAddr, _, err := parseEphemeralRef(ref)
			if err != nil {
				return nil, fmt.Errorf("resource %s: %w", res.Addr(), err)
			}
			if _, ok := dag.nodes[depAddr]; !ok {
				return nil, fmt.Errorf("resource %s references undeclared resource %s", res.Addr(), depAddr)
			}
			node.edges = append(node.edges, depAddr)
		}
	}

	for addr, node := range dag.nodes {
		for _, dep := range node.edges {
			dag.nodes[dep].revEdges = append(dag.nodes[dep].revEdges, addr)
		}
	}

	order, err := dag.topoSort()
	if err != nil {
		return nil, err
	}
	dag.order = order

	return dag, nil
}

// ApplyOrder returns resources in dependency-respecting order.
func (d *DAG) ApplyOrder() []string {
	return d.order
}

// Dependencies returns the list of dependencies for a given address.
func (d *DAG) Dependencies(addr string) []string {
	if node, ok := d.nodes[addr]; ok {
		return node.edges
	}
	return nil
}

// topoSort performs Kahn's algorithm for topological sorting.
func (d *DAG) topoSort() ([]string, error) {
	inDegree := make(map[string]int)
	for addr := range d.nodes {
		inDegree[addr] = len(d.nodes[addr].edges)
	}

	var queue []string
	for addr, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, addr)
		}
	}

	var sorted []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		for _, dependent := range d.nodes[node].revEdges {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("dependency cycle detected in resource graph")
	}

	return sorted, nil
}

// extractEphemeralRefs returns every ephemeral:// reference in the
// resource's field values.
func extractEphemeralRefs(res *ir.Resource) []string {
	var refs []string
	for _, f := range res.Fields {
		if ref, ok := f.Value.(string); ok && strings.HasPrefix(ref, ephemeralScheme) {
			refs = append(refs, ref)
		}
	}
	return refs
}

// parseEphemeralRef splits an ephemeral:// reference into the source
// resource address and the payload key.
// ephemeral://lease.app-creds/password -> ("lease.app-creds", "password")
func parseEphemeralRef(ref string) (addr, key string, err error) {
	if !strings.HasPrefix(ref, ephemeralScheme) {
		return "", "", fmt.Errorf("not an ephemeral reference: %s", ref)
	}
	rest := strings.TrimPrefix(ref, ephemeralScheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed ephemeral reference %q, expected ephemeral://type.name/key", ref)
	}
	return parts[0], parts[1], nil
}
