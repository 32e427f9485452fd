// Package mindmap converts between the flat node/edge graph stored for the
// canvas editor and the single-parent nested tree required by the outline
// renderer. The input may be an arbitrary directed graph (multiple parents,
// cycles, several disconnected roots); the conversion is lossy and reports
// everything it had to drop or reroute as warnings.
package mindmap

import (
	"fmt"
	"sort"
)

// MaxDepth is the hard traversal depth limit for pathological inputs.
const MaxDepth = 20

// Node is one canvas node in the flat graph representation.
type Node struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	NodeType string  `json:"node_type,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Edge is a directed source→target connection between two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// TreeNode is one node of the nested single-parent representation.
type TreeNode struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	NodeType string      `json:"node_type,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Warning codes emitted by ToTree.
const (
	WarnNoRoot       = "no_root"       // every node had an incoming edge; an arbitrary node was promoted
	WarnExtraRoot    = "extra_root"    // a secondary root was attached under the primary root
	WarnLostEdge     = "lost_edge"     // edge dropped because the target already has a parent
	WarnCycle        = "cycle"         // edge dropped because it closes a cycle
	WarnDepthLimit   = "depth_limit"   // branch truncated at MaxDepth
	WarnDanglingEdge = "dangling_edge" // edge references a node that does not exist
	WarnUnreachable  = "unreachable"   // node not reachable from any root; attached under the primary root
)

// Warning describes one lossy decision made during conversion.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
	EdgeID  string `json:"edge_id,omitempty"`
}

type converter struct {
	byID     map[string]Node
	outgoing map[string][]Edge
	claimed  map[string]bool
	warnings []Warning
}

// ToTree flattens a node/edge graph into a single tree. Each node is assigned
// to the first parent that reaches it in traversal order; edges are sorted by
// (source, id) beforehand so the result does not depend on input order.
// Returns nil when the graph has no nodes.
func ToTree(nodes []Node, edges []Edge) (*TreeNode, []Warning) {
	if len(nodes) == 0 {
		return nil, nil
	}

	c := &converter{
		byID:     make(map[string]Node, len(nodes)),
		outgoing: make(map[string][]Edge),
		claimed:  make(map[string]bool, len(nodes)),
	}
	for _, n := range nodes {
		c.byID[n.ID] = n
	}

	indegree := make(map[string]int, len(nodes))
	for _, e := range edges {
		if _, ok := c.byID[e.Source]; !ok {
			c.warn(WarnDanglingEdge, fmt.Sprintf("edge %s references unknown source %s", e.ID, e.Source), "", e.ID)
			continue
		}
		if _, ok := c.byID[e.Target]; !ok {
			c.warn(WarnDanglingEdge, fmt.Sprintf("edge %s references unknown target %s", e.ID, e.Target), "", e.ID)
			continue
		}
		c.outgoing[e.Source] = append(c.outgoing[e.Source], e)
		indegree[e.Target]++
	}
	for src := range c.outgoing {
		out := c.outgoing[src]
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}

	// Candidate roots keep input node order.
	var roots []Node
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 {
		roots = []Node{nodes[0]}
		c.warn(WarnNoRoot, fmt.Sprintf("no root candidate; using node %s", nodes[0].ID), nodes[0].ID, "")
	}

	primary := c.newTreeNode(roots[0])
	c.claimed[primary.ID] = true
	c.traverse(primary, 1, map[string]bool{primary.ID: true})

	// Secondary roots become children of the primary root.
	for _, r := range roots[1:] {
		if c.claimed[r.ID] {
			continue
		}
		c.claimed[r.ID] = true
		c.warn(WarnExtraRoot, fmt.Sprintf("multiple roots; attaching %s under %s", r.ID, primary.ID), r.ID, "")
		child := c.newTreeNode(r)
		primary.Children = append(primary.Children, child)
		c.traverse(child, 2, map[string]bool{primary.ID: true, child.ID: true})
	}

	// Anything still unclaimed sits in a cycle component with no way in from
	// a root. Attach it under the primary root and keep walking.
	for _, n := range nodes {
		if c.claimed[n.ID] {
			continue
		}
		c.claimed[n.ID] = true
		c.warn(WarnUnreachable, fmt.Sprintf("node %s unreachable from any root; attaching under %s", n.ID, primary.ID), n.ID, "")
		child := c.newTreeNode(n)
		primary.Children = append(primary.Children, child)
		c.traverse(child, 2, map[string]bool{primary.ID: true, child.ID: true})
	}

	return primary, c.warnings
}

func (c *converter) traverse(parent *TreeNode, depth int, path map[string]bool) {
	if depth >= MaxDepth {
		if len(c.outgoing[parent.ID]) > 0 {
			c.warn(WarnDepthLimit, fmt.Sprintf("depth limit %d reached at node %s", MaxDepth, parent.ID), parent.ID, "")
		}
		return
	}

	for _, e := range c.outgoing[parent.ID] {
		if path[e.Target] {
			c.warn(WarnCycle, fmt.Sprintf("edge %s closes a cycle at node %s", e.ID, e.Target), e.Target, e.ID)
			continue
		}
		if c.claimed[e.Target] {
			// The output tree holds one parent per node; first edge wins.
			c.warn(WarnLostEdge, fmt.Sprintf("edge %s dropped; node %s already has a parent", e.ID, e.Target), e.Target, e.ID)
			continue
		}

		c.claimed[e.Target] = true
		child := c.newTreeNode(c.byID[e.Target])
		parent.Children = append(parent.Children, child)

		path[e.Target] = true
		c.traverse(child, depth+1, path)
		delete(path, e.Target)
	}
}

func (c *converter) newTreeNode(n Node) *TreeNode {
	return &TreeNode{ID: n.ID, Label: n.Label, NodeType: n.NodeType}
}

func (c *converter) warn(code, message, nodeID, edgeID string) {
	c.warnings = append(c.warnings, Warning{Code: code, Message: message, NodeID: nodeID, EdgeID: edgeID})
}

// FromTree flattens a nested tree back to the node/edge representation.
// The inverse of ToTree for inputs that already are trees. Positions are laid
// out on a simple grid: x by depth, y by visit order.
func FromTree(root *TreeNode) ([]Node, []Edge) {
	if root == nil {
		return nil, nil
	}

	var (
		nodes []Node
		edges []Edge
		row   int
	)

	var walk func(t *TreeNode, depth int)
	walk = func(t *TreeNode, depth int) {
		nodes = append(nodes, Node{
			ID:       t.ID,
			Label:    t.Label,
			NodeType: t.NodeType,
			X:        float64(depth) * 240,
			Y:        float64(row) * 120,
		})
		row++
		for _, child := range t.Children {
			edges = append(edges, Edge{
				ID:     fmt.Sprintf("e-%s-%s", t.ID, child.ID),
				Source: t.ID,
				Target: child.ID,
			})
			walk(child, depth+1)
		}
	}
	walk(root, 0)

	return nodes, edges
}
