package datamodel

import (
	"sync"

	"github.com/rocprofvis/datamodel/pkg/types"
)

// NodeKind enumerates the polymorphic topology node variants from
// spec §4.7: Root, SystemNode, Process, Processor, the two Thread
// variants, the three Queue variants, Stream, Counter, and the two
// Reference variants.
type NodeKind int

const (
	NodeRoot NodeKind = iota
	NodeSystem
	NodeProcess
	NodeProcessor
	NodeThreadInstrumented
	NodeThreadSampled
	NodeQueueKernelDispatch
	NodeQueueMemoryCopy
	NodeQueueMemoryAllocate
	NodeStream
	NodeCounter
	NodeReferenceProcessor
	NodeReferenceQueue
)

// levelTag returns the identifier-tuple level a node of this kind must
// be attached under, per spec §4.7's invariant: "the node-type-specific
// level tag ... must appear in the loader-supplied identifier tuple
// for a node to be attached."
func (k NodeKind) levelTag() string {
	switch k {
	case NodeSystem:
		return "node"
	case NodeProcess:
		return "process"
	case NodeProcessor:
		return "agent"
	case NodeThreadInstrumented, NodeThreadSampled:
		return "thread"
	case NodeQueueKernelDispatch, NodeQueueMemoryCopy, NodeQueueMemoryAllocate:
		return "queue"
	case NodeStream:
		return "stream"
	case NodeCounter:
		return "counter"
	default:
		return ""
	}
}

func (k NodeKind) isReference() bool {
	return k == NodeReferenceProcessor || k == NodeReferenceQueue
}

// PropertyValue is the tagged variant a topology node's property bag
// holds: Int is stored as u64, with the upper 10 bits optionally
// marked with the owning db-instance for topology ids (spec §4.7).
type PropertyValue struct {
	Type   types.PropertyValueType
	Int    uint64
	Double float64
	Str    string
}

const dbInstanceShift = 54 // reserves the upper 10 bits of a u64 topology id

// TagDbInstance marks the upper 10 bits of an Int property value with
// a db instance index, matching the loader's multi-database topology
// id scheme.
func TagDbInstance(id uint64, dbInstance uint32) uint64 {
	return (id &^ (uint64(0x3FF) << dbInstanceShift)) | (uint64(dbInstance&0x3FF) << dbInstanceShift)
}

// TopologyNode is one vertex of the topology tree.
type TopologyNode struct {
	Kind     NodeKind
	Identity Identifier // the level-tag/value pair this node was attached under

	mu         sync.RWMutex
	properties map[uint32]PropertyValue
	children   []*TopologyNode

	// refTarget is set on reference-kind nodes; it holds the identifier
	// tuple used to resolve to a concrete downstream node on access.
	refTarget IdentifierTuple
	hasRef    bool
}

func newTopologyNode(kind NodeKind, identity Identifier) *TopologyNode {
	return &TopologyNode{
		Kind:       kind,
		Identity:   identity,
		properties: make(map[uint32]PropertyValue),
	}
}

// SetProperty writes a property value under the given closed-enum id.
func (n *TopologyNode) SetProperty(id uint32, v PropertyValue) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.properties[id] = v
}

// Property reads the property at id, if set.
func (n *TopologyNode) Property(id uint32) (PropertyValue, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.properties[id]
	return v, ok
}

// Children returns a snapshot of the node's children.
func (n *TopologyNode) Children() []*TopologyNode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*TopologyNode, len(n.children))
	copy(out, n.children)
	return out
}

// SetReferenceTarget marks this node (must be a Reference kind) with
// the identifier tuple it resolves to.
func (n *TopologyNode) SetReferenceTarget(target IdentifierTuple) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refTarget = target
	n.hasRef = true
}

func (n *TopologyNode) addChild(c *TopologyNode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children = append(n.children, c)
}

func (n *TopologyNode) findChild(kind NodeKind, identity Identifier) (*TopologyNode, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, c := range n.children {
		if c.Kind == kind && c.Identity.Equal(identity) {
			return c, true
		}
	}
	return nil, false
}

// Bytes estimates the node's (and its subtree's) footprint.
func (n *TopologyNode) Bytes() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	total := int64(len(n.properties))*32 + 64
	for _, c := range n.children {
		total += c.Bytes()
	}
	return total
}

// TopologyTree is the Trace-owned hierarchical catalog of
// physical/logical entities (spec §4.7). It is built incrementally
// during metadata load by calling AddNode once per track identifier
// tuple.
type TopologyTree struct {
	root *TopologyNode
}

// NewTopologyTree constructs a tree with an empty root.
func NewTopologyTree() *TopologyTree {
	return &TopologyTree{root: newTopologyNode(NodeRoot, Identifier{})}
}

// Root returns the tree's root node.
func (t *TopologyTree) Root() *TopologyNode { return t.root }

// AddNode dispatches on the identifiers present in tuple, extending
// the tree one level at a time: node → process/processor →
// thread/queue, creating each intermediate node on first sighting.
// kindForLevel supplies the node kind for the category observed at
// each level (legacy vs. modern schemas attach different kinds at the
// same level, per spec §4.7).
func (t *TopologyTree) AddNode(tuple IdentifierTuple, kindForLevel func(level string) (NodeKind, bool)) *TopologyNode {
	cur := t.root
	for _, id := range tuple {
		if id.Level == "" {
			continue
		}
		kind, ok := kindForLevel(id.Level)
		if !ok {
			continue
		}
		if kind.levelTag() != id.Level && kind.levelTag() != "" {
			// the node's required level tag is absent from this
			// identifier's slot; per spec §4.7 it cannot be attached here.
			continue
		}
		child, found := cur.findChild(kind, id)
		if !found {
			child = newTopologyNode(kind, id)
			cur.addChild(child)
		}
		cur = child
	}
	return cur
}

// FindNodeMatchingIdentifiers walks the tree from root comparing each
// level by tag and id, per spec §4.7.
func (t *TopologyTree) FindNodeMatchingIdentifiers(tuple IdentifierTuple) (*TopologyNode, bool) {
	cur := t.root
	matchedAny := false
	for _, id := range tuple {
		if id.Level == "" {
			continue
		}
		child, found := cur.findChild(kindGuess(cur, id), id)
		if !found {
			// fall back to a tag/id-only scan across all children kinds
			children := cur.Children()
			child = nil
			for _, c := range children {
				if c.Identity.Equal(id) {
					child = c
					break
				}
			}
			if child == nil {
				return nil, false
			}
		}
		cur = child
		matchedAny = true
	}
	if !matchedAny {
		return nil, false
	}
	return cur, true
}

func kindGuess(parent *TopologyNode, id Identifier) NodeKind {
	// best-effort direct-kind guess for the common case where the
	// caller already knows the expected kind at this level; the
	// fallback scan in FindNodeMatchingIdentifiers handles the rest.
	for _, c := range parent.Children() {
		if c.Kind.levelTag() == id.Level {
			return c.Kind
		}
	}
	return NodeSystem
}

// AddProperty locates the deepest node matching tuple and writes value
// there under property id name; if the resolved node is a
// Reference kind, it instead records the cross-reference target
// (spec §4.7).
func (t *TopologyTree) AddProperty(tuple IdentifierTuple, name uint32, value PropertyValue) types.Result {
	node, ok := t.FindNodeMatchingIdentifiers(tuple)
	if !ok {
		return types.NotLoaded
	}
	if node.Kind.isReference() {
		node.SetReferenceTarget(tuple)
		return types.Success
	}
	node.SetProperty(name, value)
	return types.Success
}

// Bytes estimates the tree's footprint.
func (t *TopologyTree) Bytes() int64 {
	return t.root.Bytes()
}
