package pipeline

import (
	"sync"
	"time"
)

// RunStatus is the terminal (or in-flight) state of one recorded run.
type RunStatus int

const (
	RunStatusRunning RunStatus = iota
	RunStatusSuccess
	RunStatusFailed
	RunStatusCancelled
)

func (s RunStatus) String() string {
	switch s {
	case RunStatusRunning:
		return "running"
	case RunStatusSuccess:
		return "success"
	case RunStatusFailed:
		return "failed"
	case RunStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RunNode records one finished pipeline run. Inherited sub-pipeline
// invocations carry the caller's run ID as ParentID, so composed pipelines
// produce a tree.
type RunNode struct {
	ID         string
	ParentID   string
	Pipeline   string
	Status     RunStatus
	Start      time.Time
	End        time.Time
	Input      any
	Output     any
	Err        error
	PanicStack []byte
}

// RunTree is a bounded store of recorded runs. When the node count exceeds
// the limit, the oldest root and its subtree is evicted.
type RunTree struct {
	mu       sync.RWMutex
	nodes    map[string]*RunNode
	byParent map[string][]string
	roots    []string
	limit    int
}

func newRunTree(limit int) *RunTree {
	return &RunTree{
		nodes:    make(map[string]*RunNode),
		byParent: make(map[string][]string),
		roots:    []string{},
		limit:    limit,
	}
}

func (t *RunTree) addNode(node *RunNode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes[node.ID] = node

	if node.ParentID == "" {
		t.roots = append(t.roots, node.ID)
	} else {
		t.byParent[node.ParentID] = append(t.byParent[node.ParentID], node.ID)
	}

	if len(t.nodes) > t.limit {
		t.evictOldest()
	}
}

func (t *RunTree) evictOldest() {
	if len(t.roots) == 0 {
		return
	}

	oldestRoot := t.roots[0]
	t.roots = t.roots[1:]

	t.removeSubtree(oldestRoot)
}

func (t *RunTree) removeSubtree(nodeID string) {
	delete(t.nodes, nodeID)

	children := t.byParent[nodeID]
	delete(t.byParent, nodeID)

	for _, childID := range children {
		t.removeSubtree(childID)
	}
}

// GetNode returns the recorded run with the given ID, or nil.
func (t *RunTree) GetNode(id string) *RunNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[id]
}

// GetChildren returns the runs invoked (inherited mode) from the given run.
func (t *RunTree) GetChildren(id string) []*RunNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	childIDs := t.byParent[id]
	children := make([]*RunNode, 0, len(childIDs))
	for _, childID := range childIDs {
		if node := t.nodes[childID]; node != nil {
			children = append(children, node)
		}
	}
	return children
}

// GetRoots returns all recorded top-level runs, oldest first.
func (t *RunTree) GetRoots() []*RunNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	roots := make([]*RunNode, 0, len(t.roots))
	for _, rootID := range t.roots {
		if node := t.nodes[rootID]; node != nil {
			roots = append(roots, node)
		}
	}
	return roots
}

// Filter returns every recorded run matching the predicate.
func (t *RunTree) Filter(predicate func(*RunNode) bool) []*RunNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []*RunNode
	for _, node := range t.nodes {
		if predicate(node) {
			result = append(result, node)
		}
	}
	return result
}

// Walk visits the subtree rooted at rootID depth-first. Returning false
// from the visitor stops descent below that node.
func (t *RunTree) Walk(rootID string, visitor func(*RunNode) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.nodes[rootID]
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for _, childID := range t.byParent[rootID] {
		t.walkUnlocked(childID, visitor)
	}
}

func (t *RunTree) walkUnlocked(nodeID string, visitor func(*RunNode) bool) {
	node := t.nodes[nodeID]
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for _, childID := range t.byParent[nodeID] {
		t.walkUnlocked(childID, visitor)
	}
}
