package extensions

import (
	"fmt"
	"log/slog"

	"github.com/m1gwings/treedrawer/tree"

	pipeline "github.com/ambient-fn/pipeline-go"
)

// RunTreeDebugExtension logs an ASCII rendering of the pipeline's run tree
// whenever a run fails or panics. The rendering shows each recorded run
// with its invoked sub-pipeline runs nested underneath.
type RunTreeDebugExtension struct {
	pipeline.BaseExtension
	tree   *pipeline.RunTree
	logger *slog.Logger
}

// NewRunTreeDebugExtension creates the extension for one pipeline's tree.
// logHandler: slog.Handler for output (HumanHandler for formatted output,
// SilentHandler for tests).
func NewRunTreeDebugExtension(t *pipeline.RunTree, logHandler slog.Handler) *RunTreeDebugExtension {
	return &RunTreeDebugExtension{
		BaseExtension: pipeline.NewBaseExtension("runtree-debug"),
		tree:          t,
		logger:        slog.New(logHandler),
	}
}

// OnRunEnd renders the tree when the run failed
func (e *RunTreeDebugExtension) OnRunEnd(s *pipeline.Scope, result any, err error) error {
	if err == nil {
		return nil
	}

	e.logger.Error("run tree",
		"pipeline", s.PipelineName(),
		"reason", fmt.Sprintf("run %s failed: %v", s.ID(), err),
		"rendering", RenderRunTree(e.tree),
	)
	return nil
}

// OnPanic renders the tree with the panic as the reason
func (e *RunTreeDebugExtension) OnPanic(s *pipeline.Scope, recovered any, stack []byte) error {
	e.logger.Error("run tree",
		"pipeline", s.PipelineName(),
		"reason", fmt.Sprintf("run %s panicked: %v", s.ID(), recovered),
		"rendering", RenderRunTree(e.tree),
	)
	return nil
}

// RenderRunTree draws every root of the run tree as ASCII art, one drawing
// per recorded top-level run.
func RenderRunTree(t *pipeline.RunTree) string {
	roots := t.GetRoots()
	if len(roots) == 0 {
		return "(no recorded runs)"
	}

	out := ""
	for _, root := range roots {
		drawing := tree.NewTree(tree.NodeString(nodeLabel(root)))
		attachChildren(t, drawing, root)
		out += fmt.Sprintf("%v\n", drawing)
	}
	return out
}

func attachChildren(t *pipeline.RunTree, drawing *tree.Tree, node *pipeline.RunNode) {
	for i, child := range t.GetChildren(node.ID) {
		drawing.AddChild(tree.NodeString(nodeLabel(child)))
		sub, err := drawing.Child(i)
		if err != nil {
			continue
		}
		attachChildren(t, sub, child)
	}
}

func nodeLabel(n *pipeline.RunNode) string {
	label := fmt.Sprintf("%s [%s]", n.Pipeline, n.Status)
	if n.Err != nil {
		label += fmt.Sprintf(" %v", n.Err)
	}
	return label
}
