package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/danieljhkim/tidydl/internal/engine"
	"github.com/danieljhkim/tidydl/internal/planner"
)

// Markers prefixed to entries in the dry-run tree.
const (
	markerDelete = "[-]"
	markerRename = "[*]"
	markerPrune  = "[~]"
)

type planStyles struct {
	root    lipgloss.Style
	dir     lipgloss.Style
	deleted lipgloss.Style
	renamed lipgloss.Style
	pruned  lipgloss.Style
	muted   lipgloss.Style
	branch  lipgloss.Style
}

// newPlanStyles binds styles to w so color is only emitted on a terminal.
func newPlanStyles(w io.Writer) planStyles {
	r := lipgloss.NewRenderer(w)
	return planStyles{
		root:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		dir:     r.NewStyle().Bold(true),
		deleted: r.NewStyle().Foreground(lipgloss.Color("9")),
		renamed: r.NewStyle().Foreground(lipgloss.Color("11")),
		pruned:  r.NewStyle().Foreground(lipgloss.Color("13")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		branch:  r.NewStyle().Foreground(lipgloss.Color("8")).PaddingRight(1),
	}
}

// planNode is one entry of the rendered tree. Nodes without an operation
// are ancestors that only exist to hold children.
type planNode struct {
	name     string
	op       *planner.Operation
	children map[string]*planNode
}

func newPlanNode(name string) *planNode {
	return &planNode{name: name, children: make(map[string]*planNode)}
}

// buildPlanTree arranges the flat operation list by directory.
func buildPlanTree(plan *planner.Plan) *planNode {
	root := newPlanNode(plan.Root)
	for i := range plan.Operations {
		op := &plan.Operations[i]
		node := root
		for _, part := range strings.Split(filepath.ToSlash(op.RelPath), "/") {
			child, ok := node.children[part]
			if !ok {
				child = newPlanNode(part)
				node.children[part] = child
			}
			node = child
		}
		node.op = op
	}
	return root
}

// renderPlan writes the plan as a tree of the target with a marker on every
// entry that would change.
func renderPlan(w io.Writer, plan *planner.Plan) {
	styles := newPlanStyles(w)
	root := buildPlanTree(plan)

	t := tree.Root(styles.root.Render(root.name)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(styles.branch)
	addChildren(t, root, styles)

	fmt.Fprintln(w, t.String())
}

func addChildren(t *tree.Tree, node *planNode, styles planStyles) {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		child := node.children[name]
		label := nodeLabel(child, styles)
		if len(child.children) == 0 {
			t.Child(label)
			continue
		}
		sub := tree.Root(label).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(styles.branch)
		addChildren(sub, child, styles)
		t.Child(sub)
	}
}

func nodeLabel(node *planNode, styles planStyles) string {
	op := node.op
	if op == nil {
		return styles.dir.Render(node.name)
	}

	name := node.name
	if op.IsDir {
		name += "/"
	}

	switch op.Kind {
	case planner.KindDelete, planner.KindDeleteByHash:
		detail := op.Rule
		if op.Kind == planner.KindDeleteByHash && op.Digest != "" {
			detail = fmt.Sprintf("%s, %s", op.Rule, shortDigest(op.Digest))
		}
		return styles.deleted.Render(markerDelete+" "+name) + " " + styles.muted.Render("("+detail+")")
	case planner.KindRename:
		return styles.renamed.Render(fmt.Sprintf("%s %s -> %s", markerRename, name, op.NewName)) +
			" " + styles.muted.Render("("+op.Rule+")")
	case planner.KindPrune:
		return styles.pruned.Render(markerPrune + " " + name)
	}

	if op.Reason != "" {
		return name + " " + styles.muted.Render("("+op.Reason+")")
	}
	if op.IsDir {
		return styles.dir.Render(name)
	}
	return name
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// jsonOperation is one action in the machine-readable plan.
type jsonOperation struct {
	Path    string `json:"path"`
	Action  string `json:"action"`
	NewName string `json:"new_name,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Digest  string `json:"digest,omitempty"`
	Size    int64  `json:"size,omitempty"`
}

type jsonFailure struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// jsonReport is what --json prints for a run.
type jsonReport struct {
	Root       string            `json:"root"`
	Config     string            `json:"config,omitempty"`
	DryRun     bool              `json:"dry_run"`
	Operations []jsonOperation   `json:"operations"`
	Applied    int               `json:"applied"`
	Reclaimed  int64             `json:"reclaimed_bytes"`
	Warnings   []planner.Warning `json:"warnings"`
	Failures   []jsonFailure     `json:"failures"`
}

func newJSONReport(result *engine.CleanResult) jsonReport {
	report := jsonReport{
		Root:       result.Root,
		Config:     result.ConfigPath,
		DryRun:     result.DryRun,
		Operations: []jsonOperation{},
		Applied:    len(result.Applied),
		Warnings:   result.Plan.Warnings,
		Failures:   []jsonFailure{},
	}

	for _, op := range result.Plan.Actions() {
		report.Operations = append(report.Operations, jsonOperation{
			Path:    filepath.ToSlash(op.RelPath),
			Action:  op.Kind.String(),
			NewName: op.NewName,
			Rule:    op.Rule,
			Digest:  op.Digest,
			Size:    op.Size,
		})
	}

	reclaimed := result.Applied
	if result.DryRun {
		reclaimed = result.Plan.Actions()
	}
	report.Reclaimed = tally(reclaimed).reclaims

	for _, f := range result.Failures {
		report.Failures = append(report.Failures, jsonFailure{
			Path:   filepath.ToSlash(f.Operation.RelPath),
			Action: f.Operation.Kind.String(),
			Error:  f.Err.Error(),
		})
	}

	if report.Warnings == nil {
		report.Warnings = []planner.Warning{}
	}
	return report
}
