package graph

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"
)

// RenderClassGraphDOT renders a class-reference graph to Graphviz DOT,
// grounded on the teacher's cmd/unflutter/disasm.go call
// render.DOT(cg, "callgraph").
func RenderClassGraphDOT(g *lattice.Graph, name string) string {
	return render.DOT(g, name)
}

// RenderMethodCFGDOT renders a single method's CFG to Graphviz DOT,
// grounded on the teacher's render.DOTCFG(g, name) call wrapping a
// one-function lattice.CFGGraph.
func RenderMethodCFGDOT(lcfg *lattice.FuncCFG, name string) string {
	g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}
	return render.DOTCFG(g, name)
}

// RenderClassCFGDOT renders every method CFG in cg as one DOT graph.
func RenderClassCFGDOT(cg *lattice.CFGGraph, name string) string {
	return render.DOTCFG(cg, name)
}
