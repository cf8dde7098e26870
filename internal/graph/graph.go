// Package graph adapts internal/cfg and class-reference edges to
// github.com/zboralski/lattice's Graph/CFGGraph types, grounded on the
// teacher's internal/callgraph (callgraph.go's BuildCallGraph,
// cfg.go's convertFuncCFG/BuildFuncCFG): same "walk the domain structure,
// emit lattice nodes/edges/blocks" shape, retargeted from ARM64
// functions+call-edges to JVM classes+method-reference-edges and JVM
// methods+basic-blocks.
package graph

import (
	"fmt"

	"github.com/zboralski/lattice"

	"threadtear/internal/cfg"
	"threadtear/internal/ir"
	"threadtear/internal/universe"
)

// BuildClassGraph constructs a lattice.Graph from u: one node per class,
// one edge per distinct (caller, owner) pair where some method in caller
// holds a MethodInsn or FieldInsn naming owner — the same "scan for
// resolved references, dedup" idiom as BuildCallGraph's CallEdges walk,
// generalized from ARM64 BLR targets to JVM constant-pool references.
func BuildClassGraph(u *universe.U) *lattice.Graph {
	g := &lattice.Graph{}
	u.Each(func(rec *universe.ClassRecord) {
		g.Nodes = append(g.Nodes, rec.Node.Name)
	})
	u.Each(func(rec *universe.ClassRecord) {
		for _, owner := range referencedOwners(rec.Node) {
			if owner == rec.Node.Name {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{Caller: rec.Node.Name, Callee: owner})
		}
	})
	g.Dedup()
	return g
}

func referencedOwners(cls *ir.ClassNode) []string {
	seen := map[string]bool{}
	var owners []string
	add := func(owner string) {
		if owner != "" && !seen[owner] {
			seen[owner] = true
			owners = append(owners, owner)
		}
	}
	for _, m := range cls.Methods {
		if m.Instructions == nil {
			continue
		}
		for _, it := range m.Instructions.Items {
			switch insn := it.(type) {
			case *ir.MethodInsn:
				add(insn.Owner)
			case *ir.FieldInsn:
				add(insn.Owner)
			}
		}
	}
	return owners
}

// BuildMethodCFG converts one internal/cfg.MethodCFG to a lattice.FuncCFG,
// the same block/successor mapping convertFuncCFG does for ARM64 blocks,
// retargeted to JVM basic blocks and edge kinds.
func BuildMethodCFG(name string, g *cfg.MethodCFG) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: name}
	for _, b := range g.Blocks {
		lb := &lattice.BasicBlock{
			ID:    b.ID,
			Start: b.Start,
			End:   b.End,
			Term:  b.IsExit,
		}
		for _, s := range b.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: s.BlockID,
				Cond:    succKindLabel(s),
			})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

func succKindLabel(s cfg.Succ) string {
	switch s.Kind {
	case cfg.EdgeFallthrough:
		return "fallthrough"
	case cfg.EdgeBranchTaken:
		return "taken"
	case cfg.EdgeBranchNotTaken:
		return "not-taken"
	case cfg.EdgeJump:
		return "jump"
	case cfg.EdgeSwitchCase:
		return fmt.Sprintf("case %d", s.CaseValue)
	case cfg.EdgeSwitchDefault:
		return "default"
	case cfg.EdgeException:
		if s.ExceptionType != "" {
			return "catch " + s.ExceptionType
		}
		return "catch any"
	default:
		return ""
	}
}

// BuildClassCFGGraph builds a lattice.CFGGraph covering every method in
// cls that has a body, one lattice.FuncCFG per method named
// "<method><descriptor>" (e.g. "run()V") to disambiguate overloads.
func BuildClassCFGGraph(cls *ir.ClassNode) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, m := range cls.Methods {
		if m.Instructions == nil {
			continue
		}
		name := m.Name + m.Descriptor
		cg.Funcs = append(cg.Funcs, BuildMethodCFG(name, cfg.Build(m)))
	}
	return cg
}
