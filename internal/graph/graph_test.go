package graph

import (
	"testing"

	"threadtear/internal/cfg"
	"threadtear/internal/ir"
	"threadtear/internal/universe"
)

func classCalling(name, calleeOwner string) *ir.ClassNode {
	list := ir.NewInstructionList()
	list.Append(
		&ir.MethodInsn{Opcode: ir.OpInvokestatic, Owner: calleeOwner, Name: "m", Descriptor: "()V"},
		&ir.FieldInsn{Opcode: ir.OpGetstatic, Owner: calleeOwner, Name: "f", Descriptor: "I"},
		&ir.ZeroOp{Opcode: ir.OpReturn},
	)
	m := &ir.MethodNode{Name: "run", Descriptor: "()V", Instructions: list}
	return &ir.ClassNode{Name: name, Methods: []*ir.MethodNode{m}}
}

func TestReferencedOwnersDedups(t *testing.T) {
	owners := referencedOwners(classCalling("A", "B"))
	if len(owners) != 1 || owners[0] != "B" {
		t.Errorf("owners = %v, want [B] (method and field refs to the same owner dedup)", owners)
	}
}

func TestBuildClassGraphOmitsSelfEdges(t *testing.T) {
	u := universe.New()
	u.Add(classCalling("A", "A"), "") // only references itself
	u.Add(classCalling("B", "C"), "")

	g := BuildClassGraph(u)
	if len(g.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(g.Nodes))
	}
	for _, e := range g.Edges {
		if e.Caller == e.Callee {
			t.Errorf("self-edge should have been skipped: %+v", e)
		}
	}
	var sawBtoC bool
	for _, e := range g.Edges {
		if e.Caller == "B" && e.Callee == "C" {
			sawBtoC = true
		}
	}
	if !sawBtoC {
		t.Errorf("expected an edge B->C, got %+v", g.Edges)
	}
}

func TestSuccKindLabel(t *testing.T) {
	cases := []struct {
		s    cfg.Succ
		want string
	}{
		{cfg.Succ{Kind: cfg.EdgeFallthrough}, "fallthrough"},
		{cfg.Succ{Kind: cfg.EdgeSwitchCase, CaseValue: 3}, "case 3"},
		{cfg.Succ{Kind: cfg.EdgeException, ExceptionType: "java/lang/Exception"}, "catch java/lang/Exception"},
		{cfg.Succ{Kind: cfg.EdgeException}, "catch any"},
	}
	for _, c := range cases {
		if got := succKindLabel(c.s); got != c.want {
			t.Errorf("succKindLabel(%+v) = %q, want %q", c.s, got, c.want)
		}
	}
}

func TestBuildMethodCFG(t *testing.T) {
	list := ir.NewInstructionList()
	list.Append(&ir.ZeroOp{Opcode: ir.OpReturn})
	m := &ir.MethodNode{Name: "m", Descriptor: "()V", Instructions: list}
	g := cfg.Build(m)

	lcfg := BuildMethodCFG("m()V", g)
	if lcfg.Name != "m()V" {
		t.Errorf("Name = %q", lcfg.Name)
	}
	if len(lcfg.Blocks) != len(g.Blocks) {
		t.Errorf("got %d blocks, want %d", len(lcfg.Blocks), len(g.Blocks))
	}
}

func TestBuildClassCFGGraphSkipsAbstractMethods(t *testing.T) {
	abstract := &ir.MethodNode{Name: "abs", Descriptor: "()V"} // no body
	list := ir.NewInstructionList()
	list.Append(&ir.ZeroOp{Opcode: ir.OpReturn})
	concrete := &ir.MethodNode{Name: "run", Descriptor: "()V", Instructions: list}
	cls := &ir.ClassNode{Name: "C", Methods: []*ir.MethodNode{abstract, concrete}}

	cg := BuildClassCFGGraph(cls)
	if len(cg.Funcs) != 1 {
		t.Fatalf("got %d funcs, want 1", len(cg.Funcs))
	}
	if cg.Funcs[0].Name != "run()V" {
		t.Errorf("func name = %q", cg.Funcs[0].Name)
	}
}
