package clean

import (
	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/passes"
	"threadtear/internal/universe"
)

// UnusedClassRemover implements spec.md §4.4.3 with the broadened
// reachability relation SPEC_FULL.md §4 elects for the Open Question: past
// direct method-reference edges, also field references, type references
// (checkcast/instanceof/new/multianewarray/array-element types), superclass
// and interface edges, and class constants loaded via LDC or referenced as
// a dynamic-invoke static argument.
type UnusedClassRemover struct{}

func (UnusedClassRemover) Metadata() passes.Meta {
	return passes.Meta{
		ID:          "clean.unused-class",
		DisplayName: "Unused class remover",
		Description: "Removes classes unreachable from any public entry point.",
		Category:    passes.CategoryCleaning,
		Tags:        []passes.Tag{passes.TagShrink},
	}
}

func (UnusedClassRemover) Execute(u *universe.U, opts diag.Options) (bool, error) {
	roots := map[string]bool{}
	u.Each(func(rec *universe.ClassRecord) {
		for _, m := range rec.Node.Methods {
			if m.Name == "main" && m.Descriptor == "([Ljava/lang/String;)V" && m.Access.IsPublic() && m.Access.IsStatic() {
				roots[rec.Node.Name] = true
			}
		}
	})

	edges := buildReferenceEdges(u)

	reachable := map[string]bool{}
	var queue []string
	for r := range roots {
		reachable[r] = true
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, to := range edges[name] {
			if !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}

	var dead []string
	u.Each(func(rec *universe.ClassRecord) {
		if !reachable[rec.Node.Name] {
			dead = append(dead, rec.Node.Name)
		}
	})
	for _, name := range dead {
		u.Remove(name)
	}
	return len(dead) > 0, nil
}

// buildReferenceEdges maps every class to the set of class names it
// references, by any of the broadened edge kinds above.
func buildReferenceEdges(u *universe.U) map[string][]string {
	out := map[string][]string{}
	add := func(from, to string) {
		if to == "" || to == from {
			return
		}
		out[from] = append(out[from], to)
	}
	u.Each(func(rec *universe.ClassRecord) {
		cls := rec.Node
		add(cls.Name, cls.SuperName)
		for _, iface := range cls.Interfaces {
			add(cls.Name, iface)
		}
		for _, m := range cls.Methods {
			if m.Instructions == nil {
				continue
			}
			for _, it := range m.Instructions.Items {
				switch ins := it.(type) {
				case *ir.MethodInsn:
					add(cls.Name, ins.Owner)
				case *ir.FieldInsn:
					add(cls.Name, ins.Owner)
				case *ir.TypeInsn:
					add(cls.Name, elementType(ins.Type))
				case *ir.MultiANewArray:
					add(cls.Name, elementType(ins.Type))
				case *ir.Ldc:
					if ins.Value.Kind == ir.ConstType {
						add(cls.Name, elementType(ins.Value.S))
					}
				case *ir.InvokeDynamic:
					add(cls.Name, ins.Bootstrap.Owner)
					for _, arg := range ins.StaticArgs {
						if arg.Kind == ir.ConstType {
							add(cls.Name, elementType(arg.S))
						}
					}
				}
			}
		}
	})
	return out
}

// elementType strips array brackets/element-descriptor decoration from a
// TypeInsn/LDC class payload, returning the bare internal name.
func elementType(t string) string {
	for len(t) > 0 && t[0] == '[' {
		t = t[1:]
	}
	if len(t) > 0 && t[0] == 'L' && t[len(t)-1] == ';' {
		t = t[1 : len(t)-1]
	}
	return t
}
