package sandbox

import "fmt"

// defaultAllowlist returns the fixed table of native methods the sandbox
// will actually execute. Everything else that routes to a real JDK class
// stays a stub (spec.md §4.2: "never run arbitrary application logic").
// Entries here are either harmless standins for commonly-hit natives
// (time and property probes, arraycopy, method-handle lookups) or inert
// reroutes for calls that could otherwise touch the host (process exit and
// execution, reflective class loading) — those return an error instead of doing
// anything, so a decryptor that probes for a debugger or tries to shell
// out fails closed rather than escaping the sandbox.
func defaultAllowlist() map[string]NativeFunc {
	m := map[string]NativeFunc{}

	add := func(owner, name, descriptor string, fn NativeFunc) {
		m[nativeKey(owner, name, descriptor)] = fn
	}

	// java/lang/System: time and property probes obfuscators sometimes
	// gate decryption on. Returning fixed/empty values keeps control flow
	// deterministic instead of letting the run diverge by wall-clock time.
	add("java/lang/System", "currentTimeMillis", "()J", func(Value, []Value) (Value, error) {
		return int64(0), nil
	})
	add("java/lang/System", "nanoTime", "()J", func(Value, []Value) (Value, error) {
		return int64(0), nil
	})
	add("java/lang/System", "getProperty", "(Ljava/lang/String;)Ljava/lang/String;", func(Value, []Value) (Value, error) {
		return nil, nil
	})
	add("java/lang/System", "arraycopy", "(Ljava/lang/Object;ILjava/lang/Object;II)V", func(_ Value, args []Value) (Value, error) {
		if len(args) != 5 {
			return nil, fmt.Errorf("sandbox: arraycopy: expected 5 args, got %d", len(args))
		}
		src, ok1 := args[0].(*Array)
		dst, ok2 := args[2].(*Array)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("sandbox: arraycopy: non-array operand")
		}
		srcPos, dstPos, length := asInt32(args[1]), asInt32(args[3]), asInt32(args[4])
		copy(dst.Elems[dstPos:dstPos+length], src.Elems[srcPos:srcPos+length])
		return nil, nil
	})
	add("java/lang/System", "exit", "(I)V", func(Value, []Value) (Value, error) {
		return nil, fmt.Errorf("sandbox: System.exit blocked")
	})

	// java/lang/Runtime and java/lang/ProcessBuilder: never allowed to do
	// anything real. Any reference to these is a red flag the decryptor
	// is doing more than math; fail the call instead of shelling out.
	add("java/lang/Runtime", "exec", "(Ljava/lang/String;)Ljava/lang/Process;", denyProcess)
	add("java/lang/Runtime", "exec", "([Ljava/lang/String;)Ljava/lang/Process;", denyProcess)
	add("java/lang/ProcessBuilder", "start", "()Ljava/lang/Process;", denyProcess)

	// java/lang/Class: reflective lookups resolve against U through the
	// loader rather than the host JVM, so forName is wired to an entry that
	// fails the call with an error; the lookup is never executed.
	add("java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;", func(_ Value, args []Value) (Value, error) {
		return nil, fmt.Errorf("sandbox: Class.forName blocked, use the loader instead")
	})

	// java/lang/invoke/MethodHandles$Lookup + MethodType: ZKM's synthesized
	// bootstrap methods resolve their real target through these two APIs.
	// threadtear-go doesn't model java.lang.invoke's object graph (no
	// MethodHandle/MethodType instances) — that would mean building a
	// second, nested interpreter for reflection machinery nothing else in
	// this package needs. Instead these natives take the plain Class-name
	// string and descriptor string the bootstrap already has on its
	// operand stack and hand back a Handle value directly (internal/passes
	// /zkm.instructionFromHandle reads Owner/Name/Descriptor/Kind off it) — enough
	// for spec.md §4.5's "reveal the returned method handle's target
	// reference" without a full method-handle runtime behind it.
	add("java/lang/invoke/MethodHandles$Lookup", "findStatic",
		"(Ljava/lang/Class;Ljava/lang/String;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/MethodHandle;",
		findHandleNative(6))
	add("java/lang/invoke/MethodHandles$Lookup", "findVirtual",
		"(Ljava/lang/Class;Ljava/lang/String;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/MethodHandle;",
		findHandleNative(5))
	add("java/lang/invoke/MethodHandles$Lookup", "findStaticGetter",
		"(Ljava/lang/Class;Ljava/lang/String;Ljava/lang/Class;)Ljava/lang/invoke/MethodHandle;",
		findHandleNative(2))
	add("java/lang/invoke/MethodHandles$Lookup", "findGetter",
		"(Ljava/lang/Class;Ljava/lang/String;Ljava/lang/Class;)Ljava/lang/invoke/MethodHandle;",
		findHandleNative(1))
	// MethodType.methodType: assembles a descriptor string from its return
	// and parameter type arguments. Under the same simplification as above,
	// a "Class" value here is already the type's field-descriptor text
	// ("J", "Ljava/lang/String;", ...) rather than a real Class instance —
	// consistent with how a hand-authored ZKM-style bootstrap pushes these
	// as plain constants rather than through Class.forName/TYPE fields,
	// neither of which this sandbox executes.
	add("java/lang/invoke/MethodType", "methodType",
		"(Ljava/lang/Class;[Ljava/lang/Class;)Ljava/lang/invoke/MethodType;",
		func(_ Value, args []Value) (Value, error) {
			if len(args) == 0 {
				return "()V", nil
			}
			ret, _ := args[0].(string)
			params := ""
			if len(args) > 1 {
				if arr, ok := args[1].(*Array); ok {
					for _, e := range arr.Elems {
						s, _ := e.(string)
						params += s
					}
				}
			}
			return "(" + params + ")" + ret, nil
		})

	return m
}

// Handle is the synthetic java.lang.invoke.MethodHandle standin described
// above: just enough fields for internal/passes/zkm to synthesize a direct
// reference instruction from it.
type Handle struct {
	Kind       int
	Owner      string
	Name       string
	Descriptor string
}

func findHandleNative(kind int) NativeFunc {
	return func(_ Value, args []Value) (Value, error) {
		if len(args) < 3 {
			return nil, fmt.Errorf("sandbox: findHandle: expected at least 3 args, got %d", len(args))
		}
		owner, _ := args[0].(string)
		name, _ := args[1].(string)
		descriptor, _ := args[2].(string)
		return &Handle{Kind: kind, Owner: owner, Name: name, Descriptor: descriptor}, nil
	}
}

func denyProcess(Value, []Value) (Value, error) {
	return nil, fmt.Errorf("sandbox: process execution blocked")
}
