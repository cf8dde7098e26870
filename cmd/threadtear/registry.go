package main

import (
	"threadtear/internal/passes"
	"threadtear/internal/passes/clean"
	"threadtear/internal/passes/zkm"
)

// buildRegistry registers every pass this build ships, in the fixed order
// spec.md §4.1 implies a default pipeline runs them: cleaning passes that
// shrink and simplify first, then the vendor-specific decryptors that
// benefit from a smaller, already-simplified universe.
func buildRegistry() *passes.Registry {
	r := passes.NewRegistry()
	r.Register(clean.TrivialMethodInliner{})
	r.Register(clean.ConstantFieldInliner{})
	r.Register(clean.UnusedClassRemover{})
	r.Register(clean.BitwiseSimplifier{})
	r.Register(clean.StripDebugAttributes{})
	r.Register(clean.RemoveNopBlocks{})
	r.Register(clean.FakeTryCatchRemover{})
	r.Register(zkm.ReferenceDecryptor{})
	r.Register(zkm.StringDecryptor{})
	return r
}
