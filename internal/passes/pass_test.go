package passes

import (
	"errors"
	"testing"

	"threadtear/internal/diag"
	"threadtear/internal/universe"
)

type fakePass struct {
	id      string
	changed bool
	err     error
	panics  bool
}

func (f fakePass) Metadata() Meta { return Meta{ID: f.id, Category: CategoryCleaning} }
func (f fakePass) Execute(*universe.U, diag.Options) (bool, error) {
	if f.panics {
		panic("boom")
	}
	return f.changed, f.err
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePass{id: "a"})
	r.Register(fakePass{id: "b"})
	r.Register(fakePass{id: "a", changed: true}) // re-register keeps position

	ids := []string{}
	for _, p := range r.List() {
		ids = append(ids, p.Metadata().ID)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("List() = %v, want [a b] with original order preserved", ids)
	}
	if !r.Get("a").(fakePass).changed {
		t.Error("re-registering should overwrite the stored pass")
	}
	if r.Get("missing") != nil {
		t.Error("Get for an unregistered ID should return nil")
	}
}

func TestRunPipelineBestEffortContinuesPastFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePass{id: "fails", err: errors.New("boom")})
	r.Register(fakePass{id: "ok", changed: true})

	rep := RunPipeline(r, universe.New(), []string{"fails", "ok"}, diag.Options{}, nil)
	if len(rep.Passes) != 2 {
		t.Fatalf("expected 2 pass reports, got %d", len(rep.Passes))
	}
	if rep.Passes[0].Err == "" {
		t.Error("first pass should have recorded an error")
	}
	if !rep.Passes[1].Changed {
		t.Error("second pass should still have run and reported a change")
	}
	if !rep.AnyChanged() {
		t.Error("AnyChanged should be true")
	}
}

func TestRunPipelineStrictModeStopsOnFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePass{id: "fails", err: errors.New("boom")})
	r.Register(fakePass{id: "never-runs", changed: true})

	rep := RunPipeline(r, universe.New(), []string{"fails", "never-runs"}, diag.Options{Mode: diag.ModeStrict}, nil)
	if len(rep.Passes) != 1 {
		t.Fatalf("strict mode should stop after the first failure, got %d reports", len(rep.Passes))
	}
}

func TestRunPipelineUnknownPassID(t *testing.T) {
	r := NewRegistry()
	rep := RunPipeline(r, universe.New(), []string{"ghost"}, diag.Options{}, nil)
	if len(rep.Passes) != 1 || rep.Passes[0].Err != "unknown pass" {
		t.Fatalf("got %+v", rep.Passes)
	}
}

func TestRunPipelineRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePass{id: "crashes", panics: true})
	rep := RunPipeline(r, universe.New(), []string{"crashes"}, diag.Options{}, nil)
	if len(rep.Passes) != 1 || rep.Passes[0].Err == "" {
		t.Fatalf("expected a recovered panic reported as an error, got %+v", rep.Passes)
	}
}

type cancelNow struct{}

func (cancelNow) Cancelled() bool { return true }

func TestRunPipelineCancelledBeforeRun(t *testing.T) {
	r := NewRegistry()
	r.Register(fakePass{id: "never-runs", changed: true})
	rep := RunPipeline(r, universe.New(), []string{"never-runs"}, diag.Options{}, cancelNow{})
	if len(rep.Passes) != 1 || rep.Passes[0].Err != "cancelled before run" {
		t.Fatalf("got %+v", rep.Passes)
	}
}

func TestMetaHasTag(t *testing.T) {
	m := Meta{Tags: []Tag{TagShrink, TagBetterDecompile}}
	if !m.HasTag(TagShrink) {
		t.Error("HasTag(TagShrink) should be true")
	}
	if m.HasTag(TagPossiblyMalicious) {
		t.Error("HasTag(TagPossiblyMalicious) should be false")
	}
}
