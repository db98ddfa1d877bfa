package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordingExtension struct {
	BaseExtension
	order  int
	events *[]string
	label  string

	startErr error
	endErr   error
}

func (e *recordingExtension) Order() int {
	return e.order
}

func (e *recordingExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	*e.events = append(*e.events, e.label+"-before")
	result, err := next()
	*e.events = append(*e.events, e.label+"-after")
	return result, err
}

func (e *recordingExtension) OnRunStart(s *Scope, input any) error {
	*e.events = append(*e.events, e.label+"-start")
	return e.startErr
}

func (e *recordingExtension) OnRunEnd(s *Scope, result any, err error) error {
	*e.events = append(*e.events, e.label+"-end")
	return e.endErr
}

func (e *recordingExtension) OnPanic(s *Scope, recovered any, stack []byte) error {
	*e.events = append(*e.events, e.label+"-panic")
	return nil
}

func TestExtensionWrapOrder(t *testing.T) {
	var events []string

	a := &recordingExtension{BaseExtension: NewBaseExtension("a"), order: 10, label: "a", events: &events}
	b := &recordingExtension{BaseExtension: NewBaseExtension("b"), order: 20, label: "b", events: &events}

	// Registered out of order; Order sorts them.
	p := NewPipeline[int, int](WithExtension(b), WithExtension(a))
	p.Use(func(s *Scope, in int, next Next[int, int]) (int, error) {
		events = append(events, "chain")
		return in, nil
	})

	if _, err := p.Run(context.Background(), 1); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expected := "a-start,b-start,a-before,b-before,chain,b-after,a-after,b-end,a-end"
	if got := strings.Join(events, ","); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestExtensionStartErrorAbortsRun(t *testing.T) {
	var events []string
	abort := errors.New("not allowed")

	ext := &recordingExtension{BaseExtension: NewBaseExtension("gate"), label: "gate", events: &events, startErr: abort}

	ran := false
	p := NewPipeline[int, int](WithExtension(ext))
	p.Use(func(s *Scope, in int, next Next[int, int]) (int, error) {
		ran = true
		return in, nil
	})

	_, err := p.Run(context.Background(), 1)
	if !errors.Is(err, abort) {
		t.Fatalf("expected abort error, got %v", err)
	}
	if ran {
		t.Error("chain must not run after OnRunStart error")
	}

	roots := p.Tree().GetRoots()
	if len(roots) != 1 || roots[0].Status != RunStatusFailed {
		t.Error("aborted run must be recorded as failed")
	}
}

func TestExtensionEndErrorReplacesNil(t *testing.T) {
	var events []string
	late := errors.New("late veto")

	ext := &recordingExtension{BaseExtension: NewBaseExtension("late"), label: "late", events: &events, endErr: late}

	p := NewPipeline[int, int](WithExtension(ext))
	p.Use(func(s *Scope, in int, next Next[int, int]) (int, error) {
		return in, nil
	})

	_, err := p.Run(context.Background(), 1)
	if !errors.Is(err, late) {
		t.Fatalf("expected late veto, got %v", err)
	}
}

func TestExtensionOnPanic(t *testing.T) {
	var events []string

	ext := &recordingExtension{BaseExtension: NewBaseExtension("watch"), label: "watch", events: &events}

	p := NewPipeline[int, int](WithExtension(ext))
	p.Use(func(s *Scope, in int, next Next[int, int]) (int, error) {
		panic("observed")
	})

	_, err := p.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error from panic")
	}

	found := false
	for _, event := range events {
		if event == "watch-panic" {
			found = true
		}
	}
	if !found {
		t.Error("expected OnPanic hook to fire")
	}
}

func TestUseExtensionAfterConstruction(t *testing.T) {
	var events []string
	ext := &recordingExtension{BaseExtension: NewBaseExtension("post"), label: "post", events: &events}

	p := NewPipeline[int, int]()
	if err := p.UseExtension(ext); err != nil {
		t.Fatalf("UseExtension failed: %v", err)
	}

	p.Use(func(s *Scope, in int, next Next[int, int]) (int, error) {
		return in, nil
	})

	if _, err := p.Run(context.Background(), 1); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(events) == 0 {
		t.Error("expected extension events after post-construction registration")
	}
}
