package extensions

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	pipeline "github.com/ambient-fn/pipeline-go"
)

func TestLoggingExtension(t *testing.T) {
	var buf strings.Builder
	ext := NewLoggingExtension(NewHumanHandler(&buf, slog.LevelInfo))

	p := pipeline.NewPipeline[int, int](
		pipeline.WithName("logged"),
		pipeline.WithExtension(ext),
	)
	p.Use(func(s *pipeline.Scope, in int, next pipeline.Next[int, int]) (int, error) {
		return in * 2, nil
	})

	out, err := p.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != 4 {
		t.Errorf("expected 4, got %d", out)
	}

	logged := buf.String()
	if !strings.Contains(logged, "run starting") || !strings.Contains(logged, "run completed") {
		t.Errorf("expected lifecycle log lines, got:\n%s", logged)
	}
	if !strings.Contains(logged, "logged") {
		t.Errorf("expected pipeline name in log output, got:\n%s", logged)
	}
}

func TestLoggingExtensionFailure(t *testing.T) {
	var buf strings.Builder
	ext := NewLoggingExtension(NewHumanHandler(&buf, slog.LevelInfo))

	p := pipeline.NewPipeline[int, int](pipeline.WithExtension(ext))
	p.Use(func(s *pipeline.Scope, in int, next pipeline.Next[int, int]) (int, error) {
		return 0, errors.New("nope")
	})

	if _, err := p.Run(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}

	if !strings.Contains(buf.String(), "run failed") {
		t.Errorf("expected failure log line, got:\n%s", buf.String())
	}
}

func TestSilentHandlerDiscards(t *testing.T) {
	ext := NewLoggingExtension(NewSilentHandler())

	p := pipeline.NewPipeline[int, int](pipeline.WithExtension(ext))
	p.Use(func(s *pipeline.Scope, in int, next pipeline.Next[int, int]) (int, error) {
		return in, nil
	})

	if _, err := p.Run(context.Background(), 1); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRenderRunTree(t *testing.T) {
	sub := pipeline.NewPipeline[int, int](pipeline.WithName("inner"))
	sub.Use(func(s *pipeline.Scope, in int, next pipeline.Next[int, int]) (int, error) {
		return in, nil
	})

	p := pipeline.NewPipeline[int, int](pipeline.WithName("renderable"))
	p.Use(func(s *pipeline.Scope, in int, next pipeline.Next[int, int]) (int, error) {
		return pipeline.Invoke(s, sub)(in)
	})

	if _, err := p.Run(context.Background(), 1); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	rendering := RenderRunTree(p.Tree())
	if !strings.Contains(rendering, "renderable") {
		t.Errorf("expected pipeline name in rendering, got:\n%s", rendering)
	}
	if !strings.Contains(rendering, "success") {
		t.Errorf("expected status in rendering, got:\n%s", rendering)
	}
}

func TestRenderEmptyRunTree(t *testing.T) {
	p := pipeline.NewPipeline[int, int]()
	if got := RenderRunTree(p.Tree()); got != "(no recorded runs)" {
		t.Errorf("unexpected rendering for empty tree: %q", got)
	}
}

func TestRunTreeDebugExtensionLogsOnFailure(t *testing.T) {
	var buf strings.Builder

	p := pipeline.NewPipeline[int, int](pipeline.WithName("debugged"))
	if err := p.UseExtension(NewRunTreeDebugExtension(p.Tree(), NewHumanHandler(&buf, slog.LevelError))); err != nil {
		t.Fatalf("UseExtension failed: %v", err)
	}

	p.Use(func(s *pipeline.Scope, in int, next pipeline.Next[int, int]) (int, error) {
		return 0, errors.New("bad input")
	})

	if _, err := p.Run(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}

	logged := buf.String()
	if !strings.Contains(logged, "RunTreeDebug") {
		t.Errorf("expected run tree banner, got:\n%s", logged)
	}
	if !strings.Contains(logged, "debugged") {
		t.Errorf("expected pipeline name, got:\n%s", logged)
	}
	if !strings.Contains(logged, "failed") {
		t.Errorf("expected failed status in rendering, got:\n%s", logged)
	}
}
