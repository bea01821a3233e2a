package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"valdsync/internal/pipeline"
)

type fakeRunner struct {
	err   error
	calls int
}

func (r *fakeRunner) Run(context.Context) (pipeline.Summary, error) {
	r.calls++
	return pipeline.Summary{}, r.err
}

func newFakeApp(runners map[string]runner, order []string) *App {
	return &App{logger: zap.NewNop(), runners: runners, order: order}
}

func TestRunAll_FailureDoesNotStopSiblings(t *testing.T) {
	cmj := &fakeRunner{}
	imtp := &fakeRunner{err: errors.New("warehouse unavailable")}
	ppu := &fakeRunner{}
	a := newFakeApp(map[string]runner{"cmj": cmj, "imtp": imtp, "ppu": ppu},
		[]string{"cmj", "imtp", "ppu"})

	err := a.RunAll(context.Background())
	if err == nil {
		t.Fatal("RunAll must report the imtp failure")
	}
	if !strings.Contains(err.Error(), "imtp") {
		t.Errorf("error does not name the failed processor: %v", err)
	}
	if cmj.calls != 1 || ppu.calls != 1 {
		t.Errorf("siblings must still run: cmj=%d ppu=%d", cmj.calls, ppu.calls)
	}
}

func TestRunAll_AllHealthy(t *testing.T) {
	cmj := &fakeRunner{}
	hj := &fakeRunner{}
	a := newFakeApp(map[string]runner{"cmj": cmj, "hj": hj}, []string{"cmj", "hj"})

	if err := a.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if cmj.calls != 1 || hj.calls != 1 {
		t.Errorf("calls: cmj=%d hj=%d", cmj.calls, hj.calls)
	}
}

func TestRunAll_CancelledContextStops(t *testing.T) {
	cmj := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newFakeApp(map[string]runner{"cmj": cmj}, []string{"cmj"})
	err := a.RunAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err: got %v, want context.Canceled", err)
	}
	if cmj.calls != 0 {
		t.Errorf("no processor should run after cancellation, got %d calls", cmj.calls)
	}
}

func TestRunOne_UnknownProcessor(t *testing.T) {
	a := newFakeApp(map[string]runner{"cmj": &fakeRunner{}}, []string{"cmj"})
	err := a.RunOne(context.Background(), "sprint")
	if err == nil || !strings.Contains(err.Error(), "sprint") {
		t.Errorf("err: got %v", err)
	}
}

func TestProcessorOrderIsStable(t *testing.T) {
	want := []string{"cmj", "hj", "imtp", "ppu", "composite"}
	if len(processors) != len(want) {
		t.Fatalf("processors: got %d, want %d", len(processors), len(want))
	}
	for i, proc := range processors {
		if proc.Name() != want[i] {
			t.Errorf("processor %d: got %s, want %s", i, proc.Name(), want[i])
		}
	}
}
