package solver

import (
	"context"
	"testing"
	"time"

	cpmodel "github.com/google/or-tools/ortools/sat/go/cpmodel"
)

func TestSolve_TrivialModel(t *testing.T) {
	resp, err := Solve(context.Background(), Params{TimeLimit: 5 * time.Second}, func(cp *cpmodel.Builder) error {
		x := cp.NewIntVar(0, 10)
		y := cp.NewIntVar(0, 10)
		cp.AddLessOrEqual(x, y)
		cp.Minimize(x)
		return nil
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if resp.Raw == nil {
		t.Fatal("expected a raw solver response")
	}
}

func TestSolve_PropagatesBuildError(t *testing.T) {
	_, err := Solve(context.Background(), Params{}, func(cp *cpmodel.Builder) error {
		return context.DeadlineExceeded
	})
	if err == nil {
		t.Fatal("expected build error to propagate")
	}
}
