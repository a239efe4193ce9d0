package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(context.Context, map[string]any) (string, error) {
	return m.text, m.err
}

var testVars = map[string]any{"topic": "dragons", "style": "comedy"}

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	if !inst.IsStatic() {
		t.Fatalf("expected static instruction")
	}
	got, err := inst.Resolve(context.Background(), testVars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "static instruction" {
		t.Fatalf("expected 'static instruction', got %q", got)
	}
}

func TestInstruction_StaticTemplate(t *testing.T) {
	inst := NewInstructionFromText("Write about {{topic}} in a {{.style}} style.")
	got, err := inst.Resolve(context.Background(), testVars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Write about dragons in a comedy style." {
		t.Fatalf("unexpected rendering %q", got)
	}

	if _, err := NewInstructionFromText("{{missing}}").Resolve(context.Background(), testVars); err == nil {
		t.Fatalf("expected error for missing variable")
	}
}

func TestInstruction_NewInstructionFromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(_ context.Context, vars map[string]any) (string, error) {
		return fmt.Sprintf("dynamic about %v", vars["topic"]), nil
	})
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	got, err := inst.Resolve(context.Background(), testVars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "dynamic about dragons" {
		t.Fatalf("expected 'dynamic about dragons', got %q", got)
	}
}

func TestInstruction_NewInstructionFromProvider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "provider text"})
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	got, err := inst.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "provider text" {
		t.Fatalf("expected 'provider text', got %q", got)
	}
}

func TestInstruction_Zero(t *testing.T) {
	var inst Instruction
	if !inst.IsZero() {
		t.Fatalf("expected zero instruction")
	}
	got, err := inst.Resolve(context.Background(), testVars)
	if err != nil || got != "" {
		t.Fatalf("expected empty instruction, got %q, %v", got, err)
	}
}

func TestInstruction_ErrorPropagation(t *testing.T) {
	expectedErr := errors.New("boom")
	inst := NewInstructionFromProvider(mockProvider{err: expectedErr})
	_, err := inst.Resolve(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error %v, got %v", expectedErr, err)
	}
}
