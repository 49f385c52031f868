package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/tempora/internal/model"
)

// MockAnswerer implements Answerer interface
type MockAnswerer struct {
	ShouldError bool
}

func (m *MockAnswerer) Answer(ctx context.Context, in *model.Instance) (*model.Instance, error) {
	time.Sleep(time.Duration(len(in.Question)%7) * time.Millisecond) // Simulate work
	if m.ShouldError {
		return nil, errors.New("answer error")
	}
	out := *in
	out.RankedAnswers = []model.RankedAnswer{{Answer: model.KBItem{ID: "Q1", Label: in.Question}, Rank: 1, Score: 1}}
	return &out, nil
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessInstances(t *testing.T) {
	processor := NewBatchProcessor(&MockAnswerer{}, 2)

	instances := []*model.Instance{
		{Question: "who was president of the US in 1999"},
		{Question: "first wife of Trump"},
		{Question: "when did WW2 end"},
	}

	results := processor.ProcessInstances(context.Background(), instances)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Question, res.Error)
			continue
		}
		if res.Question != instances[i].Question {
			t.Errorf("result %d is for %q, want %q", i, res.Question, instances[i].Question)
		}
		if res.Instance == nil || len(res.Instance.RankedAnswers) != 1 {
			t.Errorf("expected ranked answers for %q", res.Question)
		}
		if instances[i].ID == "" {
			t.Errorf("expected an id to be assigned to instance %d", i)
		}
	}
}

func TestBatchProcessor_ProcessInstances_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockAnswerer{ShouldError: true}, 2)

	results := processor.ProcessInstances(context.Background(), []*model.Instance{{Question: "q"}})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Instance != nil {
		t.Error("expected nil instance on error")
	}
}

func TestBatchProcessor_ProcessInstances_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockAnswerer{}, 2)

	results := processor.ProcessInstances(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestNewBatchProcessor_DefaultConcurrency(t *testing.T) {
	processor := NewBatchProcessor(&MockAnswerer{}, 0)
	if processor.concurrency != DefaultWorkers {
		t.Errorf("expected %d workers, got %d", DefaultWorkers, processor.concurrency)
	}
}

func TestReadInstancesFromFile(t *testing.T) {
	content := `who won the 2010 world cup
# comment
{"id": "q7", "question": "first wife of Trump", "reference_time": "2020-01-01"}

when did WW2 end   `

	instances, err := ReadInstancesFromFile(writeTemp(t, content))
	if err != nil {
		t.Fatalf("ReadInstancesFromFile failed: %v", err)
	}

	expected := []string{"who won the 2010 world cup", "first wife of Trump", "when did WW2 end"}
	if len(instances) != len(expected) {
		t.Fatalf("expected %d questions, got %d", len(expected), len(instances))
	}
	for i, in := range instances {
		if in.Question != expected[i] {
			t.Errorf("expected question %q at index %d, got %q", expected[i], i, in.Question)
		}
	}
	if instances[1].ID != "q7" || instances[1].ReferenceTime != "2020-01-01" {
		t.Errorf("json line not decoded: %+v", instances[1])
	}
}

func TestReadInstancesFromFile_BadJSON(t *testing.T) {
	_, err := ReadInstancesFromFile(writeTemp(t, `{"question": `))
	if err == nil {
		t.Error("expected error for malformed json line, got nil")
	}
}

func TestReadInstancesFromFile_NonExistent(t *testing.T) {
	_, err := ReadInstancesFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestQuestionResult_GetError(t *testing.T) {
	r1 := &QuestionResult{Question: "q"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("answer failed")
	r2 := &QuestionResult{Question: "q", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "q one\nq two\n# comment\n\nq three\n")

	processor := NewBatchProcessor(&MockAnswerer{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockAnswerer{}, 2)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestReadInstancesFromFile_Deduplication(t *testing.T) {
	instances, err := ReadInstancesFromFile(writeTemp(t, "when did WW2 end\nwhen did WW2 end"))
	if err != nil {
		t.Fatalf("ReadInstancesFromFile failed: %v", err)
	}

	if len(instances) != 1 {
		t.Errorf("expected 1 question after deduplication, got %d", len(instances))
	}
}
