package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/ppiankov/tempora/internal/model"
)

// Answerer defines the interface for answering a single question
type Answerer interface {
	Answer(ctx context.Context, instance *model.Instance) (*model.Instance, error)
}

// QuestionJob represents one question to answer
type QuestionJob struct {
	Instance *model.Instance
	Answerer Answerer
}

// Execute executes the question job
func (j *QuestionJob) Execute(ctx context.Context) Result {
	answered, err := j.Answerer.Answer(ctx, j.Instance)
	if err != nil {
		return &QuestionResult{Question: j.Instance.Question, Error: err}
	}
	return &QuestionResult{Question: j.Instance.Question, Instance: answered}
}

// QuestionResult represents the result of a question job
type QuestionResult struct {
	Question string
	Instance *model.Instance
	Error    error
}

// GetError returns the error from the question result
func (r *QuestionResult) GetError() error {
	return r.Error
}

// BatchProcessor answers multiple questions concurrently
type BatchProcessor struct {
	answerer    Answerer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(answerer Answerer, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = DefaultWorkers
	}
	return &BatchProcessor{
		answerer:    answerer,
		concurrency: concurrency,
	}
}

// ProcessInstances answers every instance; results line up with the input
func (b *BatchProcessor) ProcessInstances(ctx context.Context, instances []*model.Instance) []*QuestionResult {
	if len(instances) == 0 {
		return []*QuestionResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, in := range instances {
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		pool.Submit(&QuestionJob{Instance: in, Answerer: b.answerer})
	}

	results := pool.Wait()

	out := make([]*QuestionResult, len(results))
	for i, result := range results {
		if result == nil {
			out[i] = &QuestionResult{Question: instances[i].Question, Error: ctx.Err()}
			continue
		}
		out[i] = result.(*QuestionResult)
	}

	return out
}

// ProcessFile reads questions from a file and answers them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*QuestionResult, error) {
	instances, err := ReadInstancesFromFile(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "read questions")
	}

	return b.ProcessInstances(ctx, instances), nil
}

// ReadInstancesFromFile reads questions from a file, one per line. A line is
// either a JSON instance object or a plain question text.
func ReadInstancesFromFile(filePath string) ([]*model.Instance, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "open file")
	}
	defer func() { _ = file.Close() }()

	var instances []*model.Instance
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		in := &model.Instance{Question: line}
		if strings.HasPrefix(line, "{") {
			in = &model.Instance{}
			if err := json.Unmarshal([]byte(line), in); err != nil {
				return nil, eris.Wrapf(err, "parse line %d", lineNo)
			}
		}
		if strings.TrimSpace(in.Question) == "" {
			continue
		}

		key := in.ID + "|" + in.Question
		if !seen[key] {
			seen[key] = true
			instances = append(instances, in)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "scan file")
	}

	return instances, nil
}
