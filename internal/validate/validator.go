package validate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ppiankov/gazetteer/internal/extract"
	"github.com/ppiankov/gazetteer/internal/model"
)

// minDocumentBytes is smaller than any real registrar bulletin
const minDocumentBytes = 200

// DocumentSource reads cached bulletins
type DocumentSource interface {
	ReadDocument(id model.DocumentID) (string, error)
}

// Result is the verdict for one cached bulletin
type Result struct {
	ID       model.DocumentID
	Bytes    int
	Valid    bool
	Problems []string
	// Warnings do not invalidate a bulletin
	Warnings []string
}

// Validator checks cached bulletins concurrently for signs of a bad
// download such as error pages or truncated bodies
type Validator struct {
	source     DocumentSource
	maxWorkers int
}

// NewValidator creates a new validator
func NewValidator(source DocumentSource, maxWorkers int) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &Validator{source: source, maxWorkers: maxWorkers}
}

// Validate checks every id and returns results in input order
func (v *Validator) Validate(ctx context.Context, ids []model.DocumentID) []Result {
	results := make([]Result, len(ids))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, v.maxWorkers)

	for i, id := range ids {
		wg.Add(1)
		go func(idx int, id model.DocumentID) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = Result{ID: id, Problems: []string{"context cancelled"}}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = v.validateSingle(id)
		}(i, id)
	}

	wg.Wait()

	return results
}

// validateSingle checks one bulletin
func (v *Validator) validateSingle(id model.DocumentID) Result {
	result := Result{ID: id}

	text, err := v.source.ReadDocument(id)
	if err != nil {
		result.Problems = append(result.Problems, fmt.Sprintf("read: %v", err))
		return result
	}
	result.Bytes = len(text)

	result.Problems, result.Warnings = Inspect(text)
	result.Valid = len(result.Problems) == 0
	return result
}

// Inspect lists what is wrong with a bulletin's text. Problems mean a bad
// download. A bulletin without record sections is legitimate and only warned
// about.
func Inspect(text string) (problems, warnings []string) {

	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minDocumentBytes {
		problems = append(problems, fmt.Sprintf("only %d bytes", len(trimmed)))
	}

	head := strings.ToLower(trimmed)
	if len(head) > 512 {
		head = head[:512]
	}
	if strings.HasPrefix(head, "<!doctype") || strings.Contains(head, "<html") {
		problems = append(problems, "looks like an HTML page, not a text bulletin")
	}

	if !strings.Contains(text, extract.RegistrationsHeader) && !strings.Contains(text, extract.NameChangesHeader) {
		warnings = append(warnings, fmt.Sprintf("neither %q nor %q header present", extract.RegistrationsHeader, extract.NameChangesHeader))
	}

	return problems, warnings
}
