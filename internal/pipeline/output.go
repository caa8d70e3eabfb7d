package pipeline

import (
	"context"
	"fmt"

	"github.com/ppiankov/gazetteer/internal/sink"
)

// Write sends the run's records to s: one batch per parsed bulletin when
// perDocument is set, then the master batch covering the whole year range.
func (r *Result) Write(ctx context.Context, s sink.Sink, perDocument bool) error {
	if perDocument {
		for _, doc := range r.Documents {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.Write(ctx, sink.DocumentBatch(doc.ID, doc.Incorporations, doc.NameChanges)); err != nil {
				return fmt.Errorf("write %s: %w", doc.ID, err)
			}
		}
	}

	if err := s.Write(ctx, sink.MasterBatch(r.Years, r.Incorporations, r.NameChanges)); err != nil {
		return fmt.Errorf("write master list: %w", err)
	}
	return nil
}
