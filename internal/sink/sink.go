package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/gazetteer/internal/model"
)

// Record kinds, used in output names
const (
	KindIncorporations = "incorporations"
	KindNameChanges    = "namechanges"
)

// Batch is an ordered set of records for one bulletin or for a whole run
type Batch struct {
	// Key names the batch: "<year>/<stem>" for a bulletin,
	// "masterlist_<from>-<to>" for a run.
	Key            string
	Master         bool
	Incorporations []model.Incorporation
	NameChanges    []model.NameChange
}

// DocumentBatch builds the batch for one bulletin
func DocumentBatch(id model.DocumentID, incs []model.Incorporation, ncs []model.NameChange) Batch {
	return Batch{Key: id.String(), Incorporations: incs, NameChanges: ncs}
}

// MasterBatch builds the batch holding every record of a run
func MasterBatch(years model.YearRange, incs []model.Incorporation, ncs []model.NameChange) Batch {
	return Batch{
		Key:            fmt.Sprintf("masterlist_%d-%d", years.From, years.To),
		Master:         true,
		Incorporations: incs,
		NameChanges:    ncs,
	}
}

// FileName returns the relative output path for one record kind:
// "2006/18_Sep30_incorporations.csv" or "incorporations_masterlist_2006-2018.csv".
func (b Batch) FileName(kind, ext string) string {
	if b.Master {
		return kind + "_" + b.Key + ext
	}
	return filepath.FromSlash(b.Key + "_" + kind + ext)
}

// Sink serialises record batches
type Sink interface {
	Write(ctx context.Context, batch Batch) error
	Close() error
}

// Formats lists the accepted output formats
var Formats = []string{"csv", "json", "gob", "mongo", "amqp"}

// ValidateFormat checks an output format name
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if strings.EqualFold(f, format) {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q (supported: %s)", format, strings.Join(Formats, ", "))
}

// Open creates the sink named by cfg.Output.Format
func Open(ctx context.Context, cfg *model.Config) (Sink, error) {
	if err := ValidateFormat(cfg.Output.Format); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Output.Format) {
	case "json":
		return NewJSONSink(cfg.Output.Dir), nil
	case "gob":
		return NewGobSink(cfg.Output.Dir), nil
	case "mongo":
		return NewMongoSink(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case "amqp":
		return NewAMQPSink(cfg.AMQP.URI, cfg.AMQP.Queue)
	default:
		return NewCSVSink(cfg.Output.Dir), nil
	}
}
