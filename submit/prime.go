// ABOUTME: Background priming of resolved resources, schema, and choice options
// ABOUTME: Results computed under a superseded session generation are discarded
package submit

import (
	"context"

	"github.com/iTRMAutomation/mlc-village-recon-tool/models"
	"github.com/iTRMAutomation/mlc-village-recon-tool/schema"
	"github.com/iTRMAutomation/mlc-village-recon-tool/session"
	"go.uber.org/zap"
)

// PrimeResult is delivered once by Prime.
type PrimeResult struct {
	Choices map[string][]string
	// Stale is set when the session was invalidated while priming ran.
	Stale bool
	Err   error
}

// Prime resolves resources and the schema in the background so the first submission and
// the choice pickers do not wait on them. The channel yields one result and is closed.
func (s *Service) Prime(ctx context.Context) <-chan PrimeResult {
	out := make(chan PrimeResult, 1)
	gen := s.cache.Generation()

	go func() {
		defer close(out)

		_, sch, err := s.load(ctx, gen, NewTrace(s.log, nil))
		if err != nil {
			s.log.Debug("priming failed", zap.Error(err))
			out <- PrimeResult{Err: err, Stale: s.cache.Generation() != gen}
			return
		}
		if s.cache.Generation() != gen {
			out <- PrimeResult{Stale: true}
			return
		}
		out <- PrimeResult{Choices: s.choices(sch)}
	}()

	return out
}

// Choices returns the configured options of the category and location columns, keyed by
// logical field name. Fields whose column is not a choice column are omitted.
func (s *Service) Choices(ctx context.Context) (map[string][]string, error) {
	_, sch, err := s.load(ctx, s.cache.Generation(), NewTrace(s.log, nil))
	if err != nil {
		return nil, err
	}
	return s.choices(sch), nil
}

func (s *Service) choices(sch *schema.Schema) map[string][]string {
	out := make(map[string][]string)
	for logical, candidates := range map[string][]string{
		models.FieldCategory: s.cfg.Fields.Category,
		models.FieldLocation: s.cfg.Fields.Location,
	} {
		name, ok := sch.Select(candidates, schema.SelectOptions{RequireWritable: true})
		if !ok {
			continue
		}
		col, _ := sch.Column(name)
		if col.Kind == schema.KindSingleChoice || col.Kind == schema.KindMultiChoice {
			out[logical] = append([]string(nil), col.Choices...)
		}
	}
	return out
}

// Describe returns the resolved resources and the discovered schema.
func (s *Service) Describe(ctx context.Context) (session.Resources, *schema.Schema, error) {
	return s.load(ctx, s.cache.Generation(), NewTrace(s.log, nil))
}
