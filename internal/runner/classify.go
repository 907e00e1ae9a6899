package runner

import (
	"context"
	"errors"

	"github.com/piki9312/evalgate/internal/agent"
	"github.com/piki9312/evalgate/internal/domain"
	"github.com/piki9312/evalgate/internal/schema"
)

// classify maps one invocation outcome to a failure type, or nil for a
// pass. Rules, in order:
//
//   - deadline exceeded               -> timeout
//   - any other invoker failure       -> provider_error
//   - expectation check               -> bad_json | schema_mismatch | quality_fail
//   - otherwise                       -> pass
func classify(itemCtx context.Context, exp *schema.Expectation, outcome agent.Outcome) *domain.FailureType {
	if outcome.Err != nil {
		if errors.Is(outcome.Err, context.DeadlineExceeded) ||
			errors.Is(itemCtx.Err(), context.DeadlineExceeded) {
			return domain.FailureTypePtr(domain.FailureTimeout)
		}
		return domain.FailureTypePtr(domain.FailureProviderError)
	}
	return exp.Check(outcome.Text, outcome.JSON)
}
