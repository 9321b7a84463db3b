package finder

import (
	"errors"
	"iter"
	"sync/atomic"

	"github.com/roach88/shapeq/internal/entity"
)

// ErrConsumed is yielded when Results are iterated a second time.
var ErrConsumed = errors.New("results already consumed")

// Match is one result. Entity is nil when the source returns identities
// and has no Loader.
type Match struct {
	Identity string
	Entity   entity.Entity
}

// Results is a lazy, single-pass result sequence. Run Execute again for a
// fresh pass.
type Results struct {
	backend string
	seq     iter.Seq2[Match, error]
	used    atomic.Bool
}

// Backend names the source the results come from.
func (r *Results) Backend() string { return r.backend }

// All yields matches in query order. Iteration stops after the first
// error.
func (r *Results) All() iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		if !r.used.CompareAndSwap(false, true) {
			yield(Match{}, ErrConsumed)
			return
		}
		r.seq(yield)
	}
}

// Collect drains the results.
func (r *Results) Collect() ([]Match, error) {
	var out []Match
	for m, err := range r.All() {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Identities drains the results and returns the matched identities.
func (r *Results) Identities() ([]string, error) {
	ms, err := r.Collect()
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.Identity
	}
	return ids, err
}
