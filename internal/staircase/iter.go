package staircase

import (
	"errors"
	"iter"
)

// All returns the staircase as a finite, non-restartable sequence of values.
// The loop body must Report an outcome before the next iteration:
//
//	for v, err := range sc.All() {
//		if err != nil {
//			return err
//		}
//		correct := present(v)
//		sc.ReportCorrect(correct)
//	}
//
// The sequence ends when the staircase finishes. A sequencing violation is
// yielded once as (0, err) and ends the sequence.
func (s *Staircase) All() iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		for {
			v, err := s.Next()
			if errors.Is(err, ErrFinished) {
				return
			}
			if err != nil {
				yield(0, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}
