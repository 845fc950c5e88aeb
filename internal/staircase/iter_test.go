package staircase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllYieldsUntilFinished(t *testing.T) {
	s := mustNew(t, Config{NUp: 3, NDown: 1, MaxReversals: 2, StartValue: 10, Step: 1})
	outcomes := []bool{true, true, true, false, true, true, true}

	var got []float64
	i := 0
	for v, err := range s.All() {
		require.NoError(t, err)
		got = append(got, v)
		require.NoError(t, s.ReportCorrect(outcomes[i]))
		i++
	}

	assert.Equal(t, []float64{10, 10, 10, 11, 10, 10, 10}, got)
	assert.True(t, s.Finished())

	// Not restartable.
	for range s.All() {
		t.Fatal("finished staircase yielded a value")
	}
}

func TestAllStopsOnMissingReport(t *testing.T) {
	s := mustNew(t, DefaultConfig())

	var errs []error
	n := 0
	for _, err := range s.All() {
		n++
		if err != nil {
			errs = append(errs, err)
		}
	}

	assert.Equal(t, 2, n)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrSequencing)
}

func TestAllBreakKeepsPendingValue(t *testing.T) {
	s := mustNew(t, DefaultConfig())
	for range s.All() {
		break
	}
	assert.True(t, s.State().AwaitingFeedback)
	require.NoError(t, s.ReportCorrect(false))
	assert.Equal(t, 9.0, s.State().Value)
}
