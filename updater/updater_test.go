package updater

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder logs the entry sequence it is driven with.
type recorder struct {
	calls    []string
	substeps []float32
	alpha    float32
	failOn   int // BeginStep call that fails, 1-based; 0 never fails
	begins   int
	failSub  int // Substep call that fails, 1-based; 0 never fails
	subs     int
	stepping bool
}

func (r *recorder) BeginStep(float32) error {
	r.begins++
	if r.begins == r.failOn {
		return errors.New("boom")
	}
	if r.stepping {
		return errors.New("already stepping")
	}
	r.stepping = true
	r.calls = append(r.calls, "begin")
	return nil
}

func (r *recorder) Substep(_, dt float32, _ int) error {
	r.subs++
	if r.subs == r.failSub {
		return errors.New("substep failed")
	}
	r.calls = append(r.calls, "sub")
	r.substeps = append(r.substeps, dt)
	return nil
}

func (r *recorder) EndStep(float32) error {
	r.stepping = false
	r.calls = append(r.calls, "end")
	return nil
}

func (r *recorder) AbortStep() {
	r.stepping = false
	r.calls = append(r.calls, "abort")
}

func (r *recorder) Interpolate(stepTime, acc float32) error {
	r.calls = append(r.calls, "interp")
	r.alpha = acc / stepTime
	return nil
}

func TestNewFixedValidates(t *testing.T) {
	_, err := NewFixed(0, 4, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	_, err = NewFixed(0.1, 0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	_, err = NewLate(1, 1, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestFixedSequence(t *testing.T) {
	r := &recorder{}
	f, err := NewFixed(0.1, 2, 0, nil, r)
	require.NoError(t, err)

	assert.Equal(t, 0, f.Update(0.05))
	assert.Equal(t, []string{"interp"}, r.calls)
	assert.InDelta(t, 0.5, r.alpha, 1e-5)

	r.calls = nil
	assert.Equal(t, 1, f.Update(0.075))
	assert.Equal(t, []string{"begin", "sub", "sub", "end", "interp"}, r.calls)
	assert.InDelta(t, 0.05, r.substeps[0], 1e-6)
	assert.InDelta(t, 0.25, f.Alpha(), 1e-4)
}

func TestFixedStepCounts(t *testing.T) {
	tests := []struct {
		name     string
		frames   []float32
		maxSteps int
		want     int64
	}{
		{"exact", []float32{0.1, 0.1, 0.1}, 0, 3},
		{"accumulates", []float32{0.04, 0.04, 0.04}, 0, 1},
		{"catch up", []float32{0.35}, 0, 3},
		{"limited", []float32{1}, 2, 2},
		{"ignores invalid", []float32{-1, 0, 0.1}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFixed(0.1, 1, tt.maxSteps, nil, &recorder{})
			require.NoError(t, err)
			for _, ft := range tt.frames {
				f.Update(ft)
			}
			assert.Equal(t, tt.want, f.Steps())
		})
	}
}

func TestFixedDropsBacklog(t *testing.T) {
	f, err := NewFixed(0.1, 1, 2, nil, &recorder{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Update(1))
	assert.InDelta(t, 1, f.Alpha(), 1e-5)
	assert.InDelta(t, 0.7, f.Dropped(), 1e-4)
	// The clamped remainder is one step, taken on the next frame.
	assert.Equal(t, 1, f.Update(0))
}

func TestFixedSkipsFailingSolver(t *testing.T) {
	bad := &recorder{failOn: 1}
	good := &recorder{}
	f, err := NewFixed(0.1, 1, 0, nil, bad, good)
	require.NoError(t, err)

	assert.Equal(t, 2, f.Update(0.2))
	assert.Equal(t, int64(1), f.Skipped())
	assert.Equal(t, []string{"begin", "sub", "end", "interp"}, bad.calls)
	assert.Equal(t, []string{"begin", "sub", "end", "begin", "sub", "end", "interp"}, good.calls)
}

func TestLateSmoothing(t *testing.T) {
	r := &recorder{}
	l, err := NewLate(1, 0.5, 0.05, nil, r)
	require.NoError(t, err)

	assert.False(t, l.Update(0))
	assert.True(t, l.Update(0.02))
	assert.InDelta(t, 0.02, l.StepTime(), 1e-6)
	assert.True(t, l.Update(0.04))
	assert.InDelta(t, 0.03, l.StepTime(), 1e-6)
	assert.Equal(t, int64(2), l.Steps())
	assert.InDelta(t, 1, r.alpha, 1e-6)

	// A long frame is capped.
	l.Update(1)
	assert.InDelta(t, 0.05, r.substeps[len(r.substeps)-1], 1e-6)
}

func TestFixedAbortsFailedSubstep(t *testing.T) {
	r := &recorder{failSub: 2}
	f, err := NewFixed(0.1, 2, 0, nil, r)
	require.NoError(t, err)

	assert.Equal(t, 1, f.Update(0.1))
	assert.Equal(t, int64(1), f.Skipped())
	assert.Equal(t, []string{"begin", "sub", "abort", "interp"}, r.calls)

	// The next step starts cleanly.
	r.calls = nil
	assert.Equal(t, 1, f.Update(0.1))
	assert.Equal(t, []string{"begin", "sub", "sub", "end", "interp"}, r.calls)
}
