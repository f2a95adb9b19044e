// Package stats keeps running summary statistics without storing samples.
package stats

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Number is any value that can be summarised.
type Number interface {
	constraints.Integer | constraints.Float
}

// Running accumulates count, mean, variance, min and max with Welford's
// update. The zero value is ready to use.
type Running[T Number] struct {
	count uint64
	mean  float64
	m2    float64
	min   T
	max   T
}

// Add folds one sample in.
func (s *Running[T]) Add(x T) {
	s.count++

	if s.count == 1 {
		s.min, s.max = x, x
	} else {
		s.min = min(s.min, x)
		s.max = max(s.max, x)
	}

	v := float64(x)
	delta := v - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (v - s.mean)
}

// Count returns the number of samples.
func (s *Running[T]) Count() uint64 {
	return s.count
}

// Mean returns the sample mean, 0 without samples.
func (s *Running[T]) Mean() float64 {
	return s.mean
}

// StdDev returns the population standard deviation.
func (s *Running[T]) StdDev() float64 {
	if s.count == 0 {
		return 0
	}

	return math.Sqrt(s.m2 / float64(s.count))
}

// Min returns the smallest sample, the zero value without samples.
func (s *Running[T]) Min() T {
	return s.min
}

// Max returns the largest sample, the zero value without samples.
func (s *Running[T]) Max() T {
	return s.max
}
