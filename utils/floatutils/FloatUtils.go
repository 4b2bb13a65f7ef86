// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips value to [min, max]
func Clip(value, min, max float64) float64 {
	return math.Max(math.Min(value, max), min)
}

// ClipInterval clips value to the interval
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// ClipSlice clips each element of values in place
func ClipSlice(values []float64, min, max float64) {
	for i := range values {
		values[i] = Clip(values[i], min, max)
	}
}

// Wrap wraps value into the periodic range [min, max)
func Wrap(value, min, max float64) float64 {
	period := max - min
	value = math.Mod(value-min, period)
	if value < 0 {
		value += period
	}
	return value + min
}

// WrapInterval wraps value into the interval, treating it as periodic
func WrapInterval(value float64, interval r1.Interval) float64 {
	return Wrap(value, interval.Min, interval.Max)
}

// Sign returns -1 for negative values and 1 otherwise
func Sign(value float64) float64 {
	if value < 0 {
		return -1
	}
	return 1
}

// Min returns the smallest of floats
func Min(floats ...float64) float64 {
	min := floats[0]
	for _, val := range floats[1:] {
		min = math.Min(min, val)
	}
	return min
}

// Max returns the largest of floats
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats[1:] {
		max = math.Max(max, val)
	}
	return max
}
