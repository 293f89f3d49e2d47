package helpers

import "golang.org/x/exp/slices"

// CopyOf returns a shallow copy of a slice, or nil if the slice is nil.
func CopyOf[V any](s []V) []V {
	if s == nil {
		return nil
	}
	return append(make([]V, 0, len(s)), s...)
}

// IfElse returns valueIfTrue or valueIfFalse depending on isTrue.
func IfElse[V any](isTrue bool, valueIfTrue, valueIfFalse V) V {
	if isTrue {
		return valueIfTrue
	}
	return valueIfFalse
}

// Sorted returns a sorted copy of the slice, leaving the original untouched.
func Sorted[V ~string | ~int](s []V) []V {
	ret := CopyOf(s)
	slices.Sort(ret)
	return ret
}
