package utils

import (
	"strings"
)

// Cast ...
func Cast[T any](origin any) (T, bool) {
	val, ok := origin.(T)
	return val, ok
}

// TryCast ...
func TryCast[T any](origin any) bool {
	_, ok := Cast[T](origin)
	return ok
}

// InArray returns either or not a value is in an array
func InArray[T comparable](needle T, haystack []T) bool {
	for _, el := range haystack {
		if el == needle {
			return true
		}
	}
	return false
}

func Map[T, R any](a []T, clb func(T) R) (out []R) {
	for _, el := range a {
		out = append(out, clb(el))
	}
	return
}

func MapJoin[T any](a []T, clb func(T) string, sep string) string {
	return strings.Join(Map(a, clb), sep)
}
