package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Ptr returns a pointer to a copy of v, for optional fields set from literals.
func Ptr[T any](v T) *T {
	return &v
}

// PtrIf returns a pointer to v when set is true and nil otherwise.
func PtrIf[T any](set bool, v T) *T {
	if !set {
		return nil
	}
	return &v
}
