package pool

// serverNotFoundError signals an unknown server name for 404 mapping.
type serverNotFoundError struct{ name string }

func (e serverNotFoundError) Error() string { return "server not found: " + e.name }

// IsServerNotFound reports whether err indicates an unknown server name.
func IsServerNotFound(err error) bool {
	_, ok := err.(serverNotFoundError)
	return ok
}
