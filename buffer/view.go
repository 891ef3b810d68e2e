package buffer

// View is a slice of a buffer, with convenience methods
type View []byte
