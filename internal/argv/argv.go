// Package argv builds argument vectors for exec. The finalized vector's
// strings all alias a single backing allocation, so the whole vector is
// released as one object when the caller drops it.
package argv

// Builder accumulates argument strings. The zero value is ready to use.
type Builder struct {
	buf  []byte
	offs []int
}

// AddString appends one argument. Empty strings are legal arguments.
func (b *Builder) AddString(s string) {
	b.offs = append(b.offs, len(b.buf))
	b.buf = append(b.buf, s...)
}

// Finalize returns the accumulated vector and its length, then resets the
// builder for reuse. Every returned string is a slice of one backing string.
func (b *Builder) Finalize() ([]string, int) {
	backing := string(b.buf)
	args := make([]string, len(b.offs))
	for i, off := range b.offs {
		end := len(backing)
		if i+1 < len(b.offs) {
			end = b.offs[i+1]
		}
		args[i] = backing[off:end]
	}
	n := len(args)
	b.buf = nil
	b.offs = nil
	return args, n
}
