//go:build !linux

package gpio

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns ErrUnsupported on non-Linux platforms.
func NewRealLine(chipName string, pin int) (*RealLine, error) {
	return nil, ErrUnsupported
}

// RealOpener returns an Opener that always fails with ErrUnsupported.
func RealOpener(chipName string, pin int) Opener {
	return func() (Line, error) {
		return nil, ErrUnsupported
	}
}

// SetValue is not implemented on non-Linux platforms.
func (r *RealLine) SetValue(value int) error {
	return ErrUnsupported
}

// Value is not implemented on non-Linux platforms.
func (r *RealLine) Value() (int, error) {
	return 0, ErrUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealLine) Close() error {
	return nil
}
