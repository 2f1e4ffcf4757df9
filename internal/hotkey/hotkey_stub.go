//go:build !windows

package hotkey

import "github.com/rs/zerolog"

// Register validates bindings but cannot install them on this platform.
func Register(bindings []Binding, hook bool, handler Handler, log zerolog.Logger) error {
	if err := Validate(bindings); err != nil {
		return err
	}
	return ErrUnsupported
}
