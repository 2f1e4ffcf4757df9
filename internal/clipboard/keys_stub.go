//go:build !windows

package clipboard

type platformKeyboard struct{}

func (platformKeyboard) Paste() error { return ErrUnsupported }
func (platformKeyboard) Enter() error { return ErrUnsupported }
