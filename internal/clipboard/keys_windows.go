//go:build windows

package clipboard

import "github.com/micmonay/keybd_event"

type platformKeyboard struct{}

func (platformKeyboard) Paste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	return kb.Launching()
}

func (platformKeyboard) Enter() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_ENTER)
	return kb.Launching()
}
