//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
)

type winMsg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

var (
	user32                  = syscall.NewLazyDLL("user32.dll")
	procRegisterHotKey      = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey    = user32.NewProc("UnregisterHotKey")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

// Register installs global hotkeys for bindings and calls handler with the
// binding id whenever one fires. With hook set a low-level keyboard hook is
// used instead of RegisterHotKey, which also swallows the key press.
func Register(bindings []Binding, hook bool, handler Handler, log zerolog.Logger) error {
	if err := Validate(bindings); err != nil {
		return err
	}
	if hook {
		return startLowLevelHook(bindings, handler, log)
	}
	return registerHotkeys(bindings, handler, log)
}

func registerHotkeys(bindings []Binding, handler Handler, log zerolog.Logger) error {
	errCh := make(chan error, 1)

	go func() {
		// RegisterHotKey delivers WM_HOTKEY to the registering thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		for i, b := range bindings {
			mod, vk, _ := Parse(b.Spec)
			log.Debug().Str("spec", b.Spec).Uint32("mod", mod).Uint32("vk", vk).Msg("parsed hotkey")
			r, _, _ := procRegisterHotKey.Call(0, uintptr(b.ID), uintptr(mod), uintptr(vk))
			if r == 0 {
				for _, prev := range bindings[:i] {
					procUnregisterHotKey.Call(0, uintptr(prev.ID))
				}
				errCh <- fmt.Errorf("RegisterHotKey failed for '%s' (id=%d)", b.Spec, b.ID)
				return
			}
		}
		log.Info().Int("count", len(bindings)).Msg("registered global hotkeys")
		errCh <- nil

		const wmHotkey = 0x0312
		var msg winMsg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 {
				log.Error().Msg("GetMessageW error; exiting hotkey loop")
				return
			}
			if msg.Message == wmHotkey {
				log.Debug().Int("id", int(msg.WParam)).Msg("WM_HOTKEY")
				handler(int(msg.WParam))
			}
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout registering hotkeys")
	}
}

func startLowLevelHook(bindings []Binding, handler Handler, log zerolog.Logger) error {
	type candidate struct {
		id  int
		mod uint32
	}

	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		lookup := make(map[uint32][]candidate)
		for _, b := range bindings {
			mod, vk, _ := Parse(b.Spec)
			lookup[vk] = append(lookup[vk], candidate{id: b.ID, mod: mod})
		}

		const (
			whKeyboardLL  = 13
			wmKeyDown     = 0x0100
			wmKeyUp       = 0x0101
			wmSysKeyDown  = 0x0104
			wmSysKeyUp    = 0x0105
			llkhfInjected = 0x10
			vkShift       = 0x10
			vkControl     = 0x11
			vkMenu        = 0x12
			vkLWin        = 0x5B
			vkRWin        = 0x5C
		)

		type kbdLLHookStruct struct {
			vkCode      uint32
			scanCode    uint32
			flags       uint32
			time        uint32
			dwExtraInfo uintptr
		}

		down := func(vk uintptr) bool {
			st, _, _ := procGetAsyncKeyState.Call(vk)
			return st&0x8000 != 0
		}
		modsSatisfied := func(required uint32) bool {
			if required&ModCtrl != 0 && !down(vkControl) {
				return false
			}
			if required&ModAlt != 0 && !down(vkMenu) {
				return false
			}
			if required&ModShift != 0 && !down(vkShift) {
				return false
			}
			if required&ModWin != 0 && !down(vkLWin) && !down(vkRWin) {
				return false
			}
			return true
		}

		swallowed := make(map[uint32]bool)

		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) < 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}
			msg := uint32(wParam)
			k := (*kbdLLHookStruct)(unsafe.Pointer(lParam))

			// Keys we synthesize ourselves (paste, Enter) must pass through.
			if k.flags&llkhfInjected != 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}

			if msg == wmKeyDown || msg == wmSysKeyDown {
				for _, c := range lookup[k.vkCode] {
					if modsSatisfied(c.mod) {
						swallowed[k.vkCode] = true
						log.Debug().Uint32("vk", k.vkCode).Int("id", c.id).Msg("swallowed keydown")
						go handler(c.id)
						return 1
					}
				}
			}
			if (msg == wmKeyUp || msg == wmSysKeyUp) && swallowed[k.vkCode] {
				delete(swallowed, k.vkCode)
				return 1
			}

			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed")
			return
		}
		log.Info().Int("count", len(bindings)).Msg("low-level keyboard hook installed")
		errCh <- nil

		var msg winMsg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 || ret == 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(hook)
		log.Debug().Msg("low-level hook uninstalled")
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout installing low-level hook")
	}
}
