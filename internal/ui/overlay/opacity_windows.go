//go:build windows

package overlay

import (
	"syscall"

	"fyne.io/fyne/v2/driver"
)

const (
	gwlExStyle  int32 = -20
	wsExLayered       = 0x00080000
	lwaAlpha          = 0x2
)

var (
	user32                         = syscall.NewLazyDLL("user32.dll")
	procGetWindowLongPtrW          = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW          = user32.NewProc("SetWindowLongPtrW")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
)

// applyNativeOpacity makes the whole companion frame translucent, not just
// the painted background.
func (overlay *Window) applyNativeOpacity(alpha uint8) {
	native, ok := overlay.window.(driver.NativeWindow)
	if !ok {
		return
	}

	native.RunNative(func(context any) {
		hwnd := windowHandle(context)
		if hwnd == 0 {
			overlay.logger.Debug("companion opacity: no window handle yet")
			return
		}
		exStyle := uintptr(uint32(gwlExStyle))
		style, _, _ := procGetWindowLongPtrW.Call(hwnd, exStyle)
		if style&wsExLayered == 0 {
			procSetWindowLongPtrW.Call(hwnd, exStyle, style|wsExLayered)
		}
		procSetLayeredWindowAttributes.Call(hwnd, 0, uintptr(alpha), uintptr(lwaAlpha))
	})
}

func windowHandle(context any) uintptr {
	switch value := context.(type) {
	case driver.WindowsWindowContext:
		return value.HWND
	case *driver.WindowsWindowContext:
		return value.HWND
	}
	return 0
}
