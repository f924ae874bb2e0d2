//go:build !windows

package overlay

// applyNativeOpacity is a no-op off Windows; the background alpha carries
// the translucency there.
func (overlay *Window) applyNativeOpacity(alpha uint8) {}
