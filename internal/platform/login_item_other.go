//go:build !linux && !darwin && !windows

package platform

func (item *LoginItem) enable() error  { return ErrLoginItemUnsupported }
func (item *LoginItem) disable() error { return nil }
