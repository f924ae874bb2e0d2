//go:build windows

package platform

import (
	"errors"
	"syscall"
)

const wsaEAddrInUse = syscall.Errno(10048)

func addressInUse(err error) bool {
	return errors.Is(err, wsaEAddrInUse) || errors.Is(err, syscall.EADDRINUSE)
}
