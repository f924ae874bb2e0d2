package platform

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"os/user"
	"strconv"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// Instance ports are drawn from this range.
const (
	instancePortLow  = 20000
	instancePortHigh = 39999
)

// InstanceGuard holds the single-instance lock. Its listener is also the
// endpoint the companion bridge serves on.
type InstanceGuard struct {
	listener net.Listener
}

// InstanceAddress returns the loopback address the instance of appName owns
// for the current OS user, so two accounts on one machine do not collide.
func InstanceAddress(appName string) string {
	owner := appName
	if current, err := user.Current(); err == nil {
		owner += "/" + current.Uid
	}
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(instancePort(owner)))
}

// AcquireSingleInstance takes the lock by listening on address. An empty
// address means InstanceAddress(appName).
func AcquireSingleInstance(appName, address string) (*InstanceGuard, error) {
	if address == "" {
		address = InstanceAddress(appName)
	}
	listener, err := net.Listen("tcp", address)
	if err != nil {
		if addressInUse(err) {
			return nil, fmt.Errorf("%w: %v", ErrAlreadyRunning, err)
		}
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}
	return &InstanceGuard{listener: listener}, nil
}

// Listener returns the bound listener, nil on a nil guard.
func (guard *InstanceGuard) Listener() net.Listener {
	if guard == nil {
		return nil
	}
	return guard.listener
}

// Address is the address actually bound, which differs from the requested
// one when port 0 was asked for.
func (guard *InstanceGuard) Address() string {
	if guard == nil || guard.listener == nil {
		return ""
	}
	return guard.listener.Addr().String()
}

// Release drops the lock. Releasing twice, or after the bridge server
// closed the listener, is not an error.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	if err := guard.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("release instance lock: %w", err)
	}
	return nil
}

func instancePort(owner string) int {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(owner))
	span := uint32(instancePortHigh - instancePortLow + 1)
	return instancePortLow + int(hash.Sum32()%span)
}
