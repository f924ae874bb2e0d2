package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrLoginItemUnsupported is returned on systems without a known login mechanism.
var ErrLoginItemUnsupported = errors.New("launch at login unsupported on this platform")

// LoginItem registers the executable to start when the user logs in.
type LoginItem struct {
	appName  string
	execPath string
}

// NewLoginItem resolves the running executable for appName.
func NewLoginItem(appName string) (*LoginItem, error) {
	if strings.TrimSpace(appName) == "" {
		return nil, fmt.Errorf("login item: app name is empty")
	}
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("login item: resolve executable: %w", err)
	}
	return &LoginItem{appName: appName, execPath: execPath}, nil
}

// Set enables or disables launch at login.
func (item *LoginItem) Set(enabled bool) error {
	if enabled {
		return item.enable()
	}
	return item.disable()
}

func slug(appName string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(appName)), " ", "-")
}
