//go:build linux

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (item *LoginItem) entryPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("login item: %w", err)
	}
	return filepath.Join(configDir, "autostart", slug(item.appName)+".desktop"), nil
}

func (item *LoginItem) enable() error {
	path, err := item.entryPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("login item: create autostart dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(desktopEntry(item.appName, item.execPath)), 0o644); err != nil {
		return fmt.Errorf("login item: write desktop entry: %w", err)
	}
	return nil
}

func (item *LoginItem) disable() error {
	path, err := item.entryPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("login item: remove desktop entry: %w", err)
	}
	return nil
}

func desktopEntry(appName, execPath string) string {
	if strings.Contains(execPath, " ") && !strings.HasPrefix(execPath, `"`) {
		execPath = `"` + execPath + `"`
	}
	return fmt.Sprintf("[Desktop Entry]\nType=Application\nName=%s\nExec=%s\nX-GNOME-Autostart-enabled=true\nTerminal=false\n", appName, execPath)
}
