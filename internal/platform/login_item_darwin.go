//go:build darwin

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (item *LoginItem) plistPath() (string, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("login item: get home dir: %w", err)
	}
	label := "app.daybook." + slug(item.appName)
	return filepath.Join(homeDir, "Library", "LaunchAgents", label+".plist"), label, nil
}

func (item *LoginItem) enable() error {
	path, label, err := item.plistPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("login item: create LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(launchAgent(label, item.execPath)), 0o644); err != nil {
		return fmt.Errorf("login item: write plist: %w", err)
	}
	return nil
}

func (item *LoginItem) disable() error {
	path, _, err := item.plistPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("login item: remove plist: %w", err)
	}
	return nil
}

var plistEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func launchAgent(label, execPath string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
		<string>%s</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
</dict>
</plist>
`, plistEscaper.Replace(label), plistEscaper.Replace(execPath))
}
