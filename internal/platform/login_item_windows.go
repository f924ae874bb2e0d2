//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"strings"
)

const runKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

func (item *LoginItem) enable() error {
	value := `"` + strings.Trim(item.execPath, `"`) + `"`
	return reg("add", runKey, "/v", item.appName, "/t", "REG_SZ", "/d", value, "/f")
}

func (item *LoginItem) disable() error {
	return reg("delete", runKey, "/v", item.appName, "/f")
}

func reg(args ...string) error {
	output, err := exec.Command("reg", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("login item: reg %s: %w: %s", args[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}
