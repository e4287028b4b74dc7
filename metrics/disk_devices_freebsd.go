//go:build freebsd

package metrics

import "strings"

func deviceListCommand() []string {
	return []string{"sysctl", "-n", "kern.disks"}
}

func keepDevice(name string) bool {
	return name != "" && !strings.HasPrefix(name, "flash") && !strings.HasPrefix(name, "mmc")
}
