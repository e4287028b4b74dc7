//go:build linux

package metrics

import "strings"

func deviceListCommand() []string {
	return []string{"lsblk", "-dn", "-o", "NAME"}
}

var skippedDevicePrefixes = []string{"loop", "ram", "zram", "sr", "fd", "mmcblk", "nbd"}

func keepDevice(name string) bool {
	if name == "" {
		return false
	}
	for _, prefix := range skippedDevicePrefixes {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}
	return true
}
