//go:build !linux && !freebsd

package metrics

// Devices must be configured explicitly on other systems.
func deviceListCommand() []string {
	return nil
}

func keepDevice(name string) bool {
	return name != ""
}
