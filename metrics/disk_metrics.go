package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"dcollector/internal/sample"
	"dcollector/logmanager"
)

// CommandRunner runs an external tool and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// ExecRunner runs commands with os/exec and no stdin.
func ExecRunner() CommandRunner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = nil
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// smartctl exit status bits 0 and 1 mean the command line could not be
// parsed or the device could not be opened; the JSON then carries no
// attributes.
const smartctlFatalBits = 0x03

type DiskConfig struct {
	// Smartctl is the smartctl binary. Defaults to "smartctl".
	Smartctl string
	// Devices, when set, replaces the OS device listing.
	Devices []string
}

type smartctlReport struct {
	Smartctl struct {
		ExitStatus int `json:"exit_status"`
	} `json:"smartctl"`
	Temperature *struct {
		Current *float64 `json:"current"`
	} `json:"temperature"`
	ATASmartAttributes struct {
		Table []smartAttribute `json:"table"`
	} `json:"ata_smart_attributes"`
}

type smartAttribute struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Raw  struct {
		Value int64 `json:"value"`
	} `json:"raw"`
}

// DiskAdapter collects S.M.A.R.T. attributes for every block device.
type DiskAdapter struct {
	runner  CommandRunner
	cfg     DiskConfig
	stamper *Stamper
	logger  *logmanager.Logger
}

func NewDiskAdapter(runner CommandRunner, cfg DiskConfig, stamper *Stamper, logger *logmanager.Logger) *DiskAdapter {
	if cfg.Smartctl == "" {
		cfg.Smartctl = "smartctl"
	}
	return &DiskAdapter{runner: runner, cfg: cfg, stamper: stamper, logger: logger}
}

// Samples returns one sample per device smartctl could read. Devices
// that fail are logged and skipped.
func (a *DiskAdapter) Samples(ctx context.Context, hostName *string) []sample.DiskSample {
	devices := a.cfg.Devices
	if len(devices) == 0 {
		devices = a.listDevices(ctx)
	}

	samples := make([]sample.DiskSample, 0, len(devices))
	for _, device := range devices {
		if ctx.Err() != nil {
			break
		}
		s, err := a.readDevice(ctx, device)
		if err != nil {
			a.logger.Errorf("smartctl failed for %s: %v", device, err)
			continue
		}
		s.HostName = hostName
		samples = append(samples, s)
	}
	return samples
}

func (a *DiskAdapter) listDevices(ctx context.Context) []string {
	command := deviceListCommand()
	if len(command) == 0 {
		return nil
	}
	out, err := a.runner.Run(ctx, command[0], command[1:]...)
	if err != nil {
		a.logger.Warnf("failed to list disk devices with %s: %v", command[0], err)
		return nil
	}
	return parseDeviceList(string(out))
}

func parseDeviceList(raw string) []string {
	var devices []string
	for _, name := range strings.Fields(raw) {
		name = strings.TrimPrefix(name, "/dev/")
		if !keepDevice(name) {
			continue
		}
		devices = append(devices, "/dev/"+name)
	}
	return devices
}

func (a *DiskAdapter) readDevice(ctx context.Context, device string) (sample.DiskSample, error) {
	out, runErr := a.runner.Run(ctx, a.cfg.Smartctl, "-j", "-f", "brief", "-A", device)
	if len(bytes.TrimSpace(out)) == 0 {
		if runErr == nil {
			runErr = errors.New("no output")
		}
		return sample.DiskSample{}, runErr
	}
	// smartctl reports warnings through its exit status bitmask while
	// still printing a usable document.
	if runErr != nil {
		a.logger.Debugf("smartctl for %s exited with %v", device, runErr)
	}

	s, err := parseSmartctl(out)
	if err != nil {
		return sample.DiskSample{}, err
	}
	s.Time = a.stamper.Stamp()
	s.Name = sample.Ptr(device)
	return s, nil
}

func parseSmartctl(data []byte) (sample.DiskSample, error) {
	var report smartctlReport
	if err := json.Unmarshal(data, &report); err != nil {
		return sample.DiskSample{}, fmt.Errorf("decode smartctl output: %w", err)
	}
	if report.Smartctl.ExitStatus&smartctlFatalBits != 0 {
		return sample.DiskSample{}, fmt.Errorf("smartctl exit status %d", report.Smartctl.ExitStatus)
	}

	var s sample.DiskSample
	if report.Temperature != nil && report.Temperature.Current != nil {
		s.Temperature = sample.Ptr(*report.Temperature.Current)
	}

	for _, attr := range report.ATASmartAttributes.Table {
		value := sample.Ptr(attr.Raw.Value)
		switch attr.Name {
		case "Seek_Error_Rate":
			s.SeekErrorRate = value
		case "Throughput_Performance":
			s.Throughput = value
		case "Raw_Read_Error_Rate":
			s.ReadErrorRate = value
		case "UDMA_CRC_Error_Count":
			s.CRCErrors = value
		case "Seek_Time_Performance":
			s.SeekTime = value
		}
	}
	return s, nil
}
