package store

import "dcollector/internal/sample"

var columns = map[sample.Kind][]string{
	sample.KindSystem: {
		"time", "name", "kernel_version", "os_version", "host_name", "processors",
		"total_memory", "used_memory", "total_swap", "used_swap",
		"load_one", "load_five", "load_fifteen", "cpu_usage",
	},
	sample.KindProcess: {
		"time", "start_time", "exe", "cmd", "name",
		"disk_read", "disk_read_total", "disk_written", "disk_written_total",
		"cpu_usage", "rss", "status", "host_name",
	},
	sample.KindDisk: {
		"time", "name", "temperature", "crc_errors", "seek_time",
		"seek_error_rate", "throughput", "read_error_rate", "host_name",
	},
	sample.KindUPS: {
		"time", "model", "status", "load", "input_frequency",
		"input_voltage", "battery_charge", "battery_voltage",
	},
}

// Nil pointers in a row are written as NULL.

func systemRow(s sample.SystemSample) []any {
	return []any{
		s.Time, s.Name, s.KernelVersion, s.OSVersion, s.HostName, s.Processors,
		s.TotalMemory, s.UsedMemory, s.TotalSwap, s.UsedSwap,
		s.LoadOne, s.LoadFive, s.LoadFifteen, s.CPUUsage,
	}
}

func processRow(s sample.ProcessSample) []any {
	return []any{
		s.Time, s.StartTime, s.Exe, s.Cmd, s.Name,
		s.DiskRead, s.DiskReadTotal, s.DiskWritten, s.DiskWrittenTotal,
		s.CPUUsage, s.RSS, s.Status, s.HostName,
	}
}

func diskRow(s sample.DiskSample) []any {
	return []any{
		s.Time, s.Name, s.Temperature, s.CRCErrors, s.SeekTime,
		s.SeekErrorRate, s.Throughput, s.ReadErrorRate, s.HostName,
	}
}

func upsRow(s sample.UpsSample) []any {
	return []any{
		s.Time, s.Model, s.Status, s.Load, s.InputFrequency,
		s.InputVoltage, s.BatteryCharge, s.BatteryVoltage,
	}
}

func rowsOf(snap sample.Snapshot, kind sample.Kind) [][]any {
	var rows [][]any
	switch kind {
	case sample.KindSystem:
		if snap.System != nil {
			rows = append(rows, systemRow(*snap.System))
		}
	case sample.KindUPS:
		if snap.UPS != nil {
			rows = append(rows, upsRow(*snap.UPS))
		}
	case sample.KindProcess:
		for _, p := range snap.Processes {
			rows = append(rows, processRow(p))
		}
	case sample.KindDisk:
		for _, d := range snap.Disks {
			rows = append(rows, diskRow(d))
		}
	}
	return rows
}

// Scan destinations, in column order.

func systemDest(s *sample.SystemSample) []any {
	return []any{
		&s.Time, &s.Name, &s.KernelVersion, &s.OSVersion, &s.HostName, &s.Processors,
		&s.TotalMemory, &s.UsedMemory, &s.TotalSwap, &s.UsedSwap,
		&s.LoadOne, &s.LoadFive, &s.LoadFifteen, &s.CPUUsage,
	}
}

func processDest(s *sample.ProcessSample) []any {
	return []any{
		&s.Time, &s.StartTime, &s.Exe, &s.Cmd, &s.Name,
		&s.DiskRead, &s.DiskReadTotal, &s.DiskWritten, &s.DiskWrittenTotal,
		&s.CPUUsage, &s.RSS, &s.Status, &s.HostName,
	}
}

func diskDest(s *sample.DiskSample) []any {
	return []any{
		&s.Time, &s.Name, &s.Temperature, &s.CRCErrors, &s.SeekTime,
		&s.SeekErrorRate, &s.Throughput, &s.ReadErrorRate, &s.HostName,
	}
}

func upsDest(s *sample.UpsSample) []any {
	return []any{
		&s.Time, &s.Model, &s.Status, &s.Load, &s.InputFrequency,
		&s.InputVoltage, &s.BatteryCharge, &s.BatteryVoltage,
	}
}
