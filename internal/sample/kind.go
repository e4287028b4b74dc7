package sample

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies one of the four sample tables.
type Kind int

const (
	KindSystem Kind = iota
	KindProcess
	KindDisk
	KindUPS
)

// Kinds lists every kind in persistence order.
var Kinds = []Kind{KindSystem, KindUPS, KindProcess, KindDisk}

func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindProcess:
		return "process"
	case KindDisk:
		return "disk"
	case KindUPS:
		return "ups"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Table returns the name of the table holding samples of this kind.
func (k Kind) Table() string {
	switch k {
	case KindSystem:
		return "sys_stats"
	case KindProcess:
		return "proc_stats"
	case KindDisk:
		return "disk_stats"
	case KindUPS:
		return "ups_stats"
	default:
		return ""
	}
}

// ParseKind accepts the kind name, its short form or its table name.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "system", "sys", "sys_stats":
		return KindSystem, nil
	case "process", "proc", "proc_stats":
		return KindProcess, nil
	case "disk", "disk_stats":
		return KindDisk, nil
	case "ups", "ups_stats":
		return KindUPS, nil
	default:
		return 0, fmt.Errorf("unknown sample kind %q", value)
	}
}

// Record is implemented by every sample kind.
type Record interface {
	Kind() Kind
	CapturedAt() time.Time
	IsEmpty() bool
	String() string
}
