package sample

// Keep reports whether r should be persisted.
func Keep(r Record) bool {
	return !r.IsEmpty()
}

// Filter returns a copy of s without empty samples. The input is not
// modified.
func Filter(s Snapshot) Snapshot {
	var out Snapshot

	if s.System != nil && Keep(*s.System) {
		system := *s.System
		out.System = &system
	}
	if s.UPS != nil && Keep(*s.UPS) {
		ups := *s.UPS
		out.UPS = &ups
	}

	for _, p := range s.Processes {
		if Keep(p) {
			out.Processes = append(out.Processes, p)
		}
	}
	for _, d := range s.Disks {
		if Keep(d) {
			out.Disks = append(out.Disks, d)
		}
	}

	return out
}

// Dropped returns, per kind, how many samples Filter removed from s.
func Dropped(before, after Snapshot) map[Kind]int {
	b, a := before.Counts(), after.Counts()
	dropped := make(map[Kind]int, len(b))
	for kind, n := range b {
		dropped[kind] = n - a[kind]
	}
	return dropped
}
