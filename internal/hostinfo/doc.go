// Package hostinfo describes the machine a report run happens on.
//
// Rendering durations in a report are benchmark figures and are only
// comparable between runs on similar hardware, so the host description is
// shown in the report header and stored with every run in the history
// database.
//
// Collect queries github.com/shirou/gopsutil/v3 for:
//   - Hostname, OS and platform (host)
//   - CPU model and logical core count (cpu)
//   - Total memory (mem)
//
// Design decision: a failed query leaves its fields empty instead of failing
// the run, because containers and restricted CI runners often hide parts of
// /proc and /sys. The failures are returned joined so the caller can log
// them as a warning.
package hostinfo
