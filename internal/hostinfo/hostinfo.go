package hostinfo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aurora-tools/aurorareport/internal/model"
)

// sources are the gopsutil queries Collect runs.
type sources struct {
	host   func(context.Context) (*host.InfoStat, error)
	cpu    func(context.Context) ([]cpu.InfoStat, error)
	counts func(context.Context, bool) (int, error)
	mem    func(context.Context) (*mem.VirtualMemoryStat, error)
}

var defaultSources = sources{
	host:   host.InfoWithContext,
	cpu:    cpu.InfoWithContext,
	counts: cpu.CountsWithContext,
	mem:    mem.VirtualMemoryWithContext,
}

// Collect gathers host, CPU and memory information.
// Every query is attempted; fields whose query failed stay empty and the
// failures are returned joined. Callers treat the error as a warning.
func Collect(ctx context.Context) (model.HostInfo, error) {
	return collect(ctx, defaultSources)
}

func collect(ctx context.Context, src sources) (model.HostInfo, error) {
	var (
		info model.HostInfo
		errs []error
	)

	if h, err := src.host(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to read host info: %w", err))
	} else if h != nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.Platform = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
	}

	if cpus, err := src.cpu(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to read cpu info: %w", err))
	} else if len(cpus) > 0 {
		info.CPUModel = strings.TrimSpace(cpus[0].ModelName)
	}

	if n, err := src.counts(ctx, true); err != nil {
		errs = append(errs, fmt.Errorf("failed to count cpus: %w", err))
	} else {
		info.LogicalCPUs = n
	}

	if vm, err := src.mem(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to read memory info: %w", err))
	} else if vm != nil {
		info.MemoryTotal = vm.Total
	}

	return info, errors.Join(errs...)
}
