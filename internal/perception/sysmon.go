// File: internal/perception/sysmon.go
package perception

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
	"go.uber.org/zap"
)

// PowerReader reports battery level (0-100, or -1 when unknown) and power
// source. Injectable because battery reporting is platform specific and
// absent on desktops entirely.
type PowerReader func(ctx context.Context) (level int, source string)

// SystemMonitor samples ambient host conditions for the planner prompt.
type SystemMonitor struct {
	logger *zap.Logger
	power  PowerReader
	// clock is swappable in tests.
	clock func() time.Time
}

// NewSystemMonitor builds a monitor. A nil power reader degrades to an
// unknown battery report.
func NewSystemMonitor(power PowerReader, logger *zap.Logger) *SystemMonitor {
	if power == nil {
		power = func(context.Context) (int, string) { return -1, "unknown" }
	}
	return &SystemMonitor{
		logger: logger.Named("sysmon"),
		power:  power,
		clock:  time.Now,
	}
}

// Sample takes a point-in-time reading. Individual probe failures degrade to
// zero values; sampling never fails the perception phase.
func (m *SystemMonitor) Sample(ctx context.Context) SystemState {
	state := SystemState{
		Time:          m.clock().Format("15:04"),
		NetworkStatus: "disconnected",
	}

	state.BatteryLevel, state.PowerSource = m.power(ctx)

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		state.MemoryUsage = vm.UsedPercent
	} else {
		m.logger.Debug("Memory probe failed", zap.Error(err))
	}

	// Interval 0 compares against the previous call instead of blocking.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		state.CPUUsage = percents[0]
	} else if err != nil {
		m.logger.Debug("CPU probe failed", zap.Error(err))
	}

	if ifaces, err := gopsnet.InterfacesWithContext(ctx); err == nil {
		for _, iface := range ifaces {
			if iface.Name == "lo" || iface.Name == "lo0" {
				continue
			}
			for _, flag := range iface.Flags {
				if flag == "up" {
					state.NetworkStatus = "connected"
				}
			}
			if state.NetworkStatus == "connected" {
				break
			}
		}
	} else {
		m.logger.Debug("Network probe failed", zap.Error(err))
	}

	return state
}
