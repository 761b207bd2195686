package metrics

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/pkg/logger"
)

var (
	processRSS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexerd_process_resident_memory_bytes",
		Help: "Resident memory of the indexerd process",
	})

	processCPU = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexerd_process_cpu_percent",
		Help: "CPU utilization of the indexerd process",
	})
)

// StartSystemSampler samples process memory and CPU into gauges every
// interval until ctx is cancelled
func StartSystemSampler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("system sampler disabled", zap.Error(err))
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
					processRSS.Set(float64(mem.RSS))
				}
				if cpu, err := proc.CPUPercent(); err == nil {
					processCPU.Set(cpu)
				}
			}
		}
	}()
}
