package zabbix

import (
	"context"
	"runtime"
	"strconv"
	"time"

	zbx "github.com/blacked/go-zabbix"
	"github.com/mackerelio/go-osstat/cpu"
	"github.com/mackerelio/go-osstat/memory"
	log "github.com/sirupsen/logrus"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/config"
)

const maxSendFails = 5
const observationInterval = 15 * time.Second

// ObserveMetrics pushes host and runtime stats of the orchestrator to
// zabbix until ctx is done or the trapper stays unreachable.
func ObserveMetrics(ctx context.Context, cfg *config.Config) {
	sender := zbx.NewSender(cfg.ZabbixHost, cfg.ZabbixPort)
	ticker := time.NewTicker(observationInterval)
	defer ticker.Stop()

	fails := 0
	for {
		select {
		case <-ticker.C:
			pkg, err := collect(cfg.ZabbixName, cfg.ServiceId)
			if err != nil {
				log.WithError(err).Error("failed to collect host metrics")
				continue
			}
			if _, err = sender.Send(pkg); err != nil {
				fails++
				if fails > maxSendFails {
					log.WithError(err).Error("zabbix observer stopped due to a lot of errors")
					return
				}
				log.WithError(err).Error("failed to send metrics to zabbix")
				continue
			}
			fails = 0
		case <-ctx.Done():
			log.Info("zabbix observer has been stopped")
			return
		}
	}
}

func collect(host, id string) (*zbx.Packet, error) {
	mem, err := memory.Get()
	if err != nil {
		return nil, err
	}

	before, err := cpu.Get()
	if err != nil {
		return nil, err
	}
	time.Sleep(time.Second)
	after, err := cpu.Get()
	if err != nil {
		return nil, err
	}
	total := float64(after.Total - before.Total)

	now := time.Now().Unix()
	items := map[string]string{
		"mem.used":   strconv.FormatUint(mem.Used, 10),
		"mem.free":   strconv.FormatUint(mem.Free, 10),
		"cpu.user":   strconv.FormatFloat(float64(after.User-before.User)/total*100, 'f', 2, 64),
		"cpu.system": strconv.FormatFloat(float64(after.System-before.System)/total*100, 'f', 2, 64),
		"cpu.idle":   strconv.FormatFloat(float64(after.Idle-before.Idle)/total*100, 'f', 2, 64),
		"goroutines": strconv.Itoa(runtime.NumGoroutine()),
	}

	metrics := make([]*zbx.Metric, 0, len(items))
	for key, value := range items {
		metrics = append(metrics, zbx.NewMetric(host, id+"."+key, value, now))
	}

	return zbx.NewPacket(metrics), nil
}
