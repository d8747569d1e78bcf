package provider

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"

	"hostbridge/internal/model"
)

// Sensors reads the hardware sensor tree: temperatures via gopsutil and fan
// speeds from hwmon. The resulting blob doubles as the per-cycle shared
// input for sensor-aware providers.
type Sensors struct {
	hwmonRoot string
}

func NewSensors() *Sensors {
	return &Sensors{hwmonRoot: "/sys/class/hwmon"}
}

// NewSensorsAt reads fans from an alternate hwmon root.
func NewSensorsAt(hwmonRoot string) *Sensors {
	return &Sensors{hwmonRoot: hwmonRoot}
}

func (p *Sensors) Refresh(ctx context.Context) (any, error) {
	data, err := p.Sample(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Sample returns the typed sensor snapshot. The orchestrator uses this form
// so it can hand the same value to sensor-aware providers.
func (p *Sensors) Sample(ctx context.Context) (model.SensorsData, error) {
	data := model.SensorsData{}

	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		return model.SensorsData{}, err
	}
	for _, t := range temps {
		entry := model.Temperature{Key: t.SensorKey, Celsius: t.Temperature}
		if t.High > 0 {
			high := t.High
			entry.High = &high
		}
		if t.Critical > 0 {
			crit := t.Critical
			entry.Critical = &crit
		}
		data.Temperatures = append(data.Temperatures, entry)
	}

	data.Fans = p.readFans()
	return data, nil
}

func (p *Sensors) readFans() []model.Fan {
	chips, err := os.ReadDir(p.hwmonRoot)
	if err != nil {
		return nil
	}
	var fans []model.Fan
	for _, chip := range chips {
		dir := filepath.Join(p.hwmonRoot, chip.Name())
		name := readSysfs(dir, "name")
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if !strings.HasPrefix(f.Name(), "fan") || !strings.HasSuffix(f.Name(), "_input") {
				continue
			}
			rpm, err := strconv.ParseInt(readSysfs(dir, f.Name()), 10, 64)
			if err != nil {
				continue
			}
			key := strings.TrimSuffix(f.Name(), "_input")
			if name != "" {
				key = name + "/" + key
			}
			fans = append(fans, model.Fan{Key: key, RPM: rpm})
		}
	}
	return fans
}
