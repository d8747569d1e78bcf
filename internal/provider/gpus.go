package provider

import (
	"context"
	"errors"
	"strings"

	"hostbridge/internal/model"
)

// GPUs derives GPU information from the per-cycle sensor snapshot. Without a
// snapshot there is nothing to report, so the plain Refresh path fails and
// the module keeps its previous value for that cycle.
type GPUs struct{}

func NewGPUs() *GPUs { return &GPUs{} }

var errNoSensorData = errors.New("gpu data requires the sensor snapshot")

func (p *GPUs) Refresh(ctx context.Context) (any, error) {
	return nil, errNoSensorData
}

func (p *GPUs) RefreshWithSensors(ctx context.Context, sensors model.SensorsData) (any, error) {
	data := model.GPUsData{}
	for _, t := range sensors.Temperatures {
		key := strings.ToLower(t.Key)
		vendor := ""
		switch {
		case strings.Contains(key, "amdgpu"):
			vendor = "AMD"
		case strings.Contains(key, "nouveau"), strings.Contains(key, "nvidia"):
			vendor = "NVIDIA"
		case strings.Contains(key, "i915"), strings.Contains(key, "xe"):
			vendor = "Intel"
		default:
			continue
		}
		temp := t.Celsius
		data.GPUs = append(data.GPUs, model.GPU{
			Name:        t.Key,
			Vendor:      vendor,
			Temperature: &temp,
		})
	}
	return data, nil
}
