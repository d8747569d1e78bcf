package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hostbridge/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestBatteryReadsSysfs(t *testing.T) {
	root := t.TempDir()
	bat := filepath.Join(root, "BAT0")
	if err := os.Mkdir(bat, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, bat, "type", "Battery\n")
	writeFile(t, bat, "capacity", "87\n")
	writeFile(t, bat, "status", "Discharging\n")
	writeFile(t, bat, "charge_now", "3600000\n")
	writeFile(t, bat, "current_now", "1800000\n")

	blob, err := NewBatteryAt(root).Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	data := blob.(model.BatteryData)
	if !data.Present {
		t.Fatalf("expected battery present")
	}
	if data.Percent == nil || *data.Percent != 87 {
		t.Fatalf("expected 87%%, got %v", data.Percent)
	}
	if data.Charging == nil || *data.Charging {
		t.Fatalf("expected discharging")
	}
	if data.SecondsRemaining == nil || *data.SecondsRemaining != 7200 {
		t.Fatalf("expected 7200s remaining, got %v", data.SecondsRemaining)
	}
}

func TestBatteryAbsent(t *testing.T) {
	blob, err := NewBatteryAt(filepath.Join(t.TempDir(), "missing")).Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if blob.(model.BatteryData).Present {
		t.Fatalf("expected no battery")
	}
}

func TestSensorsReadsFans(t *testing.T) {
	root := t.TempDir()
	chip := filepath.Join(root, "hwmon0")
	if err := os.Mkdir(chip, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, chip, "name", "nct6775\n")
	writeFile(t, chip, "fan1_input", "1200\n")
	writeFile(t, chip, "fan2_input", "notanumber\n")

	fans := NewSensorsAt(root).readFans()
	if len(fans) != 1 {
		t.Fatalf("expected 1 fan, got %d", len(fans))
	}
	if fans[0].Key != "nct6775/fan1" || fans[0].RPM != 1200 {
		t.Fatalf("unexpected fan entry: %+v", fans[0])
	}
}

func TestGPUsDeriveFromSensors(t *testing.T) {
	sensors := model.SensorsData{
		Temperatures: []model.Temperature{
			{Key: "amdgpu_edge", Celsius: 61},
			{Key: "coretemp_package_id_0", Celsius: 48},
		},
	}
	blob, err := NewGPUs().RefreshWithSensors(context.Background(), sensors)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	data := blob.(model.GPUsData)
	if len(data.GPUs) != 1 {
		t.Fatalf("expected 1 gpu, got %d", len(data.GPUs))
	}
	if data.GPUs[0].Vendor != "AMD" {
		t.Fatalf("expected AMD, got %s", data.GPUs[0].Vendor)
	}
}

func TestGPUsWithoutSensorsFails(t *testing.T) {
	if _, err := NewGPUs().Refresh(context.Background()); err == nil {
		t.Fatalf("expected error without sensor snapshot")
	}
}

func TestCPUTemperatureSelection(t *testing.T) {
	sensors := model.SensorsData{
		Temperatures: []model.Temperature{
			{Key: "amdgpu_edge", Celsius: 61},
			{Key: "k10temp_tctl", Celsius: 44},
		},
	}
	temp := cpuTemperature(sensors)
	if temp == nil || *temp != 44 {
		t.Fatalf("expected cpu temperature 44, got %v", temp)
	}
}

func TestDefaultBindingsOrderAndMembership(t *testing.T) {
	bindings := DefaultBindings("test")
	seen := map[model.Module]bool{}
	for _, b := range bindings {
		if !model.IsModule(string(b.Module)) {
			t.Fatalf("binding for unknown module %q", b.Module)
		}
		if seen[b.Module] {
			t.Fatalf("duplicate binding for %q", b.Module)
		}
		seen[b.Module] = true
	}
	if seen[model.ModuleSensors] || seen[model.ModuleMedia] {
		t.Fatalf("sensors and media must not be in the default bindings")
	}
}
