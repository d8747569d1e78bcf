package provider

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hostbridge/internal/model"
)

// Battery reads the first battery under the power-supply sysfs tree.
// Desktops without a battery report Present=false rather than an error.
type Battery struct {
	root string
}

func NewBattery() *Battery {
	return &Battery{root: "/sys/class/power_supply"}
}

// NewBatteryAt reads from an alternate sysfs root.
func NewBatteryAt(root string) *Battery {
	return &Battery{root: root}
}

func (p *Battery) Refresh(ctx context.Context) (any, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		if os.IsNotExist(err) {
			return model.BatteryData{Present: false}, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		dir := filepath.Join(p.root, entry.Name())
		if readSysfs(dir, "type") != "Battery" {
			continue
		}
		data := model.BatteryData{Present: true}
		if v, err := strconv.ParseFloat(readSysfs(dir, "capacity"), 64); err == nil {
			data.Percent = &v
		}
		switch readSysfs(dir, "status") {
		case "Charging":
			charging := true
			data.Charging = &charging
		case "Discharging", "Not charging":
			charging := false
			data.Charging = &charging
		}
		if secs := remainingSeconds(dir); secs > 0 {
			data.SecondsRemaining = &secs
		}
		return data, nil
	}
	return model.BatteryData{Present: false}, nil
}

// remainingSeconds estimates time to empty from charge and current readings.
func remainingSeconds(dir string) int64 {
	charge, err1 := strconv.ParseFloat(readSysfs(dir, "charge_now"), 64)
	current, err2 := strconv.ParseFloat(readSysfs(dir, "current_now"), 64)
	if err1 != nil || err2 != nil || current <= 0 {
		return 0
	}
	return int64(charge / current * 3600)
}

func readSysfs(dir, file string) string {
	b, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
