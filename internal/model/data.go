package model

// Per-module data blobs. Each is replaced as a whole in the snapshot store;
// consumers never see a partially updated value.

type CPUData struct {
	Count        int       `json:"count"`
	Usage        float64   `json:"usage"`
	PerCPU       []float64 `json:"per_cpu"`
	FrequencyMHz float64   `json:"frequency_mhz"`
	Load1        float64   `json:"load_1"`
	Load5        float64   `json:"load_5"`
	Load15       float64   `json:"load_15"`
	Temperature  *float64  `json:"temperature,omitempty"`
}

type MemoryData struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
	SwapTotal   uint64  `json:"swap_total"`
	SwapUsed    uint64  `json:"swap_used"`
	SwapPercent float64 `json:"swap_percent"`
}

type Disk struct {
	Name        string  `json:"name"`
	Mountpoint  string  `json:"mountpoint"`
	Filesystem  string  `json:"filesystem"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
	ReadBytes   uint64  `json:"read_bytes"`
	WriteBytes  uint64  `json:"write_bytes"`
}

type DisksData struct {
	Disks []Disk `json:"disks"`
}

type NetworkInterface struct {
	Name        string `json:"name"`
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
	ErrIn       uint64 `json:"err_in"`
	ErrOut      uint64 `json:"err_out"`
}

type NetworksData struct {
	Interfaces []NetworkInterface `json:"interfaces"`
}

type Process struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	Username      string  `json:"username"`
	Status        string  `json:"status"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float32 `json:"memory_percent"`
}

type ProcessesData struct {
	Count     int       `json:"count"`
	Processes []Process `json:"processes"`
}

type BatteryData struct {
	Present          bool     `json:"present"`
	Percent          *float64 `json:"percent,omitempty"`
	Charging         *bool    `json:"charging,omitempty"`
	SecondsRemaining *int64   `json:"seconds_remaining,omitempty"`
}

type SystemData struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Architecture    string `json:"architecture"`
	BootTimeUnix    int64  `json:"boot_time_unix"`
	UptimeSeconds   uint64 `json:"uptime_seconds"`
	BridgeVersion   string `json:"bridge_version"`
}

type Temperature struct {
	Key      string   `json:"key"`
	Celsius  float64  `json:"celsius"`
	High     *float64 `json:"high,omitempty"`
	Critical *float64 `json:"critical,omitempty"`
}

type Fan struct {
	Key string `json:"key"`
	RPM int64  `json:"rpm"`
}

// SensorsData is the per-cycle shared input handed to sensor-aware
// providers. It is immutable after publication: the orchestrator computes
// it once per cycle and hands every consumer the same value.
type SensorsData struct {
	Temperatures []Temperature `json:"temperatures"`
	Fans         []Fan         `json:"fans"`
}

type GPU struct {
	Name        string   `json:"name"`
	Vendor      string   `json:"vendor"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type GPUsData struct {
	GPUs []GPU `json:"gpus"`
}

type MediaData struct {
	Available bool   `json:"available"`
	Status    string `json:"status,omitempty"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Album     string `json:"album,omitempty"`
}
