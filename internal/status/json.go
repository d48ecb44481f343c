package status

import (
	"encoding/json"
	"time"
)

// DeviceJSON is the /status document. Key names and order match the
// firmware this daemon replaces so existing dashboards keep working.
type DeviceJSON struct {
	Version     string `json:"version"`
	SSID        string `json:"ssid"`
	RSSI        int    `json:"rssi"`
	IP          string `json:"ip"`
	MAC         string `json:"mac"`
	ChipID      string `json:"chipId"`
	OTA         bool   `json:"ota"`
	OTATimer    int    `json:"otaTimer"`
	PingAddress string `json:"ping_address"`
	PingPeriod  int    `json:"ping_period"`
	PingState   int    `json:"ping_state"`
	Reboot      bool   `json:"reboot"`
	RebootTimer int    `json:"rebootTimer"`
}

// StatusJSON is the envelope for status snapshots published over MQTT.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the lifecycle event and the device view.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	BootID        string       `json:"boot_id,omitempty"`
	State         string       `json:"state"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTTConnected bool         `json:"mqtt_connected"`
	Device        DeviceJSON   `json:"device"`
	Network       *NetworkJSON `json:"network,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// Device converts a snapshot to the /status document.
func Device(snap Snapshot) DeviceJSON {
	d := DeviceJSON{
		Version:     snap.Version,
		ChipID:      snap.ChipID,
		OTA:         snap.OTA,
		OTATimer:    max(0, snap.OTATimer),
		PingAddress: snap.PingAddress,
		PingPeriod:  snap.PingPeriod,
		PingState:   int(snap.PingState),
		Reboot:      snap.Reboot,
		RebootTimer: max(0, snap.RebootTimer),
	}
	if n := snap.Network; n != nil {
		d.SSID = n.SSID
		d.RSSI = n.RSSI
		d.IP = n.IP
		d.MAC = n.MAC
	}
	return d
}

// FormatJSON returns the /status body.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.Marshal(Device(snap))
	return data
}

// FormatStatusEvent returns the payload for an MQTT lifecycle event that
// carries a full snapshot.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := StatusInner{
		Event:         event,
		Reason:        reason,
		BootID:        snap.BootID,
		State:         snap.PingState.String(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTTConnected: snap.MQTTConnected,
		Device:        Device(snap),
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
