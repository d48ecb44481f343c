package main

import (
	"net"
	"os"
	"strings"

	"github.com/sweeney/net-watchdog/internal/status"
)

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

var (
	wirelessPath    = "/proc/net/wireless"
	machineIDPath   = "/etc/machine-id"
	interfaceByName = net.InterfaceByName
)

// readNetworkInfo combines the pi-helper environment with what the kernel
// reports for iface. It returns nil when nothing is known.
func readNetworkInfo(iface string) *status.NetworkInfo {
	info := &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     os.Getenv(envNetworkStatus),
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
	known := info.Status != ""

	if iface != "" {
		if ifi, err := interfaceByName(iface); err == nil {
			info.MAC = ifi.HardwareAddr.String()
			if info.IP == "" {
				info.IP = firstIPv4(ifi)
			}
			known = true
		}
		if f, err := os.Open(wirelessPath); err == nil {
			if rssi, ok := status.ParseWireless(f, iface); ok {
				info.RSSI = rssi
			}
			f.Close()
		}
	}

	if !known {
		return nil
	}
	return info
}

func firstIPv4(ifi *net.Interface) string {
	addrs, err := ifi.Addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
			return ipn.IP.String()
		}
	}
	return ""
}

// readChipID returns a stable device identifier: the systemd machine id,
// or the hostname when that is unavailable.
func readChipID() string {
	if b, err := os.ReadFile(machineIDPath); err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id
		}
	}
	host, _ := os.Hostname()
	return host
}
