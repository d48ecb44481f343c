package ota

import (
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser registers the OTA service with zeroconf.
type MDNSAdvertiser struct {
	// Interface restricts advertising to one interface; empty means all.
	Interface string
	// TTL in seconds; zero keeps the library default.
	TTL uint32

	mu     sync.Mutex
	server *zeroconf.Server
}

// getInterfaces returns the interfaces to advertise on, nil meaning all.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise registers the service, replacing any earlier registration.
func (a *MDNSAdvertiser) Advertise(instance string, port int, txt []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.TTL > 0 {
		opts = append(opts, zeroconf.TTL(a.TTL))
	}

	server, err := zeroconf.Register(instance, ServiceType, Domain, port, txt, a.getInterfaces(), opts...)
	if err != nil {
		return fmt.Errorf("register ota service: %w", err)
	}
	a.server = server
	return nil
}

// Withdraw stops advertising.
func (a *MDNSAdvertiser) Withdraw() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}
