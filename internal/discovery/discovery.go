// Package discovery advertises the recorder/control endpoint over mDNS so
// a two-machine lab setup (one PC presenting stimuli, a second running
// cmd/cadence-monitor) can find each other without typing in IP
// addresses. Optional, off by default -- started only when
// config.Config.Advertise is set.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
)

// ServiceType is the mDNS/DNS-SD service type this module advertises.
const ServiceType = "_cadence._tcp"

// Advertiser wraps a running dnssd responder for one advertised service.
type Advertiser struct {
	responder dnssd.Responder
	cancel    context.CancelFunc
}

// Advertise announces name on port over mDNS as ServiceType and starts
// responding to queries in the background.
func Advertise(name string, port int) (*Advertiser, error) {
	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	var svc, svcErr = dnssd.NewService(cfg)
	if svcErr != nil {
		return nil, fmt.Errorf("discovery: create service: %w", svcErr)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return nil, fmt.Errorf("discovery: create responder: %w", rpErr)
	}

	if _, err := rp.Add(svc); err != nil {
		return nil, fmt.Errorf("discovery: add service: %w", err)
	}

	var ctx, cancel = context.WithCancel(context.Background())

	go func() {
		_ = rp.Respond(ctx)
	}()

	return &Advertiser{responder: rp, cancel: cancel}, nil
}

// Stop ends the responder goroutine.
func (a *Advertiser) Stop() {
	if a == nil || a.cancel == nil {
		return
	}

	a.cancel()
}
