package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brutella/dnssd"
)

var ErrNoServer = errors.New("no backup server found on the local network")

type MDNSAdapter struct{}

// Discover browses for instances of the given service type and streams
// snapshots of the currently visible set. The channel closes when the lookup
// ends, normally through context cancellation.
func (m *MDNSAdapter) Discover(ctx context.Context, service string) <-chan DiscoveryResult {
	var (
		mu      sync.RWMutex
		entries = make(map[string]ServiceInfo)
		outCh   = make(chan DiscoveryResult, 10)
	)

	sendSnapshot := func() {
		mu.Lock()
		defer mu.Unlock()
		snapshot := make([]ServiceInfo, 0, len(entries))
		for _, entry := range entries {
			snapshot = append(snapshot, entry)
		}
		select {
		case outCh <- DiscoveryResult{Services: snapshot, Error: nil}:
		default:
		}
	}

	sendError := func(err error) {
		select {
		case outCh <- DiscoveryResult{Services: nil, Error: err}:
		default:
		}
	}

	addFn := func(e dnssd.BrowseEntry) {
		if len(e.IPs) == 0 {
			return
		}
		mu.Lock()
		entries[fmt.Sprintf("%s:%s:%s", e.Name, e.Type, e.Domain)] = ServiceInfo{
			Name:   e.Name,
			Type:   e.Type,
			Domain: e.Domain,
			Addr:   e.IPs[0],
			Port:   e.Port,
		}
		mu.Unlock()
		sendSnapshot()
	}

	rmvFn := func(e dnssd.BrowseEntry) {
		mu.Lock()
		delete(entries, fmt.Sprintf("%s:%s:%s", e.Name, e.Type, e.Domain))
		mu.Unlock()
		sendSnapshot()
	}

	go func() {
		defer close(outCh)
		if err := dnssd.LookupType(ctx, service, addFn, rmvFn); err != nil {
			sendError(fmt.Errorf("mDNS lookup failed: %w", err))
		}
	}()

	return outCh
}

// FindServer browses for backup servers and returns the first one seen, or
// ErrNoServer when the timeout elapses with nothing on the network.
func FindServer(ctx context.Context, adapter Adapter, timeout time.Duration) (*ServiceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := adapter.Discover(ctx, fmt.Sprintf("%s.%s.", DefaultServerType, DefaultDomain))
	for {
		select {
		case <-ctx.Done():
			return nil, ErrNoServer
		case result, ok := <-results:
			if !ok {
				return nil, ErrNoServer
			}
			if result.Error != nil {
				return nil, result.Error
			}
			if len(result.Services) > 0 {
				service := result.Services[0]
				return &service, nil
			}
		}
	}
}
