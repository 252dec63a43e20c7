package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/opsdrop/logzip/internal/protocol"
)

// Advertiser keeps an mDNS registration alive until closed.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers a logzip server on the local network so that
// "logzip search" can find it. Best effort: callers treat a failure as
// a log line, not a startup error.
func Advertise(instance string, ip net.IP, port int) (*Advertiser, error) {
	txt := []string{"path=" + protocol.DownloadPath}
	server, err := zeroconf.RegisterProxy(
		instance,
		protocol.ServiceType,
		protocol.ServiceDomain,
		port,
		instance,
		[]string{ip.String()},
		txt,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Close withdraws the registration.
func (a *Advertiser) Close() {
	if a.server != nil {
		a.server.Shutdown()
	}
}

// Service is one discovered logzip server.
type Service struct {
	Name string
	URL  string
}

// Browse searches the local network for logzip servers for the given
// timeout and returns whatever answered.
func Browse(ctx context.Context, timeout time.Duration) ([]Service, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var services []Service
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if len(entry.AddrIPv4) == 0 {
				continue
			}
			services = append(services, Service{
				Name: entry.Instance,
				URL:  fmt.Sprintf("http://%s:%d%s", entry.AddrIPv4[0], entry.Port, protocol.DownloadPath),
			})
		}
	}()

	if err := resolver.Browse(ctx, protocol.ServiceType, protocol.ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}
	<-ctx.Done()
	<-done
	return services, nil
}
