package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"go.uber.org/zap"
)

// Config selects the network interface and record TTL used for mDNS.
type Config struct {
	// Interface limits mDNS to one interface. Empty means all.
	Interface string

	// TTL overrides the record TTL. Zero keeps the zeroconf default.
	TTL time.Duration

	Logger *zap.SugaredLogger
}

func (c Config) interfaces() []net.Interface {
	if c.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(c.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

func (c Config) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}

// Advertiser publishes a single redial service instance.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
	svc    *Service
}

// NewAdvertiser creates an advertiser. Nothing is published until
// Advertise is called.
func NewAdvertiser(config Config) *Advertiser {
	return &Advertiser{config: config}
}

// Advertise registers svc, replacing any previous registration.
func (a *Advertiser) Advertise(svc *Service) error {
	if err := ValidateInstanceName(svc.Instance); err != nil {
		return err
	}
	if svc.Port <= 0 || svc.Port > 65535 {
		return fmt.Errorf("invalid port %d", svc.Port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		svc.Instance,
		ServiceType,
		Domain,
		svc.Port,
		EncodeTXT(svc),
		a.config.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register %s: %w", svc.Instance, err)
	}

	a.server = server
	a.svc = svc
	a.config.logger().Infow("advertising", "instance", svc.Instance, "port", svc.Port, "path", svc.Path)
	return nil
}

// Advertised returns the currently published service, or nil.
func (a *Advertiser) Advertised() *Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.svc
}

// Stop withdraws the registration. It is safe to call more than once.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.config.logger().Infow("advertisement withdrawn", "instance", a.svc.Instance)
	a.svc = nil
}

// Browse streams redial services until ctx ends. An instance answering on
// several interfaces is delivered once, until it is removed.
func Browse(ctx context.Context, config Config) (<-chan *Service, error) {
	out := make(chan *Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if ifaces := config.interfaces(); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	log := config.logger()

	go func() {
		defer close(out)

		seen := make(map[string]bool)
		gone := (<-chan *zeroconf.ServiceEntry)(removed)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc, err := entryToService(entry)
				if err != nil {
					log.Debugw("skipping service entry", "instance", entry.Instance, "error", err)
					continue
				}
				if seen[svc.Instance] {
					continue
				}
				seen[svc.Instance] = true
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-gone:
				if !ok {
					gone = nil
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...); err != nil {
			log.Warnw("mDNS browse failed", "error", err)
		}
	}()

	return out, nil
}

// Resolve browses until an instance named instance answers, or any
// instance when instance is empty.
func Resolve(ctx context.Context, instance string, config Config) (*Service, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	services, err := Browse(ctx, config)
	if err != nil {
		return nil, err
	}
	for svc := range services {
		if instance == "" || svc.Instance == instance {
			return svc, nil
		}
	}
	if instance == "" {
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, instance)
}

func entryToService(entry *zeroconf.ServiceEntry) (*Service, error) {
	svc := &Service{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      entry.Port,
		Addresses: ipStrings(entry.AddrIPv4, entry.AddrIPv6),
	}
	if err := DecodeTXT(svc, entry.Text); err != nil {
		return nil, err
	}
	return svc, nil
}
