// ABOUTME: mDNS browsing for on-air relay servers
// ABOUTME: Finds _onair-server._tcp services on the local network
package discovery

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service relay servers advertise
const ServiceType = "_onair-server._tcp"

// Config holds discovery configuration
type Config struct {
	// Service defaults to ServiceType
	Service string

	// QueryTimeout bounds one mDNS query round (default: 3s)
	QueryTimeout time.Duration

	Logger *slog.Logger
}

// ServerInfo describes a discovered server
type ServerInfo struct {
	Name string
	Host string
	Port int

	// Path is the websocket path from the TXT record, if advertised
	Path string
}

// Addr returns host:port
func (s ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Browser repeatedly queries mDNS and reports each server once
type Browser struct {
	config  Config
	logger  *slog.Logger
	servers chan ServerInfo

	query func(*mdns.QueryParam) error
}

// NewBrowser creates a discovery browser
func NewBrowser(config Config) *Browser {
	if config.Service == "" {
		config.Service = ServiceType
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 3 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Browser{
		config:  config,
		logger:  config.Logger,
		servers: make(chan ServerInfo, 10),
		query:   mdns.Query,
	}
}

// Servers returns the channel of discovered servers
func (b *Browser) Servers() <-chan ServerInfo {
	return b.servers
}

// Run browses until ctx is cancelled, then closes the servers channel
func (b *Browser) Run(ctx context.Context) {
	defer close(b.servers)

	seen := make(map[string]bool)
	for ctx.Err() == nil {
		entries := make(chan *mdns.ServiceEntry, 10)
		drained := make(chan struct{})

		go func() {
			defer close(drained)
			for entry := range entries {
				server, ok := serverFromEntry(entry)
				if !ok || seen[server.Name] {
					continue
				}
				seen[server.Name] = true

				b.logger.Info("Discovered server", "name", server.Name, "addr", server.Addr())
				select {
				case b.servers <- server:
				case <-ctx.Done():
				}
			}
		}()

		err := b.query(&mdns.QueryParam{
			Service:     b.config.Service,
			Domain:      "local",
			Timeout:     b.config.QueryTimeout,
			Entries:     entries,
			DisableIPv6: true,
		})
		close(entries)
		<-drained

		if err != nil {
			b.logger.Warn("mDNS query failed", "error", err)
			select {
			case <-time.After(b.config.QueryTimeout):
			case <-ctx.Done():
			}
		}
	}
}

// Discover returns the first server found before ctx expires
func Discover(ctx context.Context, config Config) (ServerInfo, error) {
	return discover(ctx, NewBrowser(config))
}

func discover(ctx context.Context, b *Browser) (ServerInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go b.Run(ctx)

	select {
	case server, ok := <-b.servers:
		if ok {
			return server, nil
		}
	case <-ctx.Done():
	}
	return ServerInfo{}, errors.New("no relay server found")
}

// serverFromEntry converts an mDNS answer, preferring the IPv4 address
func serverFromEntry(entry *mdns.ServiceEntry) (ServerInfo, bool) {
	if entry == nil || entry.Port == 0 {
		return ServerInfo{}, false
	}

	host := strings.TrimSuffix(entry.Host, ".")
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	}
	if host == "" {
		return ServerInfo{}, false
	}

	server := ServerInfo{
		Name: strings.TrimSuffix(entry.Name, "."),
		Host: host,
		Port: entry.Port,
	}
	for _, field := range entry.InfoFields {
		if path, ok := strings.CutPrefix(field, "path="); ok {
			server.Path = path
		}
	}
	return server, true
}
