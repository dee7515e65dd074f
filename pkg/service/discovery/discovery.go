// Zaparoo Core
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Core.
//
// Zaparoo Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Core.  If not, see <http://www.gnu.org/licenses/>.

package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ServiceType is the DNS-SD service type the IPC API is advertised under.
const ServiceType = "_zaparoo-desktop._tcp"

// retryInterval is how often to retry mDNS registration when network is unavailable.
const retryInterval = 30 * time.Second

// maxRetryDuration is the maximum time to keep retrying mDNS registration.
const maxRetryDuration = 5 * time.Minute

// virtualInterfacePrefixes lists common prefixes for virtual/container network interfaces
// that should be excluded from mDNS registration.
var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg", "vmnet", "vboxnet",
}

func getPreferredInterfaces() ([]net.Interface, error) {
	allIfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}

	return filterInterfaces(allIfaces), nil
}

// filterInterfaces keeps interfaces that are up, non-loopback,
// multicast-capable and not virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		// mDNS requires multicast
		if iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		if isVirtualInterface(iface.Name) {
			continue
		}

		preferred = append(preferred, iface)
	}

	return preferred
}

func isVirtualInterface(name string) bool {
	lowerName := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lowerName, prefix) {
			return true
		}
	}
	return false
}

// listensRemotely reports whether a listen address accepts connections from
// other hosts. Wildcard and empty hosts count as remote.
func listensRemotely(listen string) bool {
	host, _, err := net.SplitHostPort(listen)
	if err != nil {
		host = listen
	}
	if strings.EqualFold(host, "localhost") {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return host == ""
	}
	return !ip.IsLoopback()
}

// Service advertises the IPC API over mDNS so clients on the local network
// can find the desktop service without manual configuration.
type Service struct {
	clock        clockwork.Clock
	server       *zeroconf.Server
	cfg          *config.Instance
	cancelFunc   context.CancelFunc
	hostname     func() (string, error)
	instanceName string
	stopped      bool
	mu           syncutil.Mutex
}

// New creates a new discovery service.
func New(cfg *config.Instance) *Service {
	return &Service{
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		hostname: os.Hostname,
	}
}

// Start begins mDNS advertising. When the first registration fails, usually
// because the network is not ready yet, registration is retried in the
// background. Disabled or loopback-only setups are not an error.
func (s *Service) Start() error {
	if !s.cfg.DiscoveryEnabled() {
		log.Debug().Msg("mDNS discovery disabled by configuration")
		return nil
	}

	if !listensRemotely(s.cfg.APIListen()) {
		log.Info().
			Str("listen", s.cfg.APIListen()).
			Msg("API only listens on loopback, skipping mDNS discovery")
		return nil
	}

	s.instanceName = s.resolveInstanceName()

	if s.tryRegister() {
		return nil
	}

	log.Info().
		Dur("retryInterval", retryInterval).
		Dur("maxDuration", maxRetryDuration).
		Msg("mDNS registration failed, starting background retry")

	ctx, cancel := context.WithTimeout(context.Background(), maxRetryDuration)
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancelFunc = cancel
	s.mu.Unlock()

	go s.retryLoop(ctx)

	return nil
}

func (s *Service) txtRecords() []string {
	return []string{
		"version=" + config.AppVersion,
		"platform=" + runtime.GOOS,
		"path=" + api.IPCPath,
	}
}

// tryRegister attempts to register the mDNS service. Returns true on success.
func (s *Service) tryRegister() bool {
	port := s.cfg.APIPort()

	ifaces, err := getPreferredInterfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to get network interfaces")
		return false
	}

	if len(ifaces) == 0 {
		log.Debug().Msg("no suitable network interfaces found for mDNS")
		return false
	}

	ifaceNames := make([]string, len(ifaces))
	for i, iface := range ifaces {
		ifaceNames[i] = iface.Name
	}

	server, err := zeroconf.Register(
		s.instanceName,
		ServiceType,
		"local.",
		port,
		s.txtRecords(),
		ifaces,
	)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return false
	}

	s.mu.Lock()
	// Stop may have run while registering.
	if s.stopped {
		s.mu.Unlock()
		server.Shutdown()
		return false
	}
	s.server = server
	s.mu.Unlock()

	log.Info().
		Str("instance", s.instanceName).
		Int("port", port).
		Str("type", ServiceType).
		Strs("interfaces", ifaceNames).
		Msg("mDNS service advertising started")

	return true
}

func (s *Service) retryLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if s.tryRegister() {
				log.Info().Msg("mDNS registration succeeded after retry")
				return
			}
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				log.Warn().Msg("mDNS registration retry timed out, discovery will not be available")
			}
			return
		}
	}
}

// Stop shuts down mDNS advertising, sending goodbye packets. Safe to call
// more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	if s.server != nil {
		log.Debug().Msg("stopping mDNS service advertising")
		s.server.Shutdown()
		s.server = nil
	}
}

// InstanceName returns the advertised instance name, empty until Start has
// registered.
func (s *Service) InstanceName() string {
	return s.instanceName
}

func (s *Service) resolveInstanceName() string {
	hostname, err := s.hostname()
	if err != nil || hostname == "" {
		log.Warn().Err(err).Msg("failed to get hostname, using fallback instance name")
		return helpers.AppName
	}
	return hostname + " (" + helpers.AppName + ")"
}
