package portal

import (
	"net"
	"os"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/netutil"
)

// Fallback identity fields. The portal rejects malformed identity fields but
// accepts wrong ones, so resolution failures degrade to these instead of
// aborting the login.
const (
	FallbackIP  = "172.17.0.0"
	FallbackMAC = "000000000000"
)

// Resolver determines the IP and MAC presented to the portal.
//
// The host lookups are plain function fields so tests can replace them.
type Resolver struct {
	// Hostname returns the host's name. Set by [NewResolver] to [os.Hostname].
	Hostname func() (string, error)

	// LookupIP resolves a hostname. Set by [NewResolver] to [netutil.ResolveHost].
	LookupIP func(host string) ([]net.IP, error)

	// Interfaces lists network interfaces. Set by [NewResolver] to [net.Interfaces].
	Interfaces func() ([]net.Interface, error)
}

// NewResolver returns a [*Resolver] bound to the host network stack.
func NewResolver() *Resolver {
	return &Resolver{
		Hostname:   os.Hostname,
		LookupIP:   netutil.ResolveHost,
		Interfaces: net.Interfaces,
	}
}

// Resolve returns override verbatim when it is non-nil, otherwise the
// identity of this host with per-field fallbacks.
func (r *Resolver) Resolve(override *v1.DeviceIdentity) v1.DeviceIdentity {
	if override != nil {
		return *override
	}
	return v1.DeviceIdentity{IP: r.localIP(), MAC: r.localMAC()}
}

func (r *Resolver) localIP() string {
	name, err := r.Hostname()
	if err != nil {
		return FallbackIP
	}
	ips, err := r.LookupIP(name)
	if err != nil {
		return FallbackIP
	}
	ip, err := netutil.FirstIPv4(ips)
	if err != nil {
		return FallbackIP
	}
	return ip
}

func (r *Resolver) localMAC() string {
	ifaces, err := r.Interfaces()
	if err != nil {
		return FallbackMAC
	}
	mac, err := netutil.PickMAC(ifaces)
	if err != nil {
		return FallbackMAC
	}
	return mac
}
