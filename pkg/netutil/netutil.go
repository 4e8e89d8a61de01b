// Package netutil provides network utility helpers used across eportal.
package netutil

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	// macRegex matches the portal's MAC rendering: 12 hex digits, no separators.
	macRegex = regexp.MustCompile(`^[0-9A-F]{12}$`)

	// macSeparators are stripped by NormalizeMAC.
	macSeparators = strings.NewReplacer(":", "", "-", "", ".", "")
)

// IsValidIPv4 returns true if s is a dotted-quad IPv4 address.
func IsValidIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && !strings.Contains(s, ":")
}

// IsValidMAC returns true if s is already in portal form (AABBCCDDEEFF).
func IsValidMAC(s string) bool {
	return macRegex.MatchString(s)
}

// NormalizeMAC accepts aa:bb:cc:dd:ee:ff, AA-BB-..., aabb.ccdd.eeff or bare hex and
// returns the 12-char uppercase form.
func NormalizeMAC(s string) (string, error) {
	out := strings.ToUpper(macSeparators.Replace(strings.TrimSpace(s)))
	if !IsValidMAC(out) {
		return "", fmt.Errorf("invalid MAC address %q", s)
	}
	return out, nil
}

// FormatMAC renders a hardware address as 12 uppercase hex chars.
func FormatMAC(hw net.HardwareAddr) string {
	return strings.ToUpper(hex.EncodeToString(hw))
}

// FirstIPv4 returns the first IPv4 address in ips.
func FirstIPv4(ips []net.IP) (string, error) {
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", fmt.Errorf("no IPv4 address among %d candidates", len(ips))
}

// PickMAC returns the hardware address of the first interface that is up, not
// loopback and carries a 6-byte (EUI-48) address.
func PickMAC(ifaces []net.Interface) (string, error) {
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 || ifc.Flags&net.FlagUp == 0 {
			continue
		}
		if len(ifc.HardwareAddr) != 6 {
			continue
		}
		return FormatMAC(ifc.HardwareAddr), nil
	}
	return "", fmt.Errorf("no usable hardware address among %d interfaces", len(ifaces))
}

// ResolveHost resolves a hostname and returns its IP addresses.
func ResolveHost(host string) ([]net.IP, error) {
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses resolved for %q", host)
	}
	return ips, nil
}

// HostOf returns the host[:port] part of rawURL, or "" if it has none.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// ValidatePortalURL checks that rawURL is an absolute http(s) URL with a host.
func ValidatePortalURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q in %q", u.Scheme, rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", rawURL)
	}
	return nil
}
