package vfs

import (
	"fmt"
	"net"
	"strings"
)

// OpClass classifies NFS procedures for policy evaluation. The classification
// is fixed by the protocol: a procedure either mutates on-disk state or it
// does not. Policy never consults filesystem state.
type OpClass int

const (
	// OpRead covers LOOKUP, GETATTR, READ, READDIR, ACCESS, FSSTAT, etc.
	OpRead OpClass = iota

	// OpWrite covers WRITE, CREATE, MKDIR, REMOVE, RMDIR, RENAME, SYMLINK,
	// LINK, COMMIT and any SETATTR that changes content or permissions.
	OpWrite
)

func (c OpClass) String() string {
	if c == OpWrite {
		return "write"
	}
	return "read"
}

// AccessPolicy combines the client allow-list with global and per-mount
// read-only flags into an effective permission decision. It is derived
// entirely from configuration, built once at startup, and immutable.
type AccessPolicy struct {
	globalReadOnly bool

	// allowed is the parsed allow-list; empty means every client is allowed.
	allowed []*net.IPNet
}

// NewAccessPolicy parses the configured allow-list. Entries may be bare IPs
// ("192.168.1.7") or CIDR ranges ("10.0.0.0/8"); an unparsable entry is a
// startup error.
func NewAccessPolicy(globalReadOnly bool, allowIPs []string) (*AccessPolicy, error) {
	p := &AccessPolicy{globalReadOnly: globalReadOnly}

	for _, entry := range allowIPs {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			_, ipnet, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid allow_ips entry %q: %w", entry, err)
			}
			p.allowed = append(p.allowed, ipnet)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid allow_ips entry %q", entry)
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		p.allowed = append(p.allowed, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}

	return p, nil
}

// GlobalReadOnly reports whether the whole server is read-only.
func (p *AccessPolicy) GlobalReadOnly() bool { return p.globalReadOnly }

// AllowedNetworks returns the configured allow-list in CIDR form, for the
// MOUNT protocol's EXPORT listing. Empty means everyone.
func (p *AccessPolicy) AllowedNetworks() []string {
	networks := make([]string, 0, len(p.allowed))
	for _, ipnet := range p.allowed {
		networks = append(networks, ipnet.String())
	}
	return networks
}

// ClientAllowed checks the client address (either "ip:port" or a bare IP)
// against the allow-list. An empty allow-list admits everyone.
func (p *AccessPolicy) ClientAllowed(clientAddr string) bool {
	if len(p.allowed) == 0 {
		return true
	}

	host := clientAddr
	if h, _, err := net.SplitHostPort(clientAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, ipnet := range p.allowed {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}

// Evaluate produces the effective permission decision for one operation:
// the client must pass the allow-list, and mutating operations must not hit
// the global or per-mount read-only flag. mount may be nil for operations on
// the synthetic root, which is always read-only.
func (p *AccessPolicy) Evaluate(clientAddr string, mount *MountEntry, class OpClass) error {
	if !p.ClientAllowed(clientAddr) {
		return newError(ErrAccessDenied, "client not in allow list", clientAddr)
	}

	if class == OpWrite {
		if p.globalReadOnly {
			return newError(ErrReadOnly, "server is read-only", "")
		}
		if mount == nil {
			return newError(ErrReadOnly, "virtual root is read-only", "")
		}
		if mount.ReadOnly {
			return newError(ErrReadOnly, "mount is read-only", mount.Target)
		}
	}

	return nil
}
