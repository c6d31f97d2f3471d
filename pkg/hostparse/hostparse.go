package hostparse

import (
	"strconv"
	"strings"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
)

// DefaultPort is used for a seed entry that omits a port.
const DefaultPort = 3000

// Host is one resolved seed entry: an address plus an optional TLS name
// used for certificate verification (spec §6, Non-goals: TLS itself is
// not implemented, but the name is still parsed and carried so a future
// transport can use it).
type Host struct {
	Name    string
	TLSName string
	Port    int
}

// ParseHosts parses the canonical AEROSPIKE_HOSTS seed format: a
// comma-separated list of host[:tls-name][:port] entries (spec §6).
func ParseHosts(s string) ([]Host, error) {
	parts := strings.Split(s, ",")
	hosts := make([]Host, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		h, err := parseHost(part)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	if len(hosts) == 0 {
		return nil, aeroerr.New(aeroerr.Policy, "no seed hosts supplied")
	}
	return hosts, nil
}

// parseHost handles a single entry. A bare IPv4 address can itself
// contain dots but never colons, so splitting on ':' is unambiguous
// here (IPv6 literals are a Non-goal per spec).
func parseHost(entry string) (Host, error) {
	fields := strings.Split(entry, ":")
	switch len(fields) {
	case 1:
		return Host{Name: fields[0], Port: DefaultPort}, nil
	case 2:
		port, err := strconv.Atoi(fields[1])
		if err != nil {
			return Host{}, aeroerr.Newf(aeroerr.Policy, "invalid port in seed host %q: %v", entry, err)
		}
		return Host{Name: fields[0], Port: port}, nil
	case 3:
		port, err := strconv.Atoi(fields[2])
		if err != nil {
			return Host{}, aeroerr.Newf(aeroerr.Policy, "invalid port in seed host %q: %v", entry, err)
		}
		return Host{Name: fields[0], TLSName: fields[1], Port: port}, nil
	default:
		return Host{}, aeroerr.Newf(aeroerr.Policy, "malformed seed host %q", entry)
	}
}
