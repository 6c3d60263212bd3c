package artnet

import (
	"fmt"
	"net"
)

// FindArtNetIP finds the matching interface with an IPv4 address inside cidr.
// It returns nil without error when no interface matches.
func FindArtNetIP(cidr string) (net.IP, error) {
	_, cidrNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("art-net network %q: %w", cidr, err)
	}
	address, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("error getting ips: %w", err)
	}

	for _, addr := range address {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.To4() == nil {
			continue
		}
		if cidrNet.Contains(ipNet.IP) {
			return ipNet.IP, nil
		}
	}

	return nil, nil
}
