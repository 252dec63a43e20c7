package network

import (
	"fmt"
	"net"
)

// DiscoverLANIP picks the IPv4 address the server should bind and
// advertise. When ifaceName is set, only that interface is considered.
// Private (RFC 1918) addresses are preferred; loopback is the fallback
// so the server still works on machines with no LAN connectivity.
func DiscoverLANIP(ifaceName string) (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var fallback net.IP
	for _, iface := range ifaces {
		if ifaceName != "" && iface.Name != ifaceName {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil {
				continue
			}
			if isPrivateIPv4(ip) {
				return ip, nil
			}
			if fallback == nil && !ip.IsLoopback() {
				fallback = ip
			}
		}
	}
	if ifaceName != "" && fallback == nil {
		return nil, fmt.Errorf("no usable IPv4 address on interface %s", ifaceName)
	}
	if fallback != nil {
		return fallback, nil
	}
	return net.IPv4(127, 0, 0, 1), nil
}

// isPrivateIPv4 reports whether ip is in an RFC 1918 range. Loopback is
// not considered private here: it is never a usable LAN address.
func isPrivateIPv4(ip net.IP) bool {
	if ip = ip.To4(); ip == nil {
		return false
	}
	switch {
	case ip[0] == 10:
		return true
	case ip[0] == 172 && ip[1] >= 16 && ip[1] <= 31:
		return true
	case ip[0] == 192 && ip[1] == 168:
		return true
	}
	return false
}
