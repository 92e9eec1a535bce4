package ssrf

import "net"

// privateIPv6Prefixes are the reserved IPv6 ranges checked alongside
// the stdlib's IsLoopback/IsLinkLocalUnicast/IsMulticast helpers.
var privateIPv6Prefixes = []*net.IPNet{
	mustParseCIDR("fc00::/7"),  // unique local
	mustParseCIDR("fe80::/10"), // link-local
	mustParseCIDR("ff00::/8"),  // multicast
}

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// IsPrivateOrLocal reports whether ip falls in a private, loopback,
// link-local, broadcast, documentation, unspecified, or
// leading-zero-octet range for IPv4, or a loopback, unspecified,
// unique-local, link-local, or multicast range for IPv6.
func IsPrivateOrLocal(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		return isPrivateIPv4(v4)
	}
	return isPrivateIPv6(ip)
}

func isPrivateIPv4(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsPrivate() {
		return true
	}
	if ip[0] == 0 {
		return true // leading-octet-zero ("this" network)
	}
	if ip.Equal(net.IPv4bcast) {
		return true
	}
	// 100.64.0.0/10 carrier-grade NAT
	if ip[0] == 100 && ip[1]&0xc0 == 64 {
		return true
	}
	// 192.0.2.0/24, 198.51.100.0/24, 203.0.113.0/24 documentation
	if (ip[0] == 192 && ip[1] == 0 && ip[2] == 2) ||
		(ip[0] == 198 && ip[1] == 51 && ip[2] == 100) ||
		(ip[0] == 203 && ip[1] == 0 && ip[2] == 113) {
		return true
	}
	// 169.254.0.0/16 link-local, including the cloud metadata address
	if ip[0] == 169 && ip[1] == 254 {
		return true
	}
	return false
}

func isPrivateIPv6(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsMulticast() || ip.IsLinkLocalUnicast() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		return isPrivateIPv4(v4)
	}
	for _, prefix := range privateIPv6Prefixes {
		if prefix.Contains(ip) {
			return true
		}
	}
	return false
}
