package validator

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/asaskevich/govalidator/v11"
)

var (
	ErrMalformed      = errors.New("malformed URL")
	ErrScheme         = errors.New("unsupported URL scheme")
	ErrPrivateAddress = errors.New("private or reserved address")
)

// Validate classifies a raw string as a fetchable feed URL. The private
// address check is lexical only: it inspects the hostname as written and
// never resolves DNS, so it defends against direct SSRF targets, not
// rebinding.
func Validate(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return "", fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}

	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return "", fmt.Errorf("%w: %s", ErrPrivateAddress, host)
	}

	if govalidator.IsIPv4(host) || govalidator.IsIPv6(host) {
		if ip := net.ParseIP(host); ip != nil && isForbiddenIP(ip) {
			return "", fmt.Errorf("%w: %s", ErrPrivateAddress, host)
		}
	} else if !govalidator.IsDNSName(host) {
		return "", fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	return raw, nil
}

// isForbiddenIP reports whether the literal address falls in a
// loopback, private, link-local, multicast or otherwise reserved range.
func isForbiddenIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		// 0.0.0.0/8 and everything from 224.0.0.0 up (multicast + reserved)
		if ip4[0] == 0 || ip4[0] >= 224 {
			return true
		}
	}
	return false
}
