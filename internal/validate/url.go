package validate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// URL validation errors
var (
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrDisallowedScheme = errors.New("URL scheme not allowed")
	ErrDisallowedDomain = errors.New("URL domain not allowed")
	ErrSSRFRisk         = errors.New("URL poses SSRF risk")
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// URLConstraints defines validation constraints for URLs.
type URLConstraints struct {
	AllowedSchemes []string // e.g., []string{"https", "http"}
	AllowedDomains []string // If non-empty, only these domains and their subdomains are allowed
	BlockPrivate   bool     // Reject hosts resolving to loopback, private or link-local addresses
	MaxLength      int      // Maximum URL length (0 = no limit)
	Resolver       Resolver // Defaults to net.DefaultResolver
}

// ScanTargetConstraints returns the constraints for pages loaded in the
// browser: http or https, at most 2048 bytes, private networks blocked when
// blockPrivate is set.
func ScanTargetConstraints(blockPrivate bool) URLConstraints {
	return URLConstraints{
		AllowedSchemes: []string{"https", "http"},
		BlockPrivate:   blockPrivate,
		MaxLength:      2048,
	}
}

// URL validates a URL against the given constraints and returns it trimmed.
func URL(ctx context.Context, urlStr string, constraints URLConstraints) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return "", ErrEmpty
	}

	if constraints.MaxLength > 0 && len(urlStr) > constraints.MaxLength {
		return "", fmt.Errorf("%w: URL exceeds %d characters", ErrStringTooLong, constraints.MaxLength)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if len(constraints.AllowedSchemes) > 0 && !slices.Contains(constraints.AllowedSchemes, strings.ToLower(parsed.Scheme)) {
		return "", fmt.Errorf("%w: got %q, allowed: %v", ErrDisallowedScheme, parsed.Scheme, constraints.AllowedSchemes)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}

	if len(constraints.AllowedDomains) > 0 && !domainAllowed(hostname, constraints.AllowedDomains) {
		return "", fmt.Errorf("%w: %q not in allowlist", ErrDisallowedDomain, hostname)
	}

	if constraints.BlockPrivate {
		if err := CheckHost(ctx, constraints.Resolver, hostname); err != nil {
			return "", err
		}
	}

	return urlStr, nil
}

func domainAllowed(hostname string, domains []string) bool {
	hostname = strings.ToLower(hostname)
	for _, domain := range domains {
		domain = strings.ToLower(domain)
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			return true
		}
	}
	return false
}

// numericLabelPattern matches a host label browsers read as part of an
// IPv4 address: decimal, octal with a leading zero, or 0x hex.
var numericLabelPattern = regexp.MustCompile(`^(?:0[xX][0-9a-fA-F]*|[0-9]+)$`)

// CheckHost rejects hostnames that are, or resolve to, internal addresses.
// A nil resolver means net.DefaultResolver. Hosts that fail to resolve are
// rejected.
func CheckHost(ctx context.Context, resolver Resolver, hostname string) error {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return checkSSRF(ctx, resolver, hostname)
}

// checkSSRF rejects hostnames that are, or resolve to, internal addresses.
func checkSSRF(ctx context.Context, resolver Resolver, hostname string) error {
	lower := strings.TrimSuffix(strings.ToLower(hostname), ".")
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") || lower == "localhost.localdomain" {
		return fmt.Errorf("%w: localhost not allowed", ErrSSRFRisk)
	}

	if ip := net.ParseIP(lower); ip != nil {
		if isInternalIP(ip) {
			return fmt.Errorf("%w: internal address %s", ErrSSRFRisk, ip)
		}
		return nil
	}

	// Chromium parses 2130706433, 127.1, 0x7f000001 and 017700000001 as
	// IPv4 even though net.ParseIP does not.
	labels := strings.Split(lower, ".")
	if numericLabelPattern.MatchString(labels[len(labels)-1]) {
		return fmt.Errorf("%w: non-canonical numeric host %q", ErrSSRFRisk, hostname)
	}

	addrs, err := resolver.LookupIPAddr(ctx, lower)
	if err != nil {
		return fmt.Errorf("%w: resolving %s: %v", ErrSSRFRisk, hostname, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s has no addresses", ErrSSRFRisk, hostname)
	}

	for _, addr := range addrs {
		if isInternalIP(addr.IP) {
			return fmt.Errorf("%w: %s resolves to internal address %s", ErrSSRFRisk, hostname, addr.IP)
		}
	}
	return nil
}

// isInternalIP reports loopback, RFC 1918 / RFC 4193 private, link-local
// and unspecified addresses.
func isInternalIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
