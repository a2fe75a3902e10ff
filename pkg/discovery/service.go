package discovery

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/redial-io/redial-go/pkg/socket"
)

const (
	// ServiceType is the DNS-SD service type of redial endpoints.
	ServiceType = "_redial._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyScheme = "scheme"
	TXTKeyPath   = "path"
	TXTKeyMode   = "mode"
)

var (
	// ErrNotFound is returned when no matching instance answered in time.
	ErrNotFound = errors.New("no redial service found")

	// ErrInvalidInstance is returned for empty or oversized instance names.
	ErrInvalidInstance = errors.New("invalid instance name")

	// ErrInvalidTXT is returned when a TXT record cannot be decoded.
	ErrInvalidTXT = errors.New("invalid TXT record")
)

// Service describes one advertised endpoint.
type Service struct {
	Instance  string
	Host      string
	Port      int
	Addresses []string

	Scheme string
	Path   string
	Mode   socket.Mode
}

// Endpoint builds the WebSocket URL for the service. The first address is
// preferred over the host name.
func (s *Service) Endpoint() string {
	host := strings.TrimSuffix(s.Host, ".")
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	scheme := s.Scheme
	if scheme == "" {
		scheme = "ws"
	}
	path := s.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(s.Port)),
		Path:   path,
	}
	return u.String()
}

// ValidateInstanceName checks that name fits in a single DNS label.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidInstance)
	}
	if len(name) > MaxInstanceNameLen {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInvalidInstance, len(name), MaxInstanceNameLen)
	}
	return nil
}

// EncodeTXT returns the TXT strings advertised for s.
func EncodeTXT(s *Service) []string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "ws"
	}
	path := s.Path
	if path == "" {
		path = "/"
	}
	txt := []string{
		TXTKeyScheme + "=" + scheme,
		TXTKeyPath + "=" + path,
	}
	if s.Mode != socket.ModeUnset {
		txt = append(txt, TXTKeyMode+"="+s.Mode.String())
	}
	return txt
}

// DecodeTXT fills the scheme, path and mode of s from TXT strings.
// Unknown keys are ignored.
func DecodeTXT(s *Service, txt []string) error {
	s.Scheme = "ws"
	s.Path = "/"
	for _, entry := range txt {
		key, value, _ := strings.Cut(entry, "=")
		switch key {
		case TXTKeyScheme:
			if value != "ws" && value != "wss" {
				return fmt.Errorf("%w: scheme %q", ErrInvalidTXT, value)
			}
			s.Scheme = value
		case TXTKeyPath:
			if value != "" {
				s.Path = value
			}
		case TXTKeyMode:
			mode, err := socket.ParseMode(value)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidTXT, err)
			}
			s.Mode = mode
		}
	}
	return nil
}

func ipStrings(v4, v6 []net.IP) []string {
	addrs := make([]string, 0, len(v4)+len(v6))
	for _, ip := range v4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range v6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}
