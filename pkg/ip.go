package pkg

import (
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
)

var (
	localDockerIpRegex = regexp.MustCompile(`^172\.\d{1,3}\.0\.1(:\d{1,5})?$`)
)

func IPIsLocal(ipAddr string) bool {
	if strings.HasPrefix(ipAddr, "127.0.0.1") || strings.HasPrefix(ipAddr, "[::1]") || ipAddr == "::1" {
		return true
	}

	// within docker network ?
	return localDockerIpRegex.MatchString(ipAddr)
}

// ReadUserIP returns the client IP, preferring proxy headers over the remote address.
// Local and docker-network addresses are all reported as "localhost".
func ReadUserIP(r *http.Request) (string, error) {
	ipAddr := r.Header.Get("X-Real-Ip")
	if ipAddr == "" {
		// the first entry is the originating client
		ipAddr = strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	}
	if ipAddr == "" {
		ipAddr = r.RemoteAddr
	}

	if IPIsLocal(ipAddr) {
		return "localhost", nil
	}

	if host, _, err := net.SplitHostPort(ipAddr); err == nil {
		ipAddr = host
	}

	if ip := net.ParseIP(ipAddr); ip == nil {
		return "", fmt.Errorf("ip addr %s is invalid", ipAddr)
	}

	return ipAddr, nil
}
