package main

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const defaultPort = 8080

// splitHostPort splits an address into host and port, using defaultPort if no port is specified.
func splitHostPort(addr string, defaultPort int) (string, string, error) {
	ipaddr, port, err := net.SplitHostPort(addr)
	if err != nil {
		addr = addr + ":" + strconv.Itoa(defaultPort)
		ipaddr, port, err = net.SplitHostPort(addr)
		if err != nil {
			return "", "", err
		}
	}
	return ipaddr, port, nil
}

// nodeURL turns a node address given on the command line into a base URL.
// A bare host gets the default port and the http scheme; an empty host means
// localhost.
func nodeURL(node string, defaultPort int) (string, error) {
	scheme := "http"
	if i := strings.Index(node, "://"); i >= 0 {
		u, err := url.Parse(node)
		if err != nil {
			return "", err
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
		scheme = u.Scheme
		node = u.Host
	}
	host, port, err := splitHostPort(node, defaultPort)
	if err != nil {
		return "", fmt.Errorf("invalid node address %q: %w", node, err)
	}
	if host == "" {
		host = "localhost"
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}
