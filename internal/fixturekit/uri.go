package fixturekit

import (
	"net"
	"strconv"
)

// URIFunc returns a function that prefixes a path with http://host:port.
// The path is appended verbatim.
func URIFunc(host string, port int) func(path string) string {
	base := "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	return func(path string) string {
		return base + path
	}
}
