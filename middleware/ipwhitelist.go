package middleware

import (
	"net/netip"
	"strings"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/gin-gonic/gin"
)

// IPWhitelist guards maintenance routes. Entries are single addresses or
// CIDR prefixes; unparsable entries are ignored. An empty list allows all.
func IPWhitelist(entries []string) gin.HandlerFunc {
	var prefixes []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
		}
	}
	open := len(entries) == 0

	return func(c *gin.Context) {
		if open {
			c.Next()
			return
		}
		addr, err := netip.ParseAddr(c.ClientIP())
		if err == nil {
			addr = addr.Unmap()
			for _, p := range prefixes {
				if p.Contains(addr) {
					c.Next()
					return
				}
			}
		}
		Fail(c, apperr.Forbidden("access denied"))
	}
}
