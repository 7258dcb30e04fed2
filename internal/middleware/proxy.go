package middleware

import (
	"fmt"
	"net"

	"github.com/labstack/echo/v4"
)

// TrustedProxies configures Echo so c.RealIP() reads X-Forwarded-For, but
// only when the direct peer falls inside one of trustedCIDRs. Echo's own
// loopback/private-network trust is switched off so the list is the only
// source of trust.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) error {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return fmt.Errorf("parsing trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(network))
	}

	e.IPExtractor = echo.ExtractIPFromXFFHeader(opts...)
	return nil
}
