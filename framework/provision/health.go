package provision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"

	"github.com/octopod/octopod/framework/helpers"
	"github.com/octopod/octopod/servicedef"
)

func healthCheckURL(addr netip.Addr, hc servicedef.HealthCheck) string {
	return fmt.Sprintf("http://%s%s", netip.AddrPortFrom(addr, hc.Port), hc.Path)
}

func (p *Provisioner) waitHealthy(ctx context.Context, s *Service, hc servicedef.HealthCheck) error {
	var lastErr error
	healthy := helpers.PollUntil(ctx, p.healthTimeout, p.healthInterval, func() bool {
		lastErr = p.checkHealth(ctx, s, hc)
		return lastErr == nil
	})
	if healthy {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w within %s: %s", ErrUnhealthy, p.healthTimeout, lastErr)
}

func (p *Provisioner) checkHealth(ctx context.Context, s *Service, hc servicedef.HealthCheck) error {
	addr, err := p.Address(ctx, s)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthCheckURL(addr, hc), nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s returned status %d", hc.Path, resp.StatusCode)
	}
	return nil
}
