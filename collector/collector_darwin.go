package collector

import (
	"context"

	"github.com/m-lab/tcpdiag/netlink"
	"github.com/m-lab/tcpdiag/sink"
)

// Run returns netlink.ErrUnsupported; sock_diag dumps are Linux-only.
func Run(ctx context.Context, cfg Config, snk sink.Sink) error {
	return netlink.ErrUnsupported
}
