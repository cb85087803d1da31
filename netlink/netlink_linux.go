package netlink

import (
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"

	"github.com/m-lab/tcpdiag/inetdiag"
	"github.com/m-lab/tcpdiag/metrics"
)

// Dump sends one sock_diag dump request for family and drains the
// reply, calling onMsg once per SOCK_DIAG_BY_FAMILY payload, in the
// kernel's natural delivery order. It returns once the kernel signals
// NLMSG_DONE, once a non-multipart reply has been processed, or on the
// first error, whichever comes first.
func Dump(family uint8, q Query, onMsg OnMessage) error {
	start := time.Now()
	af := familyLabel(family)
	count := 0
	defer func() {
		metrics.SyscallTimeHistogram.With(prometheus.Labels{"af": af}).Observe(time.Since(start).Seconds())
		metrics.ConnectionCountHistogram.With(prometheus.Labels{"af": af}).Observe(float64(count))
	}()

	req := inetdiag.NewReqV2(family, q.States, q.Extensions, q.SPort, q.DPort)
	nlReq := nl.NewNetlinkRequest(inetdiag.SockDiagByFamily, unix.NLM_F_DUMP|unix.NLM_F_REQUEST)
	nlReq.AddData(req)

	s, err := nl.Subscribe(syscall.NETLINK_INET_DIAG)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Send(nlReq); err != nil {
		return err
	}
	pid, err := s.GetPid()
	if err != nil {
		return err
	}

	for {
		msgs, err := s.Receive()
		if err != nil {
			return err
		}
		for i := range msgs {
			m := &msgs[i]
			if m.Header.Seq != uint32(nlReq.Seq) {
				metrics.ErrorCount.With(prometheus.Labels{"type": "wrong_seq"}).Inc()
				return ErrBadSequence
			}
			if m.Header.Pid != pid {
				metrics.ErrorCount.With(prometheus.Labels{"type": "wrong_pid"}).Inc()
				return ErrBadPid
			}
			if m.Header.Type == unix.NLMSG_DONE {
				return nil
			}
			if m.Header.Type == unix.NLMSG_ERROR {
				if len(m.Data) < 4 {
					return ErrBadMsgData
				}
				errno := int32(nl.NativeEndian().Uint32(m.Data[0:4]))
				if errno == 0 {
					return nil
				}
				metrics.ErrorCount.With(prometheus.Labels{"type": "nlmsg_error"}).Inc()
				return syscall.Errno(-errno)
			}
			if err := onMsg(m.Data); err != nil {
				return err
			}
			count++
			if m.Header.Flags&unix.NLM_F_MULTI == 0 {
				return nil
			}
		}
	}
}

func familyLabel(family uint8) string {
	switch family {
	case syscall.AF_INET:
		return "ipv4"
	case syscall.AF_INET6:
		return "ipv6"
	default:
		return "unknown"
	}
}
