package inetdiag

import (
	"encoding/json"
	"strconv"
	"unsafe"

	"github.com/m-lab/tcpdiag/schema"
	"github.com/m-lab/tcpdiag/wire"
)

// WScale packs the sender and receiver window scale exponents into the
// single byte the kernel reports, low nibble sender, high nibble
// receiver.
type WScale uint8

// NewWScale packs snd and rcv (each 0-15) into a WScale byte.
func NewWScale(snd, rcv uint8) WScale {
	return WScale((snd & 0xF) | (rcv&0xF)<<4)
}

// Snd returns the sender window scale exponent.
func (w WScale) Snd() uint8 { return uint8(w) & 0xF }

// Rcv returns the receiver window scale exponent.
func (w WScale) Rcv() uint8 { return uint8(w) >> 4 & 0xF }

type jsonWScale struct {
	Snd uint8 `json:"snd"`
	Rcv uint8 `json:"rcv"`
}

// MarshalJSON renders the two nibbles as a small object.
func (w WScale) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonWScale{Snd: w.Snd(), Rcv: w.Rcv()})
}

// UnmarshalJSON parses the object written by MarshalJSON.
func (w *WScale) UnmarshalJSON(b []byte) error {
	var j jsonWScale
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*w = NewWScale(j.Snd, j.Rcv)
	return nil
}

// TCPInfo is the kernel's struct tcp_info, reported under the
// INET_DIAG_INFO attribute. Field order and width exactly match
// linux/tcp.h; Parse reinterprets it directly out of the netlink
// receive buffer, while the tabular and JSON readers fill it field by
// field.
type TCPInfo struct {
	State       uint8  `json:"state"`
	CAState     uint8  `json:"ca_state"`
	Retransmits uint8  `json:"retransmits"`
	Probes      uint8  `json:"probes"`
	Backoff     uint8  `json:"backoff"`
	Options     uint8  `json:"options"`
	WScale      WScale `json:"wscale"`
	Flags       uint8  `json:"flags"`

	RTO           uint32 `json:"rto"`
	ATO           uint32 `json:"ato"`
	SndMSS        uint32 `json:"snd_mss"`
	RcvMSS        uint32 `json:"rcv_mss"`
	Unacked       uint32 `json:"unacked"`
	Sacked        uint32 `json:"sacked"`
	Lost          uint32 `json:"lost"`
	Retrans       uint32 `json:"retrans"`
	Fackets       uint32 `json:"fackets"`
	LastDataSent  uint32 `json:"last_data_sent"`
	LastAckSent   uint32 `json:"last_ack_sent"`
	LastDataRecv  uint32 `json:"last_data_recv"`
	LastAckRecv   uint32 `json:"last_ack_recv"`
	PMTU          uint32 `json:"pmtu"`
	RcvSsthresh   uint32 `json:"rcv_ssthresh"`
	RTT           uint32 `json:"rtt"`
	RTTVar        uint32 `json:"rttvar"`
	SndSsthresh   uint32 `json:"snd_ssthresh"`
	SndCwnd       uint32 `json:"snd_cwnd"`
	AdvMSS        uint32 `json:"advmss"`
	Reordering    uint32 `json:"reordering"`
	RcvRTT        uint32 `json:"rcv_rtt"`
	RcvSpace      uint32 `json:"rcv_space"`
	TotalRetrans  uint32 `json:"total_retrans"`

	PacingRate    wire.U64NE `json:"pacing_rate"`
	MaxPacingRate wire.U64NE `json:"max_pacing_rate"`
	BytesAcked    wire.U64NE `json:"bytes_acked"`
	BytesReceived wire.U64NE `json:"bytes_received"`

	SegsOut       uint32 `json:"segs_out"`
	SegsIn        uint32 `json:"segs_in"`
	NotsentBytes  uint32 `json:"notsent_bytes"`
	MinRTT        uint32 `json:"min_rtt"`
	DataSegsIn    uint32 `json:"data_segs_in"`
	DataSegsOut   uint32 `json:"data_segs_out"`

	DeliveryRate wire.U64NE `json:"delivery_rate"`
	BusyTime     wire.U64NE `json:"busy_time"`
	RwndLimited  wire.U64NE `json:"rwnd_limited"`
	SndbufLimited wire.U64NE `json:"sndbuf_limited"`

	Delivered   uint32 `json:"delivered"`
	DeliveredCE uint32 `json:"delivered_ce"`

	BytesSent   wire.U64NE `json:"bytes_sent"`
	BytesRetrans wire.U64NE `json:"bytes_retrans"`

	DsackDups uint32 `json:"dsack_dups"`
	ReordSeen uint32 `json:"reord_seen"`
	RcvOoopack uint32 `json:"rcv_ooopack"`
	SndWnd    uint32 `json:"snd_wnd"`
}

// TCPInfoDesc is the tabular schema for TCPInfo, in exactly the field
// order above; WScale contributes two columns (snd, rcv).
var TCPInfoDesc = schema.Struct(
	schema.F("state", schema.Atom()),
	schema.F("ca_state", schema.Atom()),
	schema.F("retransmits", schema.Atom()),
	schema.F("probes", schema.Atom()),
	schema.F("backoff", schema.Atom()),
	schema.F("options", schema.Atom()),
	schema.F("wscale", schema.Struct(schema.F("snd", schema.Atom()), schema.F("rcv", schema.Atom()))),
	schema.F("flags", schema.Atom()),
	schema.F("rto", schema.Atom()),
	schema.F("ato", schema.Atom()),
	schema.F("snd_mss", schema.Atom()),
	schema.F("rcv_mss", schema.Atom()),
	schema.F("unacked", schema.Atom()),
	schema.F("sacked", schema.Atom()),
	schema.F("lost", schema.Atom()),
	schema.F("retrans", schema.Atom()),
	schema.F("fackets", schema.Atom()),
	schema.F("last_data_sent", schema.Atom()),
	schema.F("last_ack_sent", schema.Atom()),
	schema.F("last_data_recv", schema.Atom()),
	schema.F("last_ack_recv", schema.Atom()),
	schema.F("pmtu", schema.Atom()),
	schema.F("rcv_ssthresh", schema.Atom()),
	schema.F("rtt", schema.Atom()),
	schema.F("rttvar", schema.Atom()),
	schema.F("snd_ssthresh", schema.Atom()),
	schema.F("snd_cwnd", schema.Atom()),
	schema.F("advmss", schema.Atom()),
	schema.F("reordering", schema.Atom()),
	schema.F("rcv_rtt", schema.Atom()),
	schema.F("rcv_space", schema.Atom()),
	schema.F("total_retrans", schema.Atom()),
	schema.F("pacing_rate", schema.Atom()),
	schema.F("max_pacing_rate", schema.Atom()),
	schema.F("bytes_acked", schema.Atom()),
	schema.F("bytes_received", schema.Atom()),
	schema.F("segs_out", schema.Atom()),
	schema.F("segs_in", schema.Atom()),
	schema.F("notsent_bytes", schema.Atom()),
	schema.F("min_rtt", schema.Atom()),
	schema.F("data_segs_in", schema.Atom()),
	schema.F("data_segs_out", schema.Atom()),
	schema.F("delivery_rate", schema.Atom()),
	schema.F("busy_time", schema.Atom()),
	schema.F("rwnd_limited", schema.Atom()),
	schema.F("sndbuf_limited", schema.Atom()),
	schema.F("delivered", schema.Atom()),
	schema.F("delivered_ce", schema.Atom()),
	schema.F("bytes_sent", schema.Atom()),
	schema.F("bytes_retrans", schema.Atom()),
	schema.F("dsack_dups", schema.Atom()),
	schema.F("reord_seen", schema.Atom()),
	schema.F("rcv_ooopack", schema.Atom()),
	schema.F("snd_wnd", schema.Atom()),
)

func (t *TCPInfo) appendTabular(toks []string) []string {
	u8 := func(v uint8) string { return strconv.FormatUint(uint64(v), 10) }
	u32 := func(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
	u64 := func(v wire.U64NE) string { return strconv.FormatUint(v.Get(), 10) }
	toks = append(toks, u8(t.State), u8(t.CAState), u8(t.Retransmits), u8(t.Probes), u8(t.Backoff), u8(t.Options))
	toks = append(toks, u8(t.WScale.Snd()), u8(t.WScale.Rcv()))
	toks = append(toks, u8(t.Flags))
	toks = append(toks, u32(t.RTO), u32(t.ATO), u32(t.SndMSS), u32(t.RcvMSS), u32(t.Unacked), u32(t.Sacked),
		u32(t.Lost), u32(t.Retrans), u32(t.Fackets), u32(t.LastDataSent), u32(t.LastAckSent), u32(t.LastDataRecv),
		u32(t.LastAckRecv), u32(t.PMTU), u32(t.RcvSsthresh), u32(t.RTT), u32(t.RTTVar), u32(t.SndSsthresh),
		u32(t.SndCwnd), u32(t.AdvMSS), u32(t.Reordering), u32(t.RcvRTT), u32(t.RcvSpace), u32(t.TotalRetrans))
	toks = append(toks, u64(t.PacingRate), u64(t.MaxPacingRate), u64(t.BytesAcked), u64(t.BytesReceived))
	toks = append(toks, u32(t.SegsOut), u32(t.SegsIn), u32(t.NotsentBytes), u32(t.MinRTT), u32(t.DataSegsIn), u32(t.DataSegsOut))
	toks = append(toks, u64(t.DeliveryRate), u64(t.BusyTime), u64(t.RwndLimited), u64(t.SndbufLimited))
	toks = append(toks, u32(t.Delivered), u32(t.DeliveredCE))
	toks = append(toks, u64(t.BytesSent), u64(t.BytesRetrans))
	toks = append(toks, u32(t.DsackDups), u32(t.ReordSeen), u32(t.RcvOoopack), u32(t.SndWnd))
	return toks
}

func readTCPInfoTabular(next func() string) (TCPInfo, error) {
	var t TCPInfo
	readU8 := func(dst *uint8) error {
		v, err := strconv.ParseUint(next(), 10, 8)
		if err != nil {
			return err
		}
		*dst = uint8(v)
		return nil
	}
	readU32 := func(dst *uint32) error {
		v, err := strconv.ParseUint(next(), 10, 32)
		if err != nil {
			return err
		}
		*dst = uint32(v)
		return nil
	}
	readU64 := func(dst *wire.U64NE) error {
		v, err := strconv.ParseUint(next(), 10, 64)
		if err != nil {
			return err
		}
		*dst = wire.NewU64NE(v)
		return nil
	}
	fields8 := []*uint8{&t.State, &t.CAState, &t.Retransmits, &t.Probes, &t.Backoff, &t.Options}
	for _, f := range fields8 {
		if err := readU8(f); err != nil {
			return t, err
		}
	}
	var snd, rcv uint8
	if err := readU8(&snd); err != nil {
		return t, err
	}
	if err := readU8(&rcv); err != nil {
		return t, err
	}
	t.WScale = NewWScale(snd, rcv)
	if err := readU8(&t.Flags); err != nil {
		return t, err
	}
	fields32 := []*uint32{
		&t.RTO, &t.ATO, &t.SndMSS, &t.RcvMSS, &t.Unacked, &t.Sacked, &t.Lost, &t.Retrans, &t.Fackets,
		&t.LastDataSent, &t.LastAckSent, &t.LastDataRecv, &t.LastAckRecv, &t.PMTU, &t.RcvSsthresh, &t.RTT,
		&t.RTTVar, &t.SndSsthresh, &t.SndCwnd, &t.AdvMSS, &t.Reordering, &t.RcvRTT, &t.RcvSpace, &t.TotalRetrans,
	}
	for _, f := range fields32 {
		if err := readU32(f); err != nil {
			return t, err
		}
	}
	fields64a := []*wire.U64NE{&t.PacingRate, &t.MaxPacingRate, &t.BytesAcked, &t.BytesReceived}
	for _, f := range fields64a {
		if err := readU64(f); err != nil {
			return t, err
		}
	}
	fields32b := []*uint32{&t.SegsOut, &t.SegsIn, &t.NotsentBytes, &t.MinRTT, &t.DataSegsIn, &t.DataSegsOut}
	for _, f := range fields32b {
		if err := readU32(f); err != nil {
			return t, err
		}
	}
	fields64b := []*wire.U64NE{&t.DeliveryRate, &t.BusyTime, &t.RwndLimited, &t.SndbufLimited}
	for _, f := range fields64b {
		if err := readU64(f); err != nil {
			return t, err
		}
	}
	if err := readU32(&t.Delivered); err != nil {
		return t, err
	}
	if err := readU32(&t.DeliveredCE); err != nil {
		return t, err
	}
	if err := readU64(&t.BytesSent); err != nil {
		return t, err
	}
	if err := readU64(&t.BytesRetrans); err != nil {
		return t, err
	}
	fields32c := []*uint32{&t.DsackDups, &t.ReordSeen, &t.RcvOoopack, &t.SndWnd}
	for _, f := range fields32c {
		if err := readU32(f); err != nil {
			return t, err
		}
	}
	return t, nil
}

// sizeofTCPInfo is the wire size of the struct, following the teacher's
// SizeofInetDiagReqV2 convention.
var sizeofTCPInfo = int(unsafe.Sizeof(TCPInfo{}))
