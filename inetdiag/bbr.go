package inetdiag

import (
	"strconv"
	"unsafe"

	"github.com/m-lab/tcpdiag/schema"
	"github.com/m-lab/tcpdiag/wire"
)

// BBRInfo is the kernel's struct tcp_bbr_info, reported under the
// INET_DIAG_BBRINFO attribute.
type BBRInfo struct {
	BW         wire.NlU64 `json:"bw"`
	MinRTT     uint32     `json:"min_rtt"`
	PacingGain uint32     `json:"pacing_gain"`
	CwndGain   uint32     `json:"cwnd_gain"`
}

// BBRInfoDesc is the tabular schema for BBRInfo.
var BBRInfoDesc = schema.Struct(
	schema.F("bw", schema.Atom()),
	schema.F("min_rtt", schema.Atom()),
	schema.F("pacing_gain", schema.Atom()),
	schema.F("cwnd_gain", schema.Atom()),
)

func (b *BBRInfo) appendTabular(toks []string) []string {
	toks = append(toks, strconv.FormatUint(b.BW.Get(), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.MinRTT), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.PacingGain), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.CwndGain), 10))
	return toks
}

func readBBRInfoTabular(next func() string) (BBRInfo, error) {
	var b BBRInfo
	bw, err := strconv.ParseUint(next(), 10, 64)
	if err != nil {
		return b, err
	}
	b.BW = wire.NewNlU64(bw)
	minRTT, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return b, err
	}
	b.MinRTT = uint32(minRTT)
	pacingGain, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return b, err
	}
	b.PacingGain = uint32(pacingGain)
	cwndGain, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return b, err
	}
	b.CwndGain = uint32(cwndGain)
	return b, nil
}

// BBR3Info is the optional tail a newer kernel appends after BBRInfo
// under the same INET_DIAG_BBRINFO attribute; its presence is inferred
// from the attribute's total length, not from a separate attribute type.
// Unused1 is a padding byte present on the wire but contributes no
// tabular or JSON column, the way csv::Skip drops a field from a header
// without dropping it from the struct.
type BBR3Info struct {
	BWHi        wire.NlU64 `json:"bw_hi"`
	BWLo        wire.NlU64 `json:"bw_lo"`
	Mode        uint8      `json:"mode"`
	Phase       uint8      `json:"phase"`
	Unused1     uint8      `json:"-"`
	Version     uint8      `json:"version"`
	InflightLo  uint32     `json:"inflight_lo"`
	InflightHi  uint32     `json:"inflight_hi"`
	ExtraAcked  uint32     `json:"extra_acked"`
}

// BBR3InfoDesc is the tabular schema for BBR3Info. Unused1 is omitted.
var BBR3InfoDesc = schema.Struct(
	schema.F("bw_hi", schema.Atom()),
	schema.F("bw_lo", schema.Atom()),
	schema.F("mode", schema.Atom()),
	schema.F("phase", schema.Atom()),
	schema.F("version", schema.Atom()),
	schema.F("inflight_lo", schema.Atom()),
	schema.F("inflight_hi", schema.Atom()),
	schema.F("extra_acked", schema.Atom()),
)

func (b *BBR3Info) appendTabular(toks []string) []string {
	toks = append(toks, strconv.FormatUint(b.BWHi.Get(), 10))
	toks = append(toks, strconv.FormatUint(b.BWLo.Get(), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.Mode), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.Phase), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.Version), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.InflightLo), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.InflightHi), 10))
	toks = append(toks, strconv.FormatUint(uint64(b.ExtraAcked), 10))
	return toks
}

func readBBR3InfoTabular(next func() string) (BBR3Info, error) {
	var b BBR3Info
	bwHi, err := strconv.ParseUint(next(), 10, 64)
	if err != nil {
		return b, err
	}
	b.BWHi = wire.NewNlU64(bwHi)
	bwLo, err := strconv.ParseUint(next(), 10, 64)
	if err != nil {
		return b, err
	}
	b.BWLo = wire.NewNlU64(bwLo)
	mode, err := strconv.ParseUint(next(), 10, 8)
	if err != nil {
		return b, err
	}
	b.Mode = uint8(mode)
	phase, err := strconv.ParseUint(next(), 10, 8)
	if err != nil {
		return b, err
	}
	b.Phase = uint8(phase)
	version, err := strconv.ParseUint(next(), 10, 8)
	if err != nil {
		return b, err
	}
	b.Version = uint8(version)
	inflightLo, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return b, err
	}
	b.InflightLo = uint32(inflightLo)
	inflightHi, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return b, err
	}
	b.InflightHi = uint32(inflightHi)
	extraAcked, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return b, err
	}
	b.ExtraAcked = uint32(extraAcked)
	return b, nil
}

// sizeofBBRInfo and sizeofBBR3Info are the wire sizes of the two
// structs, following the teacher's SizeofInetDiagReqV2 convention.
var sizeofBBRInfo = int(unsafe.Sizeof(BBRInfo{}))
var sizeofBBR3Info = int(unsafe.Sizeof(BBR3Info{}))
