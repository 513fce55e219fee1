// Package tzgen generates NVGT's C++ table of IANA timezone names to their
// standard UTC offsets from a compiled zoneinfo tree.
package tzgen

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotTZif     = errors.New("not a TZif file")
	ErrUnsupported = errors.New("TZif version 1 files carry no 64-bit data")
	ErrTruncated   = errors.New("truncated TZif data")
	ErrNoStandard  = errors.New("no standard time type")
)

const headerLen = 44

type header struct {
	version  byte
	isutcnt  int
	isstdcnt int
	leapcnt  int
	timecnt  int
	typecnt  int
	charcnt  int
}

func parseHeader(data []byte) (header, error) {
	if len(data) < headerLen {
		return header{}, ErrTruncated
	}
	if string(data[:4]) != "TZif" {
		return header{}, ErrNotTZif
	}
	c := func(i int) int { return int(binary.BigEndian.Uint32(data[20+4*i:])) }
	return header{
		version:  data[4],
		isutcnt:  c(0),
		isstdcnt: c(1),
		leapcnt:  c(2),
		timecnt:  c(3),
		typecnt:  c(4),
		charcnt:  c(5),
	}, nil
}

// dataLen is the size of the data block following the header, timeSize
// being 4 for the version 1 block and 8 for the 64-bit block.
func (h header) dataLen(timeSize int) int {
	return h.timecnt*timeSize + h.timecnt + h.typecnt*6 + h.charcnt +
		h.leapcnt*(timeSize+4) + h.isstdcnt + h.isutcnt
}

type localTimeType struct {
	offset int
	isDST  bool
}

type transition struct {
	at   int64
	kind int
}

// StandardOffset returns the UTC offset in seconds of the latest standard
// (non DST) local time type in a TZif v2+ file, falling back to the last
// standard type listed when the zone has no transitions.
func StandardOffset(data []byte) (int, error) {
	h1, err := parseHeader(data)
	if err != nil {
		return 0, err
	}
	if h1.version < '2' {
		return 0, ErrUnsupported
	}
	start := headerLen + h1.dataLen(4)
	if len(data) < start {
		return 0, ErrTruncated
	}
	h, err := parseHeader(data[start:])
	if err != nil {
		return 0, err
	}
	block := data[start+headerLen:]
	if len(block) < h.dataLen(8) {
		return 0, ErrTruncated
	}

	trans := make([]transition, h.timecnt)
	for i := range trans {
		trans[i].at = int64(binary.BigEndian.Uint64(block[8*i:]))
	}
	idx := block[8*h.timecnt:]
	for i := range trans {
		trans[i].kind = int(idx[i])
	}
	types := make([]localTimeType, h.typecnt)
	tt := idx[h.timecnt:]
	for i := range types {
		rec := tt[6*i:]
		types[i] = localTimeType{
			offset: int(int32(binary.BigEndian.Uint32(rec))),
			isDST:  rec[4] != 0,
		}
	}
	if len(types) == 0 {
		return 0, ErrNoStandard
	}

	sort.SliceStable(trans, func(i, j int) bool { return trans[i].at < trans[j].at })
	found := false
	latest := 0
	for _, tr := range trans {
		if tr.kind < len(types) && !types[tr.kind].isDST {
			latest = types[tr.kind].offset
			found = true
		}
	}
	if found {
		return latest, nil
	}
	for i := len(types) - 1; i >= 0; i-- {
		if !types[i].isDST {
			return types[i].offset, nil
		}
	}
	return 0, fmt.Errorf("%w among %d types", ErrNoStandard, len(types))
}
