package metadata

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Rehashable is the capability shared by the two child-entry kinds: the
// owning call key is attached once the storage path is known, and the
// content hash is recomputed over the entry's fields including that key.
type Rehashable interface {
	AttachCall(id string)
	ComputeKey() int64
}

// Hash field order is part of the persistence contract; changing it
// changes every primary key in freqlist/srclist.
//
// FreqEntry: call_id, freq, time (unix ns), pos (ns), len (ns),
// error_count, spike_count.
// SrcEntry: call_id, src, time (unix ns), pos (ns), emergency,
// signal_system (presence byte, then bytes).
//
// Integers are written big-endian at their declared width, bools as one
// byte, and the hash is xxhash64 reinterpreted as int64.

func (f *FreqEntry) AttachCall(id string) { f.CallID = id }

func (f *FreqEntry) ComputeKey() int64 {
	d := xxhash.New()
	writeString(d, f.CallID)
	writeInt32(d, f.Freq)
	writeInt64(d, f.Time.UnixNano())
	writeInt64(d, int64(f.Pos))
	writeInt64(d, int64(f.Len))
	writeInt16(d, f.ErrorCount)
	writeInt16(d, f.SpikeCount)
	f.Hashed = int64(d.Sum64())
	return f.Hashed
}

func (s *SrcEntry) AttachCall(id string) { s.CallID = id }

func (s *SrcEntry) ComputeKey() int64 {
	d := xxhash.New()
	writeString(d, s.CallID)
	writeInt32(d, s.Src)
	writeInt64(d, s.Time.UnixNano())
	writeInt64(d, int64(s.Pos))
	writeBool(d, s.Emergency)
	writeOptString(d, s.SignalSystem)
	s.Hashed = int64(d.Sum64())
	return s.Hashed
}

func writeString(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
}

func writeOptString(d *xxhash.Digest, s *string) {
	if s == nil {
		_, _ = d.Write([]byte{0})
		return
	}
	_, _ = d.Write([]byte{1})
	_, _ = d.WriteString(*s)
}

func writeBool(d *xxhash.Digest, b bool) {
	if b {
		_, _ = d.Write([]byte{1})
	} else {
		_, _ = d.Write([]byte{0})
	}
}

func writeInt16(d *xxhash.Digest, v int16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	_, _ = d.Write(buf[:])
}

func writeInt32(d *xxhash.Digest, v int32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, _ = d.Write(buf[:])
}

func writeInt64(d *xxhash.Digest, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, _ = d.Write(buf[:])
}
