// Package metadata holds the structured form of a trunk-recorder call
// document and the normalization that produces it from the uploaded JSON.
package metadata

import (
	"time"
)

// AudioType enumerates the recorder's modulation kinds.
type AudioType string

const (
	AudioTypeAnalog      AudioType = "analog"
	AudioTypeDigital     AudioType = "digital"
	AudioTypeDigitalTDMA AudioType = "digital_tdma"
)

// Call is one ingested recording. Filename is the derived storage key and
// the primary key; re-ingesting the identical upload writes the same row.
type Call struct {
	Filename      string    `gorm:"column:filename;primaryKey"`
	Freq          int32     `gorm:"column:freq"`
	FreqError     int16     `gorm:"column:freq_error"`
	Signal        int16     `gorm:"column:signal"`
	Noise         int16     `gorm:"column:noise"`
	SourceNum     int16     `gorm:"column:source_num"`
	RecorderNum   int16     `gorm:"column:recorder_num"`
	TDMASlot      int16     `gorm:"column:tdma_slot"`
	Phase2TDMA    int16     `gorm:"column:phase2_tdma"`
	StartTime     time.Time `gorm:"column:start_time"`
	StopTime      time.Time `gorm:"column:stop_time"`
	Emergency     bool      `gorm:"column:emergency"`
	Priority      int16     `gorm:"column:priority"`
	Mode          int16     `gorm:"column:mode"`
	Duplex        int16     `gorm:"column:duplex"`
	Encrypted     bool      `gorm:"column:encrypted"`
	CallLength    int16     `gorm:"column:call_length"`
	Talkgroup     int32     `gorm:"column:talkgroup"`
	AudioType     AudioType `gorm:"column:audio_type"`
	ShortName     string    `gorm:"column:short_name"`
	Transcription *string   `gorm:"column:transcription"`
}

func (Call) TableName() string { return "calls" }

// Talkgroup is global reference data shared across calls; upserts are
// last-write-wins.
type Talkgroup struct {
	ID          int32  `gorm:"column:talkgroup;primaryKey"`
	Tag         string `gorm:"column:talkgroup_tag"`
	Description string `gorm:"column:talkgroup_description"`
	GroupTag    string `gorm:"column:talkgroup_group_tag"`
	Group       string `gorm:"column:talkgroup_group"`
}

func (Talkgroup) TableName() string { return "talkgroups" }

// Source is one radio unit, shared across calls and srclist rows.
type Source struct {
	Src int32   `gorm:"column:src;primaryKey"`
	Tag *string `gorm:"column:tag"`
}

func (Source) TableName() string { return "sources" }

// FreqEntry is one frequency-hop observation within a call. Hashed is a
// content hash over the entry's fields plus the owning call key; rows are
// immutable once inserted.
type FreqEntry struct {
	Hashed     int64         `gorm:"column:hashed;primaryKey"`
	CallID     string        `gorm:"column:call_id"`
	Freq       int32         `gorm:"column:freq"`
	Time       time.Time     `gorm:"column:time"`
	Pos        time.Duration `gorm:"column:pos"`
	Len        time.Duration `gorm:"column:len"`
	ErrorCount int16         `gorm:"column:error_count"`
	SpikeCount int16         `gorm:"column:spike_count"`
}

func (FreqEntry) TableName() string { return "freqlist" }

// SrcEntry is one radio-transmission observation within a call, keyed the
// same way as FreqEntry. Src references a Source row by id.
type SrcEntry struct {
	Hashed       int64         `gorm:"column:hashed;primaryKey"`
	CallID       string        `gorm:"column:call_id"`
	Src          int32         `gorm:"column:src"`
	Time         time.Time     `gorm:"column:time"`
	Pos          time.Duration `gorm:"column:pos"`
	Emergency    bool          `gorm:"column:emergency"`
	SignalSystem *string       `gorm:"column:signal_system"`
}

func (SrcEntry) TableName() string { return "srclist" }

// CallRecord is the fully normalized form of one uploaded JSON document.
type CallRecord struct {
	Call      Call
	Talkgroup Talkgroup
	Freqs     []FreqEntry
	Srcs      []SrcEntry
	Sources   []Source
}

// AttachCallKey stamps the derived call key onto the call row and every
// child entry, recomputing each entry's hash so the key contributes to
// uniqueness. Must run after the storage path is known and before
// persistence.
func (r *CallRecord) AttachCallKey(key string) {
	r.Call.Filename = key
	for i := range r.Freqs {
		r.Freqs[i].AttachCall(key)
		r.Freqs[i].ComputeKey()
	}
	for i := range r.Srcs {
		r.Srcs[i].AttachCall(key)
		r.Srcs[i].ComputeKey()
	}
}
