package metadata

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"trunk-processor/internal/apperror"
)

// Wire types. The recorder encodes booleans as 0/1 integers, positions as
// fractional seconds and timestamps as epoch seconds; the types below
// normalize those during decoding.

// intBool decodes a 0/1 integer; any other value is a parse failure.
type intBool bool

func (b *intBool) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v != 0 && v != 1 {
		return fmt.Errorf("integer boolean must be 0 or 1, got %d", v)
	}
	*b = v == 1
	return nil
}

// seconds decodes a fractional-second value, truncated to whole
// nanoseconds.
type seconds time.Duration

func (s *seconds) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = seconds(int64(v * float64(time.Second)))
	return nil
}

// epochTime decodes epoch seconds, integer or fractional, into a UTC
// timestamp. Recorders emit both forms.
type epochTime time.Time

func (t *epochTime) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	sec, frac := math.Modf(v)
	*t = epochTime(time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC())
	return nil
}

type freqWire struct {
	Freq       int32     `json:"freq"`
	Time       epochTime `json:"time"`
	Pos        seconds   `json:"pos"`
	Len        seconds   `json:"len"`
	ErrorCount int16     `json:"error_count"`
	SpikeCount int16     `json:"spike_count"`
}

type srcWire struct {
	Src          int32     `json:"src"`
	Time         epochTime `json:"time"`
	Pos          seconds   `json:"pos"`
	Emergency    intBool   `json:"emergency"`
	SignalSystem string    `json:"signal_system"`
	Tag          string    `json:"tag"`
}

type callWire struct {
	Freq                 int32      `json:"freq"`
	FreqError            int16      `json:"freq_error"`
	Signal               int16      `json:"signal"`
	Noise                int16      `json:"noise"`
	SourceNum            int16      `json:"source_num"`
	RecorderNum          int16      `json:"recorder_num"`
	TDMASlot             int16      `json:"tdma_slot"`
	Phase2TDMA           int16      `json:"phase2_tdma"`
	StartTime            epochTime  `json:"start_time"`
	StopTime             epochTime  `json:"stop_time"`
	Emergency            intBool    `json:"emergency"`
	Priority             int16      `json:"priority"`
	Mode                 int16      `json:"mode"`
	Duplex               int16      `json:"duplex"`
	Encrypted            intBool    `json:"encrypted"`
	CallLength           int16      `json:"call_length"`
	Talkgroup            int32      `json:"talkgroup"`
	TalkgroupTag         string     `json:"talkgroup_tag"`
	TalkgroupDescription string     `json:"talkgroup_description"`
	TalkgroupGroupTag    string     `json:"talkgroup_group_tag"`
	TalkgroupGroup       string     `json:"talkgroup_group"`
	AudioType            string     `json:"audio_type"`
	ShortName            string     `json:"short_name"`
	FreqList             []freqWire `json:"freqList"`
	SrcList              []srcWire  `json:"srcList"`
}

// Parse normalizes the uploaded JSON document into a CallRecord. Child
// entry hashes are not final here; they are recomputed once the call's
// storage key is attached.
func Parse(raw []byte) (*CallRecord, error) {
	var w callWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, apperror.Wrap(apperror.KindJSONParsing, err, "decoding call metadata")
	}

	audioType, err := parseAudioType(w.AudioType)
	if err != nil {
		return nil, err
	}

	rec := &CallRecord{
		Call: Call{
			Freq:        w.Freq,
			FreqError:   w.FreqError,
			Signal:      w.Signal,
			Noise:       w.Noise,
			SourceNum:   w.SourceNum,
			RecorderNum: w.RecorderNum,
			TDMASlot:    w.TDMASlot,
			Phase2TDMA:  w.Phase2TDMA,
			StartTime:   time.Time(w.StartTime),
			StopTime:    time.Time(w.StopTime),
			Emergency:   bool(w.Emergency),
			Priority:    w.Priority,
			Mode:        w.Mode,
			Duplex:      w.Duplex,
			Encrypted:   bool(w.Encrypted),
			CallLength:  w.CallLength,
			AudioType:   audioType,
			ShortName:   w.ShortName,
		},
		Talkgroup: Talkgroup{
			ID:          w.Talkgroup,
			Tag:         w.TalkgroupTag,
			Description: w.TalkgroupDescription,
			GroupTag:    w.TalkgroupGroupTag,
			Group:       w.TalkgroupGroup,
		},
	}

	for _, f := range w.FreqList {
		rec.Freqs = append(rec.Freqs, FreqEntry{
			Freq:       f.Freq,
			Time:       time.Time(f.Time),
			Pos:        time.Duration(f.Pos),
			Len:        time.Duration(f.Len),
			ErrorCount: f.ErrorCount,
			SpikeCount: f.SpikeCount,
		})
	}

	// Each srcList row yields both an observation and a Source reference
	// row; duplicate sources are collapsed at persistence.
	for _, s := range w.SrcList {
		rec.Srcs = append(rec.Srcs, SrcEntry{
			Src:          s.Src,
			Time:         time.Time(s.Time),
			Pos:          time.Duration(s.Pos),
			Emergency:    bool(s.Emergency),
			SignalSystem: optString(s.SignalSystem),
		})
		rec.Sources = append(rec.Sources, Source{
			Src: s.Src,
			Tag: optString(s.Tag),
		})
	}

	return rec, nil
}

func parseAudioType(s string) (AudioType, error) {
	switch AudioType(s) {
	case AudioTypeAnalog, AudioTypeDigital, AudioTypeDigitalTDMA:
		return AudioType(s), nil
	default:
		return "", apperror.New(apperror.KindJSONParsing, "unknown audio_type %q", s)
	}
}

// optString maps the recorder's empty string to NULL.
func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
