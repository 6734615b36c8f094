package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trunk-processor/internal/config"
	"trunk-processor/internal/logger"
)

func TestShouldTranscribe(t *testing.T) {
	log := logger.New()

	tests := []struct {
		name      string
		filter    config.Filter
		talkgroup int32
		group     string
		want      bool
	}{
		{
			name:      "NegatedTGIDWinsOverGroupMatch",
			filter:    config.Filter{TGIDs: []string{"!100"}, Groups: []string{"Fire"}},
			talkgroup: 100,
			group:     "Fire",
			want:      false,
		},
		{
			name:      "BareTGIDAllows",
			filter:    config.Filter{TGIDs: []string{"100"}},
			talkgroup: 100,
			group:     "Fire",
			want:      true,
		},
		{
			name:      "GroupMatchAllows",
			filter:    config.Filter{Groups: []string{"Fire"}},
			talkgroup: 200,
			group:     "Fire",
			want:      true,
		},
		{
			name:      "UnmatchedDenies",
			filter:    config.Filter{TGIDs: []string{"100"}, Groups: []string{"Fire"}},
			talkgroup: 200,
			group:     "EMS",
			want:      false,
		},
		{
			name:      "TGIDListMissDoesNotBlockGroupMatch",
			filter:    config.Filter{TGIDs: []string{"300"}, Groups: []string{"Fire"}},
			talkgroup: 100,
			group:     "Fire",
			want:      true,
		},
		{
			name:      "NoListsDenies",
			filter:    config.Filter{},
			talkgroup: 100,
			group:     "Fire",
			want:      false,
		},
		{
			name:      "NegatedTGIDBeatsBareSameID",
			filter:    config.Filter{TGIDs: []string{"!100", "100"}},
			talkgroup: 100,
			group:     "",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.filter, log)
			assert.Equal(t, tt.want, e.ShouldTranscribe(tt.talkgroup, tt.group))
		})
	}
}
