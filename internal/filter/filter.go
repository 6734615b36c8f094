// Package filter decides whether a call should be transcribed.
package filter

import (
	"strconv"

	"trunk-processor/internal/config"
	"trunk-processor/internal/logger"
)

// Engine evaluates the static allow/deny lists from configuration. It is
// a pure decision function; the archive request marker bypasses it
// entirely and is handled by the pipeline.
type Engine struct {
	filter config.Filter
	log    *logger.Logger
}

func New(filter config.Filter, log *logger.Logger) *Engine {
	return &Engine{filter: filter, log: log}
}

// ShouldTranscribe applies the precedence order: a negated talkgroup id
// denies, a bare talkgroup id allows, a group-list match allows, anything
// else denies. With no lists configured the decision is deny.
func (e *Engine) ShouldTranscribe(talkgroup int32, group string) bool {
	tgid := strconv.FormatInt(int64(talkgroup), 10)
	log := e.log.Module("filter")

	if len(e.filter.TGIDs) > 0 {
		if contains(e.filter.TGIDs, "!"+tgid) {
			log.WithField("tgid", tgid).Info("matched denied talkgroup, no transcribe")
			return false
		}
		if contains(e.filter.TGIDs, tgid) {
			log.WithField("tgid", tgid).Info("matched talkgroup, transcribing")
			return true
		}
	}

	if len(e.filter.Groups) > 0 && contains(e.filter.Groups, group) {
		log.WithField("group", group).Info("matched group, transcribing")
		return true
	}

	log.WithField("tgid", tgid).WithField("group", group).Info("filter values unmatched")
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
