// Package pathing derives the storage key prefix for a call.
package pathing

import (
	"fmt"
	"strings"
	"time"

	"trunk-processor/internal/apperror"
)

// Prefix returns "<suffix>/<YYYY>/<MM>/<DD>" where suffix is the last
// '-'-delimited token of the system short name and the date is the call's
// start time in UTC. The same document always yields the same prefix,
// which is what makes the call upsert idempotent.
func Prefix(shortName string, start time.Time) (string, error) {
	if shortName == "" {
		return "", apperror.New(apperror.KindPathParse, "short name must be populated")
	}

	tokens := strings.Split(shortName, "-")
	suffix := tokens[len(tokens)-1]
	if suffix == "" {
		return "", apperror.New(apperror.KindPathParse, "short name %q has no system suffix", shortName)
	}

	utc := start.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d", suffix, utc.Year(), int(utc.Month()), utc.Day()), nil
}

// CallKey is the call's primary key and the storage key of its audio
// artifact: the derived prefix plus the audio file's original name.
func CallKey(prefix, audioName string) string {
	return prefix + "/" + audioName
}
