// Package pins converts the semi-structured Pinterest pack text into typed
// pin records.
package pins

import (
	"regexp"
	"strings"

	"whimsy/internal/core"
)

var (
	markerPattern   = regexp.MustCompile(`(?i)PIN \d+:?`)
	titlePattern    = regexp.MustCompile(`(?i)Pinterest Title:\s*(.*)`)
	descPattern     = regexp.MustCompile(`(?is)Pinterest Description:\s*(.*?)(?:Hashtags:|$)`)
	hashtagsPattern = regexp.MustCompile(`(?i)Hashtags:\s*(.*)`)
)

// Parse splits the pin pack on "PIN <n>:" markers and extracts one record
// per block. Text before the first marker is discarded. A block yields a
// record only when it has at least a title or a description; missing
// fields default to empty strings. IDs follow emission order, not the
// numeral in the marker.
func Parse(pinPack string) []core.PinRecord {
	blocks := markerPattern.Split(pinPack, -1)
	if len(blocks) < 2 {
		return nil
	}

	var records []core.PinRecord
	for _, block := range blocks[1:] {
		titleMatch := titlePattern.FindStringSubmatch(block)
		descMatch := descPattern.FindStringSubmatch(block)
		hashtagsMatch := hashtagsPattern.FindStringSubmatch(block)

		if titleMatch == nil && descMatch == nil {
			continue
		}

		record := core.PinRecord{ID: len(records) + 1}
		if titleMatch != nil {
			record.Title = strings.TrimSpace(titleMatch[1])
		}
		if descMatch != nil {
			record.Description = strings.TrimSpace(descMatch[1])
		}
		if hashtagsMatch != nil {
			record.Hashtags = strings.TrimSpace(hashtagsMatch[1])
		}
		records = append(records, record)
	}
	return records
}
