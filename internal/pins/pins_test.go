package pins

import (
	"testing"

	"whimsy/internal/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		pinPack string
		want    []core.PinRecord
	}{
		{
			name: "single pin",
			pinPack: "PINTEREST_PACK:\nPIN 1:\nPinterest Title: Glow\nPinterest Description: Shiny nails\nHashtags: #nails #glow",
			want: []core.PinRecord{
				{ID: 1, Title: "Glow", Description: "Shiny nails", Hashtags: "#nails #glow"},
			},
		},
		{
			name: "three pins keep encounter order",
			pinPack: `PINTEREST_PACK:
PIN 1:
Pinterest Title: First
Pinterest Description: One
Hashtags: #a

PIN 2:
Pinterest Title: Second
Pinterest Description: Two
Hashtags: #b

PIN 3:
Pinterest Title: Third
Pinterest Description: Three
Hashtags: #c`,
			want: []core.PinRecord{
				{ID: 1, Title: "First", Description: "One", Hashtags: "#a"},
				{ID: 2, Title: "Second", Description: "Two", Hashtags: "#b"},
				{ID: 3, Title: "Third", Description: "Three", Hashtags: "#c"},
			},
		},
		{
			name: "block without title or description is discarded, ids stay dense",
			pinPack: `PIN 1:
Hashtags: #only
PIN 2:
Pinterest Title: Kept
Hashtags: #kept`,
			want: []core.PinRecord{
				{ID: 1, Title: "Kept", Hashtags: "#kept"},
			},
		},
		{
			name:    "no markers",
			pinPack: "Pinterest Title: orphan line with no pin marker",
			want:    nil,
		},
		{
			name:    "empty input",
			pinPack: "",
			want:    nil,
		},
		{
			name: "case-insensitive marker and fields",
			pinPack: "pin 7:\npinterest title: Lower\npinterest description: case\nhashtags: #ok",
			want: []core.PinRecord{
				{ID: 1, Title: "Lower", Description: "case", Hashtags: "#ok"},
			},
		},
		{
			name: "multi-line description terminated by hashtags",
			pinPack: "PIN 1:\nPinterest Title: Long\nPinterest Description: Line one.\nLine two.\n\nLine three.\nHashtags: #tags",
			want: []core.PinRecord{
				{ID: 1, Title: "Long", Description: "Line one.\nLine two.\n\nLine three.", Hashtags: "#tags"},
			},
		},
		{
			name: "description runs to end of block when hashtags missing",
			pinPack: "PIN 1:\nPinterest Title: NoTags\nPinterest Description: Runs to the end\nof the block",
			want: []core.PinRecord{
				{ID: 1, Title: "NoTags", Description: "Runs to the end\nof the block"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.pinPack)
			if len(got) != len(tt.want) {
				t.Fatalf("Parse() returned %d records, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("record[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
