// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"regexp"
	"strconv"
	"strings"
)

// ClientCitation is a citation as rendered to the user, numbered by its
// position in the message's citation list.
type ClientCitation struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	URL      string `json:"url,omitempty"`
}

// maxCitationAbstract bounds the snippet shown for each citation.
const maxCitationAbstract = 477

var (
	sourceMarker = regexp.MustCompile(`(?i)【\d+:(\d+)†source】`)
	citationTag  = regexp.MustCompile(`\[(\d+)\]`)
)

// Snippet clips text to maxLength characters, ending clipped text with "...".
// maxLength must be at least 4.
func Snippet(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return strings.TrimSpace(string(runes[:maxLength-3])) + "..."
}

// FormatCitationsResponse rewrites assistant source markers such as
// 【4:1†source】 into numbered tags such as [1].
func FormatCitationsResponse(text string) string {
	return sourceMarker.ReplaceAllString(text, "[$1]")
}

// ToClientCitations numbers citations from 1 in list order.
func ToClientCitations(citations []Citation) []ClientCitation {
	out := make([]ClientCitation, 0, len(citations))
	for i, c := range citations {
		out = append(out, ClientCitation{
			Position: i + 1,
			Title:    c.Title,
			Abstract: Snippet(c.Content, maxCitationAbstract),
			URL:      c.URL,
		})
	}
	return out
}

// UsedCitations returns the citations referenced by a [n] tag in text, in
// order of first reference. It returns nil when text has no tags.
func UsedCitations(text string, citations []ClientCitation) []ClientCitation {
	matches := citationTag.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	byPosition := make(map[int]ClientCitation, len(citations))
	for _, c := range citations {
		if _, ok := byPosition[c.Position]; !ok {
			byPosition[c.Position] = c
		}
	}

	used := []ClientCitation{}
	seen := map[int]bool{}
	for _, m := range matches {
		pos, err := strconv.Atoi(m[1])
		if err != nil || seen[pos] {
			continue
		}
		if c, ok := byPosition[pos]; ok {
			seen[pos] = true
			used = append(used, c)
		}
	}
	return used
}
