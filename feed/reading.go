package feed

import "strings"

// WordsPerMinute is the reading speed assumed by EstimateReadingMinutes.
const WordsPerMinute = 200

// WordCount returns the number of whitespace-delimited tokens across every
// heading and paragraph.
func WordCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(strings.Fields(s.Heading))
		for _, p := range s.Paragraphs {
			n += len(strings.Fields(p))
		}
	}
	return n
}

// EstimateReadingMinutes returns the reading time of sections in whole
// minutes, rounded up. Empty content takes 0 minutes.
func EstimateReadingMinutes(sections []Section) int {
	words := WordCount(sections)
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
