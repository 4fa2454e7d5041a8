// Package paginate splits catalog listings into messages that fit a character limit.
package paginate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"price-catalog/src/pkg/catalog"
)

// DefaultMaxChunkLength is the chat message limit replies are cut to.
const DefaultMaxChunkLength = 2000

// Format is the display line of one entry.
func Format(entry catalog.Entry) string {
	return fmt.Sprintf("%s: %s\n", entry.Key, entry.RawPrice)
}

/*
Paginate packs the formatted entries greedily into chunks of at most
maxChunkLength characters.

An entry longer than the limit on its own becomes its own chunk and is not
split. maxChunkLength <= 0 disables the limit. Joining the chunks gives back
every formatted line in order.
*/
func Paginate(entries []catalog.Entry, maxChunkLength int) []string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, Format(entry))
	}
	return PackLines(lines, maxChunkLength)
}

// PackLines is Paginate for lines that are already formatted.
func PackLines(lines []string, maxChunkLength int) []string {
	chunks := make([]string, 0)
	var current strings.Builder
	currentLength := 0

	for _, line := range lines {
		lineLength := utf8.RuneCountInString(line)
		if maxChunkLength > 0 && currentLength > 0 && currentLength+lineLength > maxChunkLength {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLength = 0
		}
		current.WriteString(line)
		currentLength += lineLength
	}

	if currentLength > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
