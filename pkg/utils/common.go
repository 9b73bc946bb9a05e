package utils

import (
	"bufio"
	"strings"
)

// ParseKeyValue parses a block of text into a map of key-value pairs,
// one pair per line, split on the first occurrence of sep.
func ParseKeyValue(text string, sep string) map[string]string {
	result := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(text))

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, sep, 2)
		if len(parts) == 2 {
			result[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return result
}
