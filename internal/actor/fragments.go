package actor

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// Fragment categories recognised in persona.md documents.
const (
	FragmentVoice           = "voice"
	FragmentLimits          = "limits"
	FragmentDomain          = "domain"
	FragmentRelationships   = "relationships"
	FragmentSpectator       = "spectator"
	FragmentStageDirections = "stage_directions"
)

// A section opens with a [tag] line; its content runs until the next
// [tag] line or a ## heading.
var tagLine = regexp.MustCompile(`^\[(\w+)\]\s*$`)

// parseFragmentDoc extracts [category] sections from a persona.md
// document. Empty sections are dropped.
func parseFragmentDoc(text string) map[string]string {
	fragments := map[string]string{}
	var category string
	var lines []string

	flush := func() {
		if category == "" {
			return
		}
		content := strings.TrimSpace(strings.Join(lines, "\n"))
		if content != "" {
			fragments[category] = content
		}
		category = ""
		lines = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := tagLine.FindStringSubmatch(line); m != nil {
			flush()
			category = strings.ToLower(m[1])
			continue
		}
		if strings.HasPrefix(line, "## ") {
			flush()
			continue
		}
		if category != "" {
			lines = append(lines, line)
		}
	}
	flush()
	return fragments
}

func loadFragmentDoc(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFragmentDoc(string(data)), nil
}
