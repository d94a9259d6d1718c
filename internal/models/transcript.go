package models

import "strings"

// ParseRawTranscript splits a raw transcript blob into turns. Lines of
// the form "speaker: text" start a new turn; continuation lines extend
// the previous turn. Parsing is best-effort and returns whatever could
// be recovered, possibly zero turns.
func ParseRawTranscript(callID, blob string) []TranscriptTurn {
	var turns []TranscriptTurn
	seq := 0
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		speaker, text, ok := splitSpeakerLine(line)
		if !ok {
			if len(turns) > 0 {
				turns[len(turns)-1].Text += " " + line
				continue
			}
			speaker, text = "unknown", line
		}

		seq++
		turns = append(turns, TranscriptTurn{
			CallID:  callID,
			Seq:     seq,
			Speaker: speaker,
			Text:    text,
		})
	}
	return turns
}

// splitSpeakerLine recognises "speaker: text" lines. The speaker label
// must be short and contain no digits, so timestamps like "14:30 ..."
// don't become speakers.
func splitSpeakerLine(line string) (speaker, text string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 || idx > 30 {
		return "", "", false
	}
	label := strings.TrimSpace(line[:idx])
	if label == "" {
		return "", "", false
	}
	for _, r := range label {
		if r >= '0' && r <= '9' {
			return "", "", false
		}
	}
	return strings.ToLower(label), strings.TrimSpace(line[idx+1:]), true
}
