package transcript

import "strings"

// Speaker ids produced by diarization.
const (
	SpeakerInterviewer = 1
	SpeakerCandidate   = 2
)

// SpeakerSegment is one diarized stretch of speech.
type SpeakerSegment struct {
	SpeakerID  int    `json:"speakerId"`
	Transcript string `json:"transcript"`
}

// Label returns the display label for a speaker id, or "" when the id has no
// assigned role.
func Label(speakerID int) string {
	switch speakerID {
	case SpeakerInterviewer:
		return "Interviewer"
	case SpeakerCandidate:
		return "Candidate"
	default:
		return ""
	}
}

// FormatSpeakerResults renders one line per segment, in input order, joined
// by newlines. Known speakers are prefixed with "[Label]: "; segments with any
// other id are emitted as the bare transcript.
func FormatSpeakerResults(segments []SpeakerSegment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		label := Label(seg.SpeakerID)
		if label == "" {
			lines = append(lines, seg.Transcript)
			continue
		}
		lines = append(lines, "["+label+"]: "+seg.Transcript)
	}
	return strings.Join(lines, "\n")
}
