package service

import "strings"

type QuickAction string

const (
	QuickNone       QuickAction = ""
	QuickSummary    QuickAction = "summary"
	QuickKeyMoments QuickAction = "key_moments"
	QuickTranscript QuickAction = "transcript"
)

// Fixed strings sent by the quick-action buttons of the clients.
const (
	SummaryQuestion    = "please summarize this video for me"
	KeyMomentsQuestion = "what are the key moments in this video?"
	TranscriptQuestion = "can you provide the transcript of this video?"
)

const transcriptPreviewRunes = 1000

var rewrites = map[string]struct {
	action   QuickAction
	question string
}{
	SummaryQuestion:    {QuickSummary, "Can you provide a comprehensive summary of this video covering the main topics and key points discussed?"},
	KeyMomentsQuestion: {QuickKeyMoments, "What are the most important moments, timestamps, or key points covered in this video?"},
	TranscriptQuestion: {QuickTranscript, ""},
}

// MatchQuickAction compares question case-insensitively against the fixed
// quick-action strings and returns the question to send downstream.
// Surrounding whitespace is significant.
func MatchQuickAction(question string) (QuickAction, string) {
	r, ok := rewrites[strings.ToLower(question)]
	if !ok {
		return QuickNone, question
	}
	return r.action, r.question
}

// TranscriptExcerpt returns the raw transcript, cut to the first 1000
// characters with a marker when longer.
func TranscriptExcerpt(transcript string) string {
	runes := []rune(transcript)
	if len(runes) > transcriptPreviewRunes {
		return "Here's the beginning of the transcript:\n\n" + string(runes[:transcriptPreviewRunes]) +
			"...\n\n(Transcript truncated for readability)"
	}
	return "Full transcript:\n\n" + transcript
}
