package handlers

import "strings"

// profileQueryPhrases route a message to the profile-summary flow when any of
// them appears as a substring of the trimmed text.
var profileQueryPhrases = []string{
	"今の私はどんなですか",
	"今の私はどんな",
	"私ってどんな",
	"自分ってどんな",
}

// IsProfileQuery reports whether text asks for a profile summary rather than
// filing a daily report.
func IsProfileQuery(text string) bool {
	for _, phrase := range profileQueryPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
