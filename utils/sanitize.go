package utils

import (
    "strings"
    "unicode"
)

// maxRaceTextLen caps submitted race text so a client cannot make every
// broadcast carry an arbitrarily large payload.
const maxRaceTextLen = 2000

// SanitizeText strips markup and non-typeable content from submitted race
// text: HTML tags are removed, control characters dropped, whitespace runs
// collapsed to single spaces, and the result is length-capped.
func SanitizeText(text string) string {
    var b strings.Builder
    b.Grow(len(text))

    inTag := false
    lastSpace := true
    for _, r := range text {
        switch {
        case r == '<':
            inTag = true
        case r == '>':
            inTag = false
        case inTag:
            // skip everything inside a tag
        case unicode.IsSpace(r):
            if !lastSpace {
                b.WriteRune(' ')
                lastSpace = true
            }
        case unicode.IsControl(r):
            // skip
        default:
            b.WriteRune(r)
            lastSpace = false
        }
    }

    out := strings.TrimSpace(b.String())
    if runes := []rune(out); len(runes) > maxRaceTextLen {
        out = strings.TrimSpace(string(runes[:maxRaceTextLen]))
    }
    return out
}
