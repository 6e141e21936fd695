package wallet

import (
	"strings"
	"unicode"
)

// CommentMessage builds the canonical byte sequence a wallet signs when
// commenting. It is a pure function of its inputs: the client signs exactly
// this sequence and the server reconstructs it independently, so any
// timestamp, nonce, or randomness here would break verification for every
// genuine comment.
//
// The post ID is embedded verbatim, no escaping: a quoting formatter would
// rewrite runes it considers non-printable and the signed bytes would
// silently diverge from this template. ValidPostID keeps the quoted form
// unambiguous.
//
// The template is frozen. Changing it invalidates every signature produced
// against the old form.
func CommentMessage(postID, text string) []byte {
	return []byte("Comment on post \"" + postID + "\":\n\n" + strings.TrimSpace(text))
}

// ValidPostID reports whether a post ID is safe to embed in the canonical
// message. Quotes, backslashes, and control characters are rejected so that
// no (postID, text) pair can produce the same byte sequence as a different
// pair.
func ValidPostID(postID string) bool {
	if postID == "" {
		return false
	}

	for _, r := range postID {
		if r == '"' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}

	return true
}
