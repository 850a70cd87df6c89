package queue

import "fmt"

// Name is the deterministic queue name for a (chatview, member) pair.
func Name(chatViewID, userID string) string {
	return fmt.Sprintf("chatview.%s.member.%s", chatViewID, userID)
}
