package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// AvatarURL prefers the avatar a provider handed us and falls back to the
// Gravatar of the email. Both empty yields "".
func AvatarURL(explicit, email string, size int) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	if size <= 0 {
		size = 200
	}
	hash := md5.Sum([]byte(email))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
