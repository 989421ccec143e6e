package registry

import (
	"fmt"
	"strconv"
	"strings"
)

const startPrefix = "getfile_"

// DeepLink builds the shareable link that starts the bot with a file payload
func DeepLink(botUsername string, id int64, tok string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, StartPayload(id, tok))
}

// StartPayload is the /start argument carried by a deep-link
func StartPayload(id int64, tok string) string {
	return fmt.Sprintf("%s%d_%s", startPrefix, id, tok)
}

// IsFilePayload reports whether a /start argument asks for a file
func IsFilePayload(payload string) bool {
	return strings.HasPrefix(payload, startPrefix)
}

// ParseStartPayload extracts id and token from getfile_<id>_<token>.
// The retired per-user form getfile_<prefix>_<key>_<user>_<token> and any
// malformed payload yield ErrNotFound.
func ParseStartPayload(payload string) (int64, string, error) {
	rest, ok := strings.CutPrefix(payload, startPrefix)
	if !ok {
		return 0, "", ErrNotFound
	}
	parts := strings.Split(rest, "_")
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", ErrNotFound
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrNotFound
	}
	return id, parts[1], nil
}
