package slackbot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

const userCacheTTL = 5 * time.Minute

var userCache struct {
	sync.Mutex
	users     []slack.User
	fetchedAt time.Time
}

func cachedUsers(ctx context.Context, api *slack.Client) ([]slack.User, error) {
	userCache.Lock()
	defer userCache.Unlock()

	if userCache.users != nil && time.Since(userCache.fetchedAt) < userCacheTTL {
		return userCache.users, nil
	}

	users, err := api.GetUsersContext(ctx)
	if err != nil {
		return nil, err
	}
	userCache.users = users
	userCache.fetchedAt = time.Now()
	return users, nil
}

// resolveMentions turns the configured alert recipients (Slack IDs, user
// names, real names or display names) into user IDs. Names that match no
// workspace member are returned as unresolved.
func resolveMentions(ctx context.Context, api *slack.Client, logger *zap.Logger, recipients []string) ([]string, []string, error) {
	var ids, names []string
	for _, raw := range recipients {
		val := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
		switch {
		case val == "":
		case isLikelySlackID(val):
			ids = append(ids, val)
		default:
			names = append(names, val)
		}
	}
	if len(names) == 0 {
		return uniqueStrings(ids), nil, nil
	}

	users, err := cachedUsers(ctx, api)
	if err != nil {
		logger.Warn("alert mentions: list users failed", zap.Error(err))
		return uniqueStrings(ids), names, err
	}

	byName := make(map[string]string)
	for _, user := range users {
		for _, n := range []string{user.Name, user.RealName, user.Profile.DisplayName} {
			n = strings.ToLower(strings.TrimSpace(n))
			if _, taken := byName[n]; n != "" && !taken {
				byName[n] = user.ID
			}
		}
	}

	var unresolved []string
	for _, name := range names {
		if id, ok := byName[strings.ToLower(name)]; ok {
			ids = append(ids, id)
		} else {
			unresolved = append(unresolved, name)
		}
	}
	if len(unresolved) > 0 {
		logger.Warn("alert mentions unresolved", zap.Strings("names", unresolved))
	}
	return uniqueStrings(ids), unresolved, nil
}

func isLikelySlackID(val string) bool {
	if len(val) < 9 {
		return false
	}
	for i, r := range val {
		if i == 0 {
			if r != 'U' && r != 'W' {
				return false
			}
			continue
		}
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func uniqueStrings(vals []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
