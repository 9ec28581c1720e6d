package extract

import "regexp"

var (
	followerFragment = []*regexp.Regexp{
		regexp.MustCompile(`"edge_followed_by"\s*:\s*\{\s*"count"\s*:\s*(-?\d+)`),
		regexp.MustCompile(`"follower_count"\s*:\s*(-?\d+)`),
	}
	followingFragment = []*regexp.Regexp{
		regexp.MustCompile(`"edge_follow"\s*:\s*\{\s*"count"\s*:\s*(-?\d+)`),
		regexp.MustCompile(`"following_count"\s*:\s*(-?\d+)`),
	}
	postsFragment = []*regexp.Regexp{
		regexp.MustCompile(`"edge_owner_to_timeline_media"\s*:\s*\{\s*"count"\s*:\s*(-?\d+)`),
		regexp.MustCompile(`"media_count"\s*:\s*(-?\d+)`),
	}
)

// RawFollowerCount is the last resort: it needs only a follower count field.
// Following falls back to the baseline and posts to zero when they are absent.
func RawFollowerCount(content string, base Baseline) (Result, bool) {
	followers, ok, bad := firstCount(content, followerFragment)
	if !ok || bad {
		return Result{}, false
	}
	following, ok, bad := firstCount(content, followingFragment)
	if bad {
		return Result{}, false
	}
	if !ok {
		following = base.Following
	}
	posts, ok, bad := firstCount(content, postsFragment)
	if bad {
		return Result{}, false
	}
	if !ok {
		posts = 0
	}
	return Result{Followers: followers, Following: following, Posts: posts}, true
}

// firstCount returns the first match among patterns. bad is set when a match is malformed.
func firstCount(content string, patterns []*regexp.Regexp) (n int64, ok bool, bad bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		v, err := ParseCount(m[1])
		if err != nil {
			return 0, false, true
		}
		return v, true, false
	}
	return 0, false, false
}
