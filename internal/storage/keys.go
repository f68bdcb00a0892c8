package storage

// Logical keys for everything the client persists.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserProfile  = "user_profile"
	KeyTheme        = "theme"
	KeyLanguage     = "language"
	KeyLocation     = "location_cache"
	KeyPrayerTimes  = "prayer_times_cache"
	KeyPrayerExpiry = "prayer_times_expiry"

	completionPrefix = "completion:"
)

// CompletionKey returns the per-day completion record key for a
// YYYY-MM-DD date.
func CompletionKey(date string) string {
	return completionPrefix + date
}
