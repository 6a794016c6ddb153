package vault

// The withdrawal window has two states, OPEN and CLOSED, derived entirely from
// a single expiry timestamp. Reads never mutate; writes happen only inside
// deposit, reactivation, full unwind and settlement.

// SecondsPerDay is the minimum idle period before reactivation and the floor
// on a reactivated window's duration.
const SecondsPerDay int64 = 86400

// WindowOpen reports the window state at the given time. A vault that has
// never opened its window (expiry zero) is CLOSED.
func WindowOpen(expiry, now int64) bool {
	return expiry != 0 && now < expiry
}

// CanReactivate reports whether the window has been expired for at least one
// day. A never-opened window cannot be reactivated; the first deposit opens it.
func CanReactivate(expiry, now int64) bool {
	return expiry != 0 && now >= expiry+SecondsPerDay
}

// NextExpiry computes the expiry for a window opened by deposit, unwind or
// settlement.
func NextExpiry(now, lengthSecs int64) int64 {
	return now + lengthSecs
}

// ReactivationExpiry computes the expiry for an explicitly reactivated window.
// Duration is floored at one day regardless of the configured length.
func ReactivationExpiry(now, lengthSecs int64) int64 {
	if lengthSecs < SecondsPerDay {
		lengthSecs = SecondsPerDay
	}
	return now + lengthSecs
}
