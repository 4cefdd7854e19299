// Package services talks to the collaborators the scheduler depends on but does not own.
//
// # HTTP client
//
// [Client] wraps JSON requests to one base URL and maps failure statuses onto the shared
// error taxonomy (429 → [shared.ErrThrottled], 5xx → [shared.ErrServiceUnavailable],
// 404 → [shared.ErrAssetNotFound]) so the asset coordinator can classify them.
//
// # Audio
//
// [AudioLoader] fetches speech and custom audio into an afero-backed cache directory.
// Entries expire through go-cache, duplicate fetches collapse through singleflight and
// non-critical fetches pass a token bucket. [Tone] renders the fallback beep as WAV.
//
// # Signals
//
//   - [HTTPSleepAnalyzer] : sleep recommendations
//   - [HTTPConditionProvider] : weather, traffic and calendar snapshots, cached briefly
//   - [HolidayCalendar] : holiday dates from iCalendar feeds, with RRULE expansion
//
// # Notifications
//
// [WebhookNotifier] and [ConsoleNotifier] both schedule and cancel local notifications by
// integer ID.
package services
