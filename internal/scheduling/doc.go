// Package scheduling owns the alarm lifecycle.
//
// An [Orchestrator] persists alarms through an [AlarmStore] and keeps three things in
// line with the stored collection: the platform notifications for each alarm's next
// occurrences, the critical assets tracked by the asset coordinator, and the set of
// alarms the adaptive scheduler monitors. Notification IDs are stable per (alarm, slot)
// so rescheduling replaces rather than duplicates.
//
// [Orchestrator.Run] drives the periodic work: asset sweeps, trigger detection,
// rediscovery of alarms changed outside the process, and the adaptive check loop.
package scheduling
