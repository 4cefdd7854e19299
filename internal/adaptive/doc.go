// Package adaptive decides, close to trigger time, whether a monitored alarm
// should move earlier or later.
//
// A single goroutine ([Scheduler.Run]) owns a min-heap of "next check due" events,
// one per monitored alarm. When an event comes due the loop starts an asynchronous
// [Scheduler.CheckForAdaptation] and re-queues the alarm one polling interval out,
// so slow signal providers never delay other alarms' checks.
//
// Each check gathers [models.AdaptationTrigger] values from four sources (sleep
// analysis, condition rules, wake-up feedback and emergency overrides), fuses them
// with [Fuse], and commits through an [Applier] only when the fused adjustment and
// confidence clear the configured thresholds and the alarm's rolling 24-hour budget
// allows it.
package adaptive
