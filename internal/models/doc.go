// Package models defines domain entities for the smartwake alarm scheduler.
//
// The package contains three categories of types:
//
// 1. Alarm definitions: user-owned, persisted entities
//   - [Alarm] : firing rule, scheduling state and adaptation state
//   - [RecurrencePattern] : tagged recurrence rule (daily, weekly, monthly, yearly, workdays, weekends, custom)
//   - [ConditionRule] : condition → adjustment rule evaluated against live conditions
//   - [ConditionalRule] : per-occurrence skip rule (holidays, weekends, dates)
//   - [WakeFeedback] : dismissal difficulty log entries
//
// 2. Critical assets: audio content tracked ahead of trigger time
//   - [CriticalAsset] : one speech, custom audio or fallback tone entry tied to one occurrence
//
// 3. Adaptation signals: ephemeral values produced on every evaluation cycle
//   - [AdaptationTrigger] : weighted suggestion with typed [Evidence]
//   - [Conditions] : typed snapshot of weather, traffic and calendar signals
//   - [SleepRecommendation] : sleep analysis output
//
// Every persisted type exposes Validate, which reports input errors wrapped around [shared.ErrInvalidInput].
package models
