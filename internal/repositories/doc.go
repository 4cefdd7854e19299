// Package repositories implements persistence for alarms and scheduling state.
//
// SQLite holds everything by default. Each alarm is stored as a JSON document beside a
// few indexed columns and is soft-deleted via deleted_at, so deleted rows are excluded
// from queries but an ID can be reused.
//
// Key Implementations:
//   - [AlarmRepository] : SQLite alarm store
//   - [SettingsRepository] : key/value store for runtime tunables and statistics
//   - [NotificationIDRepository] : persisted (alarm, slot) → notification ID allocator
//   - [AdaptationRepository] : audit trail of committed adaptations
//   - [RedisAlarmStore] : remote-synced alarm store
//   - [FallbackStore] : remote store with the local store as authoritative fallback
package repositories
