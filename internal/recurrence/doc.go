// Package recurrence computes future firing instants for alarms.
//
// Every function in this package is pure: results depend only on the arguments,
// nothing is cached, and the package holds no mutable state. Rule-based patterns
// (daily, weekly, monthly, yearly, workdays, weekends) are expanded with RFC 5545
// rules via [rrule.RRule]; custom patterns are expanded directly.
//
// Wall-clock semantics: an alarm at "07:00" fires at 07:00 local time in the
// location of the reference instant, on every matching calendar date, across DST
// transitions.
package recurrence
