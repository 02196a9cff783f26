// Package alarm contains core domain types for alarm scheduling.
//
// Request is what callers ask for, Trigger is the normalized description
// handed to a platform scheduler and Notification is the payload shown
// when the alarm fires. Record pairs a persisted request with its next
// occurrence.
package alarm
