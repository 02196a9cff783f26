// Package android maps triggers onto AlarmManager and NotificationManager calls.
//
// The host application supplies thin bindings for both services. One-shot
// and calendar triggers arm a single wake-up: exact only when the request
// opted in and the OS granted the exact-alarm permission, otherwise the
// idle-tolerant inexact call. Calendar repeats are re-armed from
// HandleBroadcast, which is the receiver's re-entry into the core.
package android
