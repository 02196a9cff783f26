// Package local fires alarms inside the current process.
//
// It is the adapter used by the alarm server. Triggers are registered as
// robfig/cron entries: calendar matches become CRON_TZ cron specs evaluated
// in the alarm's zone, intervals and one-shot alarms use custom schedules.
package local
