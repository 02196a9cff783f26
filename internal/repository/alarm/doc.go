// Package alarm persists alarm records so they survive restarts.
//
// Two drivers implement Repository: a JSON document on disk ("file") and a
// SQLite database ("sqlite"). Both store the last request and trigger per
// alarm id; the server replays them at boot.
package alarm
