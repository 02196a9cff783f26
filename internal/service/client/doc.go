// Package client implements the operations of the alarmee CLI.
//
// Each operation loads settings, connects to the alarm server and prints a
// short human readable result: schedule, cancel, cancel-all, list, watch,
// export to iCalendar, and the host callbacks for actions and push tokens.
package client
