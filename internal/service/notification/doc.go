// Package notification assembles the descriptor displayed when an alarm fires.
//
// The Builder copies presentation options from the request, applies
// defaults, caps action buttons at the platform limit and downloads the
// optional image. Image failures degrade to a notification without image.
package notification
