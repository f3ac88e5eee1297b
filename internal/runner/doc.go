// Package runner drives one asynchronous job from submission to its
// terminal state.
//
// The state machine is Submitting -> Polling -> Completed | Failed |
// TimedOut. Polls are strictly sequential with a fixed interval and a
// bounded attempt budget; status text is classified against configurable
// completed and failed sets. A completed job fetches the result payload,
// resolves the download URL (falling back to the last status snapshot),
// and hands it to the Saver. A job that completes without a resolvable
// URL is still a success, reported with a note instead of an artifact.
package runner
