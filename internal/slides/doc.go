// Package slides detects slide transitions in a lecture recording.
//
// A Detector first scans the opening frames for the institution banner that
// marks a projected slide, freezes the slide area found in that anchor frame,
// and then samples the rest of the video at a fixed interval. Each sample's
// slide area is hashed and matched against the deck. A Tracker accepts a page
// the first time it appears, either on a near-identical hash or when the
// recognized slide text corroborates a weaker hash match. Pages shown again
// later are never reported twice.
//
// The Result lists one Transition per confirmed page in order of appearance.
// Frame numbers are strictly increasing. An Observer can be injected to
// render or record intermediate state without changing the outcome.
package slides
