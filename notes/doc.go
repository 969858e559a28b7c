// Package notes turns note and onset posteriorgrams into discrete note
// events and writes them as a Standard MIDI File.
//
// [Decode] follows the usual polyphonic decoding scheme: onset peaks above a
// threshold start a note, which is tracked forward while the note
// posteriorgram stays above the frame threshold (tolerating short gaps), and
// the energy left over afterwards can seed additional notes.
package notes
