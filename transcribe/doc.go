// Package transcribe runs the full audio-to-posteriorgram pipeline.
//
// A [Model] owns one constant-Q front end and four sub-model graphs
// (contour, note, onset input, onset output). [Model.Transcribe] cuts the
// recording into overlapping fixed-length windows, runs each window through
// the pipeline in order and concatenates the per-window outputs into three
// whole-signal matrices, one row per hop-sized frame:
//
//	m, err := transcribe.Open(transcribe.DefaultConfig())
//	pg, err := m.Transcribe(samples)
//	// pg.Contour: frames x 264, pg.Note and pg.Onset: frames x 88
//
// A Model is not safe for concurrent Transcribe calls; the constant-Q engine
// and graphs it holds are, so several Models may share them through
// [NewModel].
package transcribe
