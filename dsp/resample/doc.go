// Package resample converts audio between sample rates with a polyphase FIR
// whose prototype is a Kaiser-windowed sinc.
//
// The transcription front end expects mono audio at a fixed rate; decoded
// files at any other rate are brought there with [Convert]:
//
//	y, err := resample.Convert(x, 44100, 22050, resample.WithQuality(resample.QualityBest))
//
// Quality modes trade taps per phase for stopband attenuation:
//
//	mode            taps/phase   nominal stopband
//	QualityFast     16           ~55 dB
//	QualityBalanced 32           ~75 dB
//	QualityBest     64           ~90 dB
package resample
