package engines

import (
	"context"
	"strconv"
)

// MediaEngine converts audio and video through ffmpeg. The coordinator
// drives the remux-first protocol: it asks for a stream copy, and on
// failure asks exactly once for a re-encode.
type MediaEngine struct{}

// Name identifies the engine in logs.
func (e *MediaEngine) Name() string { return "media" }

// Convert invokes ffmpeg. With req.Remux set it stream-copies every
// stream into the new container; otherwise it re-encodes with a
// quality-based strategy (VBR for audio targets, CRF for video).
func (e *MediaEngine) Convert(ctx context.Context, req Request) (Outcome, error) {
	if req.Remux {
		err := run(ctx, "engines.media", "ffmpeg",
			"-y", "-i", req.Input,
			"-c", "copy", "-map", "0",
			"-hide_banner", "-loglevel", "error",
			req.Output)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Remuxed: true}, nil
	}

	args := []string{"-y", "-i", req.Input, "-hide_banner", "-loglevel", "error"}
	if isAudioOnly(req.TargetExt) {
		args = append(args, "-q:a", strconv.Itoa(req.Quality.AudioQuality))
	} else {
		args = append(args, "-crf", strconv.Itoa(req.Quality.VideoCRF))
	}
	args = append(args, req.Output)

	if err := run(ctx, "engines.media", "ffmpeg", args...); err != nil {
		return Outcome{}, err
	}
	return Outcome{Remuxed: false}, nil
}

// audioOnlyTargets are containers that cannot carry video; CRF is
// meaningless for them.
var audioOnlyTargets = map[string]bool{
	"mp3": true, "wav": true, "flac": true, "ogg": true, "m4a": true,
	"aac": true, "opus": true, "oga": true, "wv": true, "ac3": true,
	"dts": true, "aiff": true, "au": true, "amr": true, "mka": true,
	"adts": true, "spx": true,
}

func isAudioOnly(ext string) bool { return audioOnlyTargets[ext] }
