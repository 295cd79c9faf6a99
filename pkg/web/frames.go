package web

import (
	"bytes"
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-optcam/pkg/imgconv"
)

// Frame messages on /ws/frames are the session id, a newline, then the
// JPEG bytes.
const frameSep = '\n'

// EncodeFrame builds a /ws/frames payload.
func EncodeFrame(id string, jpeg []byte) []byte {
	out := make([]byte, 0, len(id)+1+len(jpeg))
	out = append(out, id...)
	out = append(out, frameSep)
	return append(out, jpeg...)
}

// DecodeFrame splits a /ws/frames payload.
func DecodeFrame(msg []byte) (id string, jpeg []byte, ok bool) {
	i := bytes.IndexByte(msg, frameSep)
	if i <= 0 {
		return "", nil, false
	}
	return string(msg[:i]), msg[i+1:], true
}

// publishFrames captures a round of images from every streaming session at
// most FrameFPS times a second while /ws/frames has listeners.
func (s *Server) publishFrames(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.FrameFPS), 1)
	timeout := time.Duration(s.cfg.FrameTimeoutMs) * time.Millisecond

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if s.frameHub.ClientCount() == 0 {
			continue
		}
		s.publishRound(ctx, timeout)
	}
}

func (s *Server) publishRound(ctx context.Context, timeout time.Duration) {
	images, err := s.mgr.CaptureAll(ctx, timeout)
	if err != nil && ctx.Err() == nil {
		s.log.Debug().Err(err).Msg("frame round")
	}
	for id, img := range images {
		data, encErr := imgconv.EncodeJPEG(img, s.cfg.JPEGQuality)
		if sess, getErr := s.mgr.Get(id); getErr == nil {
			sess.Decoder().Recycle(img)
		}
		if encErr != nil {
			s.log.Warn().Err(encErr).Str("session_id", id).Msg("encode frame")
			continue
		}
		s.frameHub.BroadcastBinary(EncodeFrame(id, data))
	}
}
