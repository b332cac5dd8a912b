// Package transcript captures one user utterance: it streams microphone
// frames to the AssemblyAI realtime endpoint while watching for sustained
// silence, then collects the final transcript.
package transcript

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Aakashjammula/audio-agent/internal/capture"
	"github.com/Aakashjammula/audio-agent/internal/vad"
)

// DefaultBaseURL is the AssemblyAI v3 streaming endpoint.
const DefaultBaseURL = "wss://streaming.assemblyai.com/v3/ws"

// finalizeTimeout bounds how long we wait for the backend to deliver its
// remaining results after end-of-stream.
const finalizeTimeout = 5 * time.Second

type Config struct {
	APIKey          string
	BaseURL         string // defaults to DefaultBaseURL
	SampleRate      int
	FrameSize       int
	SilenceDuration time.Duration // sustained silence that ends the turn
	SpeechThreshold float64       // VAD probability cutoff
}

// Recognizer drives one turn capture at a time. It is stateless between
// calls; each CaptureUntilSilence opens its own websocket session.
type Recognizer struct {
	cfg Config
	det vad.Detector
}

func NewRecognizer(cfg Config, det vad.Detector) *Recognizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Recognizer{cfg: cfg, det: det}
}

// silenceFrameLimit is the consecutive-silence frame count that ends a turn:
// ceil(sampleRate/frameSize * silenceSeconds).
func (r *Recognizer) silenceFrameLimit() int {
	perSecond := float64(r.cfg.SampleRate) / float64(r.cfg.FrameSize)
	return int(math.Ceil(perSecond * r.cfg.SilenceDuration.Seconds()))
}

// wire messages for the v3 streaming protocol
type turnMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	EndOfTurn  bool   `json:"end_of_turn"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// CaptureUntilSilence streams frames until the silence window elapses or the
// frame stream ends, then returns the concatenated final transcript. On
// backend failure it returns an empty transcript and the error; the caller
// treats that as "no input".
func (r *Recognizer) CaptureUntilSilence(ctx context.Context, frames <-chan capture.Frame) (string, error) {
	if r.cfg.APIKey == "" {
		return "", fmt.Errorf("transcript: api key missing")
	}

	params := url.Values{}
	params.Set("sample_rate", fmt.Sprintf("%d", r.cfg.SampleRate))
	params.Set("encoding", "pcm_s16le")
	params.Set("format_turns", "false")
	wsURL := r.cfg.BaseURL + "?" + params.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	headers := map[string][]string{"Authorization": {r.cfg.APIKey}}
	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return "", fmt.Errorf("transcript: connect failed (status %d): %w", resp.StatusCode, err)
		}
		return "", fmt.Errorf("transcript: connect failed: %w", err)
	}
	defer conn.Close()

	// reader collects finalized turns until the session terminates
	type readResult struct {
		finals []string
		err    error
	}
	readDone := make(chan readResult, 1)
	go func() {
		var finals []string
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				// a close after Terminate is the normal end of session
				readDone <- readResult{finals: finals}
				return
			}
			var probe struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &probe); err != nil {
				continue
			}
			switch probe.Type {
			case "Turn":
				var turn turnMessage
				if err := json.Unmarshal(data, &turn); err != nil {
					continue
				}
				if turn.EndOfTurn && strings.TrimSpace(turn.Transcript) != "" {
					finals = append(finals, strings.TrimSpace(turn.Transcript))
				}
			case "Termination":
				readDone <- readResult{finals: finals}
				return
			case "Error":
				var em errorMessage
				_ = json.Unmarshal(data, &em)
				readDone <- readResult{finals: finals, err: fmt.Errorf("transcript: backend error: %s", em.Error)}
				return
			}
		}
	}()

	if err := r.streamUntilSilence(ctx, conn, frames); err != nil {
		return "", err
	}

	select {
	case res := <-readDone:
		if res.err != nil {
			return "", res.err
		}
		return strings.Join(res.finals, " "), nil
	case <-time.After(finalizeTimeout):
		return "", fmt.Errorf("transcript: timed out waiting for final result")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// streamUntilSilence forwards frames and counts consecutive sub-threshold
// ones; when the counter reaches the limit it signals end-of-stream.
func (r *Recognizer) streamUntilSilence(ctx context.Context, conn *websocket.Conn, frames <-chan capture.Frame) error {
	limit := r.silenceFrameLimit()
	silentFrames := 0
	for {
		select {
		case <-ctx.Done():
			r.terminate(conn)
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				r.terminate(conn)
				return nil
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, pcmBytes(frame)); err != nil {
				return fmt.Errorf("transcript: send audio: %w", err)
			}
			if r.frameIsSpeech(frame) {
				silentFrames = 0
				continue
			}
			silentFrames++
			if silentFrames >= limit {
				r.terminate(conn)
				return nil
			}
		}
	}
}

func (r *Recognizer) frameIsSpeech(frame capture.Frame) bool {
	p, err := r.det.Classify(frame)
	if err != nil {
		// inference failure reads as silence; never escalate
		log.Printf("transcript: vad error (treated as silence): %v", err)
		return false
	}
	return p > r.cfg.SpeechThreshold
}

func (r *Recognizer) terminate(conn *websocket.Conn) {
	_ = conn.WriteJSON(map[string]string{"type": "Terminate"})
}

func pcmBytes(frame capture.Frame) []byte {
	out := make([]byte, len(frame)*2)
	for i, s := range frame {
		binary.LittleEndian.PutUint16(out[i*2:(i+1)*2], uint16(s))
	}
	return out
}
