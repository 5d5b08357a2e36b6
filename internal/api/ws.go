package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/idhash"
	"newsvendor-lab/internal/orchestrator"
	"newsvendor-lab/internal/search"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed for the client to send its grid request
	requestWait = 10 * time.Second

	// Maximum size of the grid request frame
	maxMessageSize = 64 << 10
)

// Stream frame types
const (
	FrameSummary = "summary"
	FrameDone    = "done"
	FrameError   = "error"
)

// StreamFrame is one server message on /ws/grid.
type StreamFrame struct {
	Type     string          `json:"type"`
	Position *int            `json:"position,omitempty"` // summary frames
	Summary  *domain.Summary `json:"summary,omitempty"`  // summary frames; best Q on done
	RunID    string          `json:"run_id,omitempty"`   // done frames
	ShortID  string          `json:"short_id,omitempty"` // done frames
	Points   int             `json:"points,omitempty"`   // done frames
	Error    string          `json:"error,omitempty"`    // error frames
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleGridStream evaluates a grid over a WebSocket.
// The client sends one GridRequest; the server answers with one summary frame
// per Q in evaluation order, then a done frame, then closes.
func (s *Server) handleGridStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.WSClients.Inc()
		defer s.metrics.WSClients.Dec()
	}

	logger := s.logger.With().Str("request_id", RequestIDFrom(r.Context())).Logger()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(requestWait))

	var req GridRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeFrame(conn, StreamFrame{Type: FrameError, Error: fmt.Sprintf("invalid grid request: %v", err)})
		closeStream(conn, websocket.CloseUnsupportedData, "invalid grid request")
		return
	}
	conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithTimeout(r.Context(), studyTimeout)
	defer cancel()

	// Any further read error means the client went away.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	done, err := s.streamGrid(ctx, conn, req)
	if err != nil {
		if errors.Is(err, errClientGone) || errors.Is(err, context.Canceled) {
			logger.Debug().Err(err).Msg("grid stream aborted")
			return
		}
		writeFrame(conn, StreamFrame{Type: FrameError, Error: streamErrorMessage(err)})
		closeStream(conn, websocket.CloseNormalClosure, "error")
		return
	}

	if err := writeFrame(conn, done); err != nil {
		return
	}
	closeStream(conn, websocket.CloseNormalClosure, FrameDone)

	logger.Info().
		Str("run_id", done.ShortID).
		Int("points", done.Points).
		Int("best_q", done.Summary.Q).
		Msg("grid stream complete")
}

var errClientGone = errors.New("client gone")

// streamGrid evaluates the coarse grid, then the refined grid if requested,
// writing each summary as it completes. It returns the done frame.
func (s *Server) streamGrid(ctx context.Context, conn *websocket.Conn, req GridRequest) (StreamFrame, error) {
	oreq, err := s.gridRequest(req)
	if err != nil {
		return StreamFrame{}, err
	}
	m := s.runner.Model()
	if err := oreq.Scenario.Validate(m); err != nil {
		return StreamFrame{}, err
	}

	qs := oreq.QValues
	if len(qs) > 0 {
		err = search.CheckValues(qs, m.Limits)
	} else {
		qs, err = search.Range(oreq.QMin, oreq.QMax, oreq.Step, m.Limits)
	}
	if err != nil {
		return StreamFrame{}, err
	}

	var summaries []*domain.Summary
	emit := func(pos int, sum *domain.Summary) error {
		summaries = append(summaries, sum)
		if err := writeFrame(conn, StreamFrame{Type: FrameSummary, Position: &pos, Summary: sum}); err != nil {
			return fmt.Errorf("%w: %v", errClientGone, err)
		}
		return nil
	}

	if err := s.runner.StreamGrid(ctx, qs, oreq.Scenario, oreq.Sim, emit); err != nil {
		return StreamFrame{}, err
	}

	all := slices.Clone(qs)
	if oreq.Refine {
		if oreq.RefineWidth < 0 || oreq.RefineStep <= 0 {
			return StreamFrame{}, orchestrator.ErrInvalidRefine
		}
		coarseBest, err := search.Best(summaries)
		if err != nil {
			return StreamFrame{}, err
		}
		refined, err := search.RefineRange(coarseBest.Q, oreq.RefineWidth, oreq.RefineStep,
			slices.Min(qs), slices.Max(qs), m.Limits)
		if err != nil {
			return StreamFrame{}, err
		}
		offset := len(qs)
		err = s.runner.StreamGrid(ctx, refined, oreq.Scenario, oreq.Sim, func(pos int, sum *domain.Summary) error {
			return emit(offset+pos, sum)
		})
		if err != nil {
			return StreamFrame{}, err
		}
		all = append(all, refined...)
	}

	best, err := search.Best(summaries)
	if err != nil {
		return StreamFrame{}, err
	}
	n, seed := oreq.Sim.Resolve(oreq.Scenario)
	runID := idhash.ComputeRunID(domain.RunModeGrid, oreq.Scenario, m, all, n, seed)
	short, err := idhash.ShortRunID(runID)
	if err != nil {
		return StreamFrame{}, err
	}

	return StreamFrame{
		Type:    FrameDone,
		Summary: best,
		RunID:   runID,
		ShortID: short,
		Points:  len(summaries),
	}, nil
}

func streamErrorMessage(err error) string {
	if statusFor(err) >= http.StatusInternalServerError {
		return http.StatusText(http.StatusInternalServerError)
	}
	return err.Error()
}

func writeFrame(conn *websocket.Conn, f StreamFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
