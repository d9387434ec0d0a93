// Package uci drives UCI chess engine processes such as Stockfish.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/park285/Cheese-Web/internal/obslog"
	"go.uber.org/zap"
)

const (
	defaultReadyTimeout = 4 * time.Second

	// MateScore stands in for a forced mate in centipawns.
	MateScore = 30000
)

type Options struct {
	Threads int
	HashMB  int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
}

// Candidate is one principal variation. EvalCP is relative to the side to move.
type Candidate struct {
	Move      string
	EvalCP    int
	Mate      bool
	Principal []string
}

type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	search sync.Mutex
}

func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if opt.HashMB < 0 || opt.Threads < 0 {
		return nil, fmt.Errorf("invalid engine options %+v", opt)
	}

	// the process outlives the acquiring request, so it is not bound to ctx
	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}
	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
}

func (s *Session) Search(ctx context.Context, fen string, limits Limits) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	positionCmd := buildPositionCommand(fen)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}
	goTokens, err := buildGoTokens(limits)
	if err != nil {
		return SearchResponse{}, err
	}
	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(limits))
	defer cancel()

	candidates := make(map[int]Candidate)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			obslog.L().Warn("uci_read_error",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			return SearchResponse{}, fmt.Errorf("read line: %w", err)
		}
		switch {
		case line == "":
		case strings.HasPrefix(line, "info "):
			if mv, cand, ok := parseInfo(line); ok {
				candidates[mv] = cand
			}
		case strings.HasPrefix(line, "bestmove"):
			var best string
			if parts := strings.Fields(line); len(parts) >= 2 && parts[1] != "(none)" {
				best = parts[1]
			}
			return SearchResponse{Candidates: collapseCandidates(candidates), BestMove: best}, nil
		}
	}
}

func buildPositionCommand(fen string) string {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + strings.TrimSpace(fen) + "\n"
}

func buildGoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		return time.Duration(l.MoveTimeMillis+2000) * time.Millisecond * 3
	}
	base := time.Duration(l.Depth) * 300 * time.Millisecond
	if base < 6*time.Second {
		base = 6 * time.Second
	}
	if base > 20*time.Second {
		base = 20 * time.Second
	}
	return base
}

func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	var (
		multipv = 1
		cand    Candidate
		pvIdx   = -1
	)
	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						cand.EvalCP = v
					case "mate":
						cand.Mate = true
						cand.EvalCP = MateScore
						if v < 0 {
							cand.EvalCP = -MateScore
						}
					}
				}
				i += 2
			}
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}
	if pvIdx == -1 || pvIdx >= len(parts) {
		return 0, Candidate{}, false
	}
	cand.Principal = append([]string(nil), parts[pvIdx:]...)
	cand.Move = cand.Principal[0]
	return multipv, cand, true
}

func collapseCandidates(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()
	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	cmds := []string{fmt.Sprintf("setoption name Threads value %d\n", threads)}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	for _, c := range cmds {
		if err := s.send(c); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
