package console

import (
	"regexp"
	"strconv"
	"strings"
)

// SignalKind classifies what a console line means for the supervisor.
type SignalKind int

const (
	// SignalLine is emitted for every clean non-empty line, matched or not.
	SignalLine SignalKind = iota
	SignalReady
	SignalPlayerJoined
	SignalPlayerLeft
	SignalPlayerList
	SignalTPS
	SignalVersion
	SignalError
)

// Signal is one structured observation parsed from console output.
// A single line can produce several signals; SignalLine always comes first
// for that line.
type Signal struct {
	Kind       SignalKind
	Line       string   // clean line (Line, Error)
	Player     string   // PlayerJoined, PlayerLeft
	Players    []string // PlayerList (full replacement set)
	MaxPlayers int      // PlayerList
	TPS        float64  // TPS
	Version    string   // Version
}

var (
	ansiRe       = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)
	joinedRe     = regexp.MustCompile(`(\S+) joined the game`)
	leftRe       = regexp.MustCompile(`(\S+) left the game`)
	playerListRe = regexp.MustCompile(`There are (\d+) of a max of (\d+) players online:\s*(.*)`)
	tpsRe        = regexp.MustCompile(`TPS: ([0-9]+(?:\.[0-9]+)?)`)
	versionRe    = regexp.MustCompile(`Starting minecraft server version (\S+)`)
)

const readyMarker = `s)! For help, type "help"`

// Parser converts raw output chunks into signals. Chunks rarely align with
// line boundaries, so a trailing fragment without a terminator is retained
// and prepended to the next chunk. Parser is not safe for concurrent use;
// each supervisor owns exactly one.
type Parser struct {
	pending strings.Builder
}

// Feed consumes one raw chunk and returns the signals for every complete
// line it closed. Empty and whitespace-only lines are dropped.
func (p *Parser) Feed(chunk string) []Signal {
	if chunk == "" {
		return nil
	}
	p.pending.WriteString(chunk)
	buf := p.pending.String()

	idx := strings.LastIndexByte(buf, '\n')
	if idx < 0 {
		return nil
	}
	complete := buf[:idx]
	p.pending.Reset()
	p.pending.WriteString(buf[idx+1:])

	var out []Signal
	for _, raw := range strings.Split(complete, "\n") {
		out = append(out, ParseLine(raw)...)
	}
	return out
}

// Flush drains a trailing unterminated fragment, parsing it as a final line.
// Called once when the process exits so the last words of a crash are not lost.
func (p *Parser) Flush() []Signal {
	rest := p.pending.String()
	p.pending.Reset()
	return ParseLine(rest)
}

// ParseLine cleans a single line and matches every known pattern against it.
// Matching is not mutually exclusive: one line may fire several signals.
// A line matching nothing yields just its SignalLine (parse ambiguity is not
// an error).
func ParseLine(raw string) []Signal {
	line := StripANSI(strings.TrimRight(raw, "\r"))
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	out := []Signal{{Kind: SignalLine, Line: line}}

	if strings.Contains(line, "Done (") && strings.Contains(line, readyMarker) {
		out = append(out, Signal{Kind: SignalReady})
	}
	if m := playerListRe.FindStringSubmatch(line); m != nil {
		maxPlayers, _ := strconv.Atoi(m[2])
		out = append(out, Signal{
			Kind:       SignalPlayerList,
			MaxPlayers: maxPlayers,
			Players:    splitPlayerNames(m[3]),
		})
	} else {
		// Join/leave lines never coexist with a list response; the list
		// branch must win because names inside it would otherwise be
		// misread by the looser patterns.
		if m := joinedRe.FindStringSubmatch(line); m != nil {
			out = append(out, Signal{Kind: SignalPlayerJoined, Player: m[1]})
		}
		if m := leftRe.FindStringSubmatch(line); m != nil {
			out = append(out, Signal{Kind: SignalPlayerLeft, Player: m[1]})
		}
	}
	if m := tpsRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, Signal{Kind: SignalTPS, TPS: v})
		}
	}
	if m := versionRe.FindStringSubmatch(line); m != nil {
		out = append(out, Signal{Kind: SignalVersion, Version: m[1]})
	}
	if strings.Contains(line, "ERROR") || strings.Contains(line, "FATAL") || strings.Contains(line, "Exception") {
		out = append(out, Signal{Kind: SignalError, Line: line})
	}
	return out
}

// StripANSI removes terminal escape sequences. Idempotent on clean input.
func StripANSI(s string) string {
	if !strings.ContainsRune(s, '\x1b') {
		return s
	}
	return ansiRe.ReplaceAllString(s, "")
}

func splitPlayerNames(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}
