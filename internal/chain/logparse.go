package chain

import (
	"fmt"
	"strconv"
	"strings"
)

// Markers the lottery program prints in front of a ticket identifier.
const (
	MarkerTicketID     = "Ticket Id"
	MarkerWinnerTicket = "Winner Ticket"
)

// TicketFact is the structured identifier extracted from program log
// output: "<Label> #<LotteryID>-<Sequence>".
type TicketFact struct {
	Label     string
	LotteryID int64
	Sequence  int64
}

// TicketID renders the canonical identifier. This exact form is the join
// key between ticket rows and reveal events, so it must round-trip through
// ParseTicketLine unchanged.
func (f TicketFact) TicketID() string {
	return fmt.Sprintf("%s #%d-%d", f.Label, f.LotteryID, f.Sequence)
}

// ParseTicketLog finds the first log line containing marker and extracts
// the ticket fact from it. Only that line is considered: a marker line that
// does not carry a well-formed identifier is a malformed log, not a reason
// to keep scanning.
func ParseTicketLog(logs []string, marker string) (*TicketFact, error) {
	for _, line := range logs {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}

		fact, ok := ParseTicketLine(line[idx+len(marker):])
		if !ok {
			return nil, verifyErr(KindMalformedLog, "invalid log message format")
		}

		return fact, nil
	}

	return nil, verifyErr(KindMalformedLog, "invalid log message format")
}

// ParseTicketLine parses the text following a marker. Grammar: optional
// spaces, a colon, optional spaces, a label of word or space characters,
// '#', integer, '-', integer. The label is returned trimmed.
func ParseTicketLine(s string) (*TicketFact, bool) {
	pos := skipSpaces(s, 0)

	if pos >= len(s) || s[pos] != ':' {
		return nil, false
	}
	pos++

	pos = skipSpaces(s, pos)

	labelStart := pos
	for pos < len(s) && isLabelChar(s[pos]) {
		pos++
	}

	label := strings.TrimSpace(s[labelStart:pos])
	if label == "" {
		return nil, false
	}

	if pos >= len(s) || s[pos] != '#' {
		return nil, false
	}
	pos++

	lotteryID, pos, ok := scanInt(s, pos)
	if !ok {
		return nil, false
	}

	if pos >= len(s) || s[pos] != '-' {
		return nil, false
	}
	pos++

	sequence, _, ok := scanInt(s, pos)
	if !ok {
		return nil, false
	}

	return &TicketFact{
		Label:     label,
		LotteryID: lotteryID,
		Sequence:  sequence,
	}, true
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}

	return pos
}

func isLabelChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == ' ' || c == '\t':
		return true
	}

	return false
}

func scanInt(s string, pos int) (int64, int, bool) {
	start := pos
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		pos++
	}

	if pos == start {
		return 0, pos, false
	}

	n, err := strconv.ParseInt(s[start:pos], 10, 64)
	if err != nil {
		return 0, pos, false
	}

	return n, pos, true
}
