package chain

import (
	"strings"
	"testing"
)

func TestParseTicketLog(t *testing.T) {
	cases := []struct {
		name     string
		logs     []string
		marker   string
		wantID   string
		wantLot  int64
		wantSeq  int64
		wantFail bool
	}{
		{
			name: "PurchaseLog",
			logs: []string{
				"Program 11111111111111111111111111111111 invoke [1]",
				"Program log: Instruction: BuyTickets",
				"Program log: Ticket Id : MyLotto #7-42",
			},
			marker:  MarkerTicketID,
			wantID:  "MyLotto #7-42",
			wantLot: 7,
			wantSeq: 42,
		},
		{
			name:    "WinnerLog",
			logs:    []string{"Program log: Winner Ticket : Mega Draw #12-3"},
			marker:  MarkerWinnerTicket,
			wantID:  "Mega Draw #12-3",
			wantLot: 12,
			wantSeq: 3,
		},
		{
			name:    "NoSpaceAroundColon",
			logs:    []string{"Winner Ticket:Lotto #1-1"},
			marker:  MarkerWinnerTicket,
			wantID:  "Lotto #1-1",
			wantLot: 1,
			wantSeq: 1,
		},
		{
			name:     "MarkerAbsent",
			logs:     []string{"Program log: Instruction: BuyTickets"},
			marker:   MarkerTicketID,
			wantFail: true,
		},
		{
			name:     "MissingColon",
			logs:     []string{"Ticket Id MyLotto #7-42"},
			marker:   MarkerTicketID,
			wantFail: true,
		},
		{
			name:     "MissingHash",
			logs:     []string{"Ticket Id : MyLotto 7-42"},
			marker:   MarkerTicketID,
			wantFail: true,
		},
		{
			name:     "MissingDash",
			logs:     []string{"Ticket Id : MyLotto #742"},
			marker:   MarkerTicketID,
			wantFail: true,
		},
		{
			name:     "MissingSequence",
			logs:     []string{"Ticket Id : MyLotto #7-"},
			marker:   MarkerTicketID,
			wantFail: true,
		},
		{
			name:     "EmptyLabel",
			logs:     []string{"Ticket Id : #7-42"},
			marker:   MarkerTicketID,
			wantFail: true,
		},
		{
			name:     "NoLogs",
			logs:     nil,
			marker:   MarkerTicketID,
			wantFail: true,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fact, err := ParseTicketLog(tc.logs, tc.marker)

			if tc.wantFail {
				if err == nil {
					t.Fatalf("expected error, got fact %+v", fact)
				}

				verr, ok := err.(*VerifyError)
				if !ok || verr.Kind != KindMalformedLog {
					t.Errorf("expected malformed log error, got: %v", err)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if fact.TicketID() != tc.wantID {
				t.Errorf("unexpected ticket id, want: %q, got: %q", tc.wantID, fact.TicketID())
			}

			if fact.LotteryID != tc.wantLot {
				t.Errorf("unexpected lottery id, want: %d, got: %d", tc.wantLot, fact.LotteryID)
			}

			if fact.Sequence != tc.wantSeq {
				t.Errorf("unexpected sequence, want: %d, got: %d", tc.wantSeq, fact.Sequence)
			}
		})
	}
}

// The composed identifier is the join key between ticket rows and reveal
// events, so parsing a rendered id must reproduce it byte for byte.
func TestTicketIDRoundTrip(t *testing.T) {
	facts := []TicketFact{
		{Label: "MyLotto", LotteryID: 7, Sequence: 42},
		{Label: "Mega Draw", LotteryID: 1, Sequence: 1},
		{Label: "X", LotteryID: 999, Sequence: 100000},
	}

	for _, want := range facts {
		line := "Ticket Id : " + want.TicketID()

		got, err := ParseTicketLog([]string{line}, MarkerTicketID)
		if err != nil {
			t.Fatalf("round trip parse failed for %q: %v", line, err)
		}

		if got.TicketID() != want.TicketID() {
			t.Errorf("round trip mismatch, want: %q, got: %q", want.TicketID(), got.TicketID())
		}
	}
}

func FuzzParseTicketLine(f *testing.F) {
	f.Add(" : MyLotto #7-42")
	f.Add(": Mega Draw #12-3")
	f.Add(" MyLotto 7-42")
	f.Add(" : #-")
	f.Add(" : A ##1--2")

	f.Fuzz(func(t *testing.T, s string) {
		fact, ok := ParseTicketLine(s)
		if !ok {
			return
		}

		if fact.Label != strings.TrimSpace(fact.Label) || fact.Label == "" {
			t.Errorf("parsed label not trimmed or empty: %q", fact.Label)
		}

		if fact.LotteryID < 0 || fact.Sequence < 0 {
			t.Errorf("negative identifiers parsed from %q: %+v", s, fact)
		}

		// Whatever parses must re-render into something that parses to the
		// same fact.
		again, ok := ParseTicketLine(" : " + fact.TicketID())
		if !ok {
			t.Fatalf("rendered id %q failed to parse", fact.TicketID())
		}

		if *again != *fact {
			t.Errorf("round trip mismatch, want: %+v, got: %+v", fact, again)
		}
	})
}
