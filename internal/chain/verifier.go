package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Verifier confirms that a reported transaction really happened, invoked
// the lottery program, and was signed by the claimed actor, then extracts
// the ticket identifier from the program logs. It never writes anything.
type Verifier struct {
	reader    Reader
	programID solana.PublicKey
}

func NewVerifier(reader Reader, programID string) (*Verifier, error) {
	const op = "chain.verifier.NewVerifier"

	pk, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Verifier{reader: reader, programID: pk}, nil
}

// Verify runs the full check chain for a user-submitted transaction
// (ticket purchase, prize claim). expectedLotteryID of zero skips the
// lottery id comparison.
func (v *Verifier) Verify(ctx context.Context, signature, instruction, claimedPublicKey string, expectedLotteryID int64) (*TicketFact, error) {
	info, err := v.fetch(ctx, signature)
	if err != nil {
		return nil, err
	}

	// The chain already validated the transaction signature to include the
	// transaction; matching the fee payer against the claimed key is the
	// whole authenticity check.
	if len(info.AccountKeys) == 0 || info.AccountKeys[0].String() != claimedPublicKey {
		return nil, verifyErr(KindSignerMismatch, "signature does not match public key")
	}

	if !v.invokedProgram(info) || !loggedInstruction(info.LogMessages, instruction) {
		return nil, verifyErr(KindWrongInstruction, "transaction is not for "+instruction)
	}

	fact, err := ParseTicketLog(info.LogMessages, MarkerTicketID)
	if err != nil {
		return nil, err
	}

	if expectedLotteryID != 0 && fact.LotteryID != expectedLotteryID {
		return nil, verifyErr(KindLotteryMismatch, "lottery id does not match")
	}

	return fact, nil
}

// VerifyWinnerReveal checks a reveal transaction: the lottery program must
// appear among the invoked programs and the logs must name the winning
// ticket. The reveal is submitted by the authenticated operator, so there
// is no signer comparison here.
func (v *Verifier) VerifyWinnerReveal(ctx context.Context, signature string) (*TicketFact, error) {
	info, err := v.fetch(ctx, signature)
	if err != nil {
		return nil, err
	}

	if !v.invokedProgram(info) {
		return nil, verifyErr(KindWrongInstruction, "instruction not found in transaction")
	}

	return ParseTicketLog(info.LogMessages, MarkerWinnerTicket)
}

func (v *Verifier) fetch(ctx context.Context, signature string) (*TransactionInfo, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, verifyErr(KindNotFound, "invalid transaction signature")
	}

	info, err := v.reader.GetTransaction(ctx, sig)
	if err != nil {
		return nil, &VerifyError{Kind: KindUpstream, Message: "failed to fetch transaction", Err: err}
	}

	if info == nil {
		return nil, verifyErr(KindNotFound, "invalid transaction signature")
	}

	return info, nil
}

func (v *Verifier) invokedProgram(info *TransactionInfo) bool {
	for _, programID := range info.ProgramIDs {
		if programID.Equals(v.programID) {
			return true
		}
	}

	return false
}

func loggedInstruction(logs []string, instruction string) bool {
	marker := "Instruction: " + instruction

	for _, line := range logs {
		if strings.Contains(line, marker) {
			return true
		}
	}

	return false
}
