package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	testSigner    = "Vote111111111111111111111111111111111111111"
)

var testSignature = solana.SignatureFromBytes(make([]byte, 64)).String()

type fakeReader struct {
	info *TransactionInfo
	err  error
}

func (f *fakeReader) GetTransaction(_ context.Context, _ solana.Signature) (*TransactionInfo, error) {
	return f.info, f.err
}

func confirmedPurchase(t *testing.T) *TransactionInfo {
	t.Helper()

	program := mustPubkey(t, testProgramID)
	signer := mustPubkey(t, testSigner)

	return &TransactionInfo{
		AccountKeys: []solana.PublicKey{signer, program},
		ProgramIDs:  []solana.PublicKey{program},
		LogMessages: []string{
			"Program log: Instruction: BuyTickets",
			"Program log: Ticket Id : MyLotto #7-42",
		},
	}
}

func mustPubkey(t *testing.T, s string) solana.PublicKey {
	t.Helper()

	pk, err := solana.PublicKeyFromBase58(s)
	require.NoError(t, err)

	return pk
}

func TestVerify(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(info *TransactionInfo)
		readerErr error
		claimed   string
		lotteryID int64
		wantKind  VerifyErrorKind
		wantID    string
	}{
		{
			name:      "Success",
			claimed:   testSigner,
			lotteryID: 7,
			wantID:    "MyLotto #7-42",
		},
		{
			name:      "NoLotteryIDCheck",
			claimed:   testSigner,
			lotteryID: 0,
			wantID:    "MyLotto #7-42",
		},
		{
			name:      "TransactionMissing",
			mutate:    func(info *TransactionInfo) { *info = TransactionInfo{} },
			claimed:   testSigner,
			wantKind:  KindNotFound,
			lotteryID: 7,
		},
		{
			name:      "SignerMismatch",
			claimed:   testProgramID,
			lotteryID: 7,
			wantKind:  KindSignerMismatch,
		},
		{
			name: "ProgramNotInvoked",
			mutate: func(info *TransactionInfo) {
				info.ProgramIDs = nil
			},
			claimed:   testSigner,
			lotteryID: 7,
			wantKind:  KindWrongInstruction,
		},
		{
			name: "InstructionNotLogged",
			mutate: func(info *TransactionInfo) {
				info.LogMessages = []string{"Program log: Ticket Id : MyLotto #7-42"}
			},
			claimed:   testSigner,
			lotteryID: 7,
			wantKind:  KindWrongInstruction,
		},
		{
			name: "MalformedTicketLog",
			mutate: func(info *TransactionInfo) {
				info.LogMessages = []string{
					"Program log: Instruction: BuyTickets",
					"Program log: Ticket Id : MyLotto 7-42",
				}
			},
			claimed:   testSigner,
			lotteryID: 7,
			wantKind:  KindMalformedLog,
		},
		{
			name:      "LotteryMismatch",
			claimed:   testSigner,
			lotteryID: 8,
			wantKind:  KindLotteryMismatch,
		},
		{
			name:      "UpstreamFailure",
			readerErr: errors.New("rpc down"),
			claimed:   testSigner,
			lotteryID: 7,
			wantKind:  KindUpstream,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			info := confirmedPurchase(t)
			if tc.mutate != nil {
				tc.mutate(info)
			}

			reader := &fakeReader{info: info, err: tc.readerErr}
			if tc.name == "TransactionMissing" {
				reader.info = nil
			}

			verifier, err := NewVerifier(reader, testProgramID)
			require.NoError(t, err)

			fact, err := verifier.Verify(context.Background(), testSignature, "BuyTickets", tc.claimed, tc.lotteryID)

			if tc.wantKind != "" {
				require.Error(t, err)

				var verr *VerifyError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tc.wantKind, verr.Kind)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantID, fact.TicketID())
		})
	}
}

func TestVerifyWinnerReveal(t *testing.T) {
	program := mustPubkey(t, testProgramID)

	reader := &fakeReader{info: &TransactionInfo{
		AccountKeys: []solana.PublicKey{mustPubkey(t, testSigner), program},
		ProgramIDs:  []solana.PublicKey{program},
		LogMessages: []string{"Program log: Winner Ticket : MyLotto #7-42"},
	}}

	verifier, err := NewVerifier(reader, testProgramID)
	require.NoError(t, err)

	fact, err := verifier.VerifyWinnerReveal(context.Background(), testSignature)
	require.NoError(t, err)
	assert.Equal(t, "MyLotto #7-42", fact.TicketID())

	reader.info.ProgramIDs = nil

	_, err = verifier.VerifyWinnerReveal(context.Background(), testSignature)

	var verr *VerifyError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindWrongInstruction, verr.Kind)
}

func TestVerifyRejectsGarbageSignature(t *testing.T) {
	verifier, err := NewVerifier(&fakeReader{}, testProgramID)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "not-base58!!", "BuyTickets", testSigner, 0)

	var verr *VerifyError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindNotFound, verr.Kind)
}
