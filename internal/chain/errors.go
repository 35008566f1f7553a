package chain

// VerifyErrorKind is the closed set of reasons transaction verification can
// fail. Handlers map these onto boundary failure categories.
type VerifyErrorKind string

const (
	KindNotFound         VerifyErrorKind = "not_found"
	KindSignerMismatch   VerifyErrorKind = "signer_mismatch"
	KindWrongInstruction VerifyErrorKind = "wrong_instruction"
	KindMalformedLog     VerifyErrorKind = "malformed_log"
	KindLotteryMismatch  VerifyErrorKind = "lottery_mismatch"
	KindUpstream         VerifyErrorKind = "upstream"
)

type VerifyError struct {
	Kind    VerifyErrorKind
	Message string
	Err     error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

func verifyErr(kind VerifyErrorKind, msg string) *VerifyError {
	return &VerifyError{Kind: kind, Message: msg}
}
