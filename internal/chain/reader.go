package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionInfo is the slice of a confirmed transaction the verifier
// cares about: who signed it, which programs its instructions invoked, and
// what it logged.
type TransactionInfo struct {
	AccountKeys []solana.PublicKey
	ProgramIDs  []solana.PublicKey
	LogMessages []string
}

// Reader fetches finalized transactions. Returns (nil, nil) when the
// signature is unknown or not yet confirmed.
type Reader interface {
	GetTransaction(ctx context.Context, signature solana.Signature) (*TransactionInfo, error)
}

type RPCReader struct {
	client *rpc.Client
}

func NewRPCReader(rpcURL string) *RPCReader {
	return &RPCReader{client: rpc.New(rpcURL)}
}

func (r *RPCReader) GetTransaction(ctx context.Context, signature solana.Signature) (*TransactionInfo, error) {
	const op = "chain.reader.GetTransaction"

	maxVersion := uint64(0)

	out, err := r.client.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if out == nil || out.Transaction == nil {
		return nil, nil
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info := &TransactionInfo{
		AccountKeys: tx.Message.AccountKeys,
	}

	for _, ix := range tx.Message.Instructions {
		if int(ix.ProgramIDIndex) < len(tx.Message.AccountKeys) {
			info.ProgramIDs = append(info.ProgramIDs, tx.Message.AccountKeys[ix.ProgramIDIndex])
		}
	}

	if out.Meta != nil {
		info.LogMessages = out.Meta.LogMessages
	}

	return info, nil
}
