package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"golang.org/x/exp/slog"
)

// OwnershipOracle asks the asset index whether a public key currently holds
// a named NFT. Best effort and fail-closed: any transport or decode failure
// reads as "does not own it".
type OwnershipOracle struct {
	rpcURL string
	client *http.Client
	log    *slog.Logger
}

func NewOwnershipOracle(rpcURL string, client *http.Client, log *slog.Logger) *OwnershipOracle {
	if client == nil {
		client = http.DefaultClient
	}

	return &OwnershipOracle{
		rpcURL: rpcURL,
		client: client,
		log:    log,
	}
}

type assetsByOwnerRequest struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      string                `json:"id"`
	Method  string                `json:"method"`
	Params  assetsByOwnerParams   `json:"params"`
}

type assetsByOwnerParams struct {
	OwnerAddress string `json:"ownerAddress"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
}

type assetsByOwnerResponse struct {
	Result struct {
		Items []struct {
			Content struct {
				Metadata struct {
					Name string `json:"name"`
				} `json:"metadata"`
			} `json:"content"`
		} `json:"items"`
	} `json:"result"`
}

func (o *OwnershipOracle) OwnsAsset(ctx context.Context, ownerPublicKey, assetName string) bool {
	const op = "chain.ownership.OwnsAsset"

	log := o.log.With(slog.String("op", op), slog.String("owner", ownerPublicKey))

	body, err := json.Marshal(assetsByOwnerRequest{
		JSONRPC: "2.0",
		ID:      "winisol",
		Method:  "getAssetsByOwner",
		Params: assetsByOwnerParams{
			OwnerAddress: ownerPublicKey,
			Page:         1,
			Limit:        1000,
		},
	})
	if err != nil {
		log.Error("failed to marshal asset index request", sl.Err(err))

		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.rpcURL, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to build asset index request", sl.Err(err))

		return false
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := o.client.Do(req)
	if err != nil {
		log.Error("asset index request failed", sl.Err(err))

		return false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Error("asset index returned non-200", sl.Int64("status", int64(res.StatusCode)))

		return false
	}

	var parsed assetsByOwnerResponse

	if err = json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		log.Error("failed to decode asset index response", sl.Err(err))

		return false
	}

	for _, item := range parsed.Result.Items {
		if item.Content.Metadata.Name == assetName {
			return true
		}
	}

	return false
}
