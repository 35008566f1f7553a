package chain

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/exp/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assetIndexServer(t *testing.T, names []string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req assetsByOwnerRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		if req.Method != "getAssetsByOwner" {
			t.Errorf("unexpected method: %s", req.Method)
		}

		items := make([]map[string]interface{}, 0, len(names))
		for _, name := range names {
			items = append(items, map[string]interface{}{
				"content": map[string]interface{}{
					"metadata": map[string]interface{}{"name": name},
				},
			})
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"items": items},
		})
	}))
}

func TestOwnsAsset(t *testing.T) {
	cases := []struct {
		name   string
		assets []string
		lookup string
		want   bool
	}{
		{
			name:   "Owned",
			assets: []string{"MyLotto #7-41", "MyLotto #7-42"},
			lookup: "MyLotto #7-42",
			want:   true,
		},
		{
			name:   "NotOwned",
			assets: []string{"MyLotto #7-41"},
			lookup: "MyLotto #7-42",
			want:   false,
		},
		{
			name:   "NoAssets",
			assets: nil,
			lookup: "MyLotto #7-42",
			want:   false,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			srv := assetIndexServer(t, tc.assets)
			defer srv.Close()

			oracle := NewOwnershipOracle(srv.URL, srv.Client(), discardLogger())

			got := oracle.OwnsAsset(context.Background(), testSigner, tc.lookup)
			if got != tc.want {
				t.Errorf("unexpected verdict, want: %v, got: %v", tc.want, got)
			}
		})
	}
}

// Loss of the asset index must read as "not owned", never as an error.
func TestOwnsAssetFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	oracle := NewOwnershipOracle(srv.URL, srv.Client(), discardLogger())

	if oracle.OwnsAsset(context.Background(), testSigner, "MyLotto #7-42") {
		t.Error("expected fail-closed verdict on upstream failure")
	}

	srv.Close()

	if oracle.OwnsAsset(context.Background(), testSigner, "MyLotto #7-42") {
		t.Error("expected fail-closed verdict on transport failure")
	}
}
