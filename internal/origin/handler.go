package origin

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ernado/blockload/internal/cookie"
)

// NewHandler serves files of store with Range support on /blocks/{name}.
//
// If verifier is not nil, requests must carry a valid signed cookie.
func NewHandler(store *Store, verifier *cookie.Verifier) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/blocks/{name...}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := r.PathValue("name")
		if verifier != nil {
			if _, err := verifier.FromHeader(r.Header.Get("Cookie")); err != nil {
				store.authRejected.Add(ctx, 1)
				zctx.From(ctx).Warn("Rejected request",
					zap.String("name", name),
					zap.Error(err),
				)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		block, err := store.Open(ctx, name)
		if err != nil {
			var nf *FileNotFoundErr
			if errors.As(err, &nf) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer func() { _ = block.Close() }()

		zctx.From(ctx).Debug("Serving block",
			zap.String("name", name),
			zap.String("range", r.Header.Get("Range")),
			zap.Int64("size", block.Info().Size()),
		)
		// Content is opaque, skip sniffing.
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeContent(w, r, block.Info().Name(), block.Info().ModTime(), block)
	})
	return mux
}
