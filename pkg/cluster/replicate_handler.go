package cluster

import (
	"encoding/json"
	"net/http"

	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/replication"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// ReplicateHandler exposes spec.md §4.J's trigger_replication(src, dst)
// as an administrative HTTP endpoint, the same JSON response shape
// pkg/metrics's HealthHandler/ReadyHandler use: no CLI subcommand or
// automatic catch-up-on-join hook calls Driver.Trigger anywhere in this
// module otherwise, so this is Trigger's only caller outside its own
// test.
func ReplicateHandler(mgr *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		src := r.URL.Query().Get("src")
		dst := r.URL.Query().Get("dst")
		if src == "" || dst == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status": "error",
				"error":  "both src and dst query parameters are required",
			})
			return
		}

		args := replication.Args{
			Src: endpoint.Parse(src, "/"),
			Dst: endpoint.Parse(dst, "/"),
		}
		err := mgr.Replication.Trigger(args)
		if err != nil {
			w.WriteHeader(statusCodeFor(err))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status": "error",
				"error":  err.Error(),
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"src":    src,
			"dst":    dst,
		})
	}
}

func statusCodeFor(err error) int {
	switch xerror.KindOf(err) {
	case xerror.ClientError, xerror.MissingRequired, xerror.TypeMismatch, xerror.MissingType:
		return http.StatusBadRequest
	case xerror.NotFound:
		return http.StatusNotFound
	case xerror.AlreadyExists:
		return http.StatusConflict
	case xerror.ConcurrentModification, xerror.AlreadyLocked:
		return http.StatusConflict
	case xerror.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
