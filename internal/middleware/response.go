package middleware

import (
	"net/http"

	"github.com/lulius2021/alarmbriefing-server-go/internal/httputil"
)

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}
