package handler

import (
	"net/http"
	"sync"

	"hotel/config"
	"hotel/di"
	"hotel/shared/logger"
	transport "hotel/transport/http"
)

// server is built on the first invocation and reused while the function
// instance stays warm, so pools and the route table are not rebuilt per call.
//
//nolint:gochecknoglobals
var server = sync.OnceValue(func() *transport.HTTP {
	logger.InitLogger()
	logger.SetLogLevel(config.Get())

	return di.InitializeService()
})

func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	server().ServeHTTP(w, r)
}
