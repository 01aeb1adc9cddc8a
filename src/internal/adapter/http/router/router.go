package router

import "net/http"

type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

func New(
	ledgerController RouteRegistrar,
	marketController RouteRegistrar,
	authMiddleware func(http.Handler) http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()
	registerSwaggerRoutes(mux)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if ledgerController != nil {
		ledgerController.RegisterRoutes(mux, authMiddleware)
	}
	if marketController != nil {
		marketController.RegisterRoutes(mux, authMiddleware)
	}

	return mux
}
