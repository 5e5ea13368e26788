package main

import (
	"net/http"
)

// requireUser gates next behind HTTP basic auth checked against the users
// table.
func requireUser(store *Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !store.TestUser(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="vidsearch"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
