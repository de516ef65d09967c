// Package routes wires admin API routes onto a *mux.Router, adapted
// from walletserver/routes.
package routes

import (
	"github.com/gorilla/mux"

	"synnergy-aaa/httpadmin/controllers"
	"synnergy-aaa/httpadmin/middleware"
)

// Register mounts the state-engine admin/demo endpoints onto r.
func Register(r *mux.Router, sc *controllers.StateController) {
	r.Use(middleware.Logger)
	r.HandleFunc("/api/state/stats", sc.Stats).Methods("GET")
	r.HandleFunc("/api/state/demo/freeze", sc.DemoFreeze).Methods("POST")
	r.HandleFunc("/api/state/demo/thaw", sc.DemoThaw).Methods("POST")
	r.HandleFunc("/api/state/demo/discard", sc.DemoDiscard).Methods("POST")
	r.HandleFunc("/api/state/{id:[0-9]+}", sc.Lookup).Methods("GET")
}
