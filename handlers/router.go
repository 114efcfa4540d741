package handlers

import (
    "github.com/gorilla/mux"
    "github.com/typerush/typerush/typerush-backend/middleware"
)

func NewRouter(gateway *Gateway) *mux.Router {
    r := mux.NewRouter()

    // Public routes
    r.HandleFunc("/api/register", Register).Methods("POST")
    r.HandleFunc("/api/login", Login).Methods("POST")
    r.HandleFunc("/api/refresh/token", RefreshToken).Methods("POST")
    r.HandleFunc("/ws", gateway.WsHandler)
    r.HandleFunc("/ws/{token}", gateway.WsHandler)

    // Secured routes
    secured := r.PathPrefix("/api").Subrouter()
    secured.Use(middleware.JWTValidationMiddleware)
    secured.HandleFunc("/races", FetchUserRaces).Methods("GET")
    secured.HandleFunc("/race/{raceID}", FetchRaceResults).Methods("GET")
    secured.HandleFunc("/logout", Logout).Methods("POST")
    return r
}
