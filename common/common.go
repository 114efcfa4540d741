package common

type contextKey string

// AuthInfoKey is the request-context key holding the validated JWT claims.
const AuthInfoKey contextKey = "authInfo"
