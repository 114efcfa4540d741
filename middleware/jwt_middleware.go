package middleware

import (
    "context"
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v4"

    "github.com/typerush/typerush/typerush-backend/common"
    "github.com/typerush/typerush/typerush-backend/config"
    "github.com/typerush/typerush/typerush-backend/models"
    "github.com/typerush/typerush/typerush-backend/responses"
    "github.com/typerush/typerush/typerush-backend/utils"
)

// JWTValidationMiddleware rejects requests without a valid bearer token and
// stores the parsed claims on the request context under common.AuthInfoKey.
func JWTValidationMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        tokenStr := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

        keyFunc := func(token *jwt.Token) (interface{}, error) {
            if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
                return nil, jwt.ErrInvalidKey
            }
            return config.SigningKey(), nil
        }

        token, err := jwt.ParseWithClaims(tokenStr, &models.CustomClaims{}, keyFunc)
        if err != nil || !token.Valid {
            utils.HandleError(w, responses.UnauthorizedError{Msg: "Your token is invalid or expired. Please log in again."})
            return
        }

        authInfo, ok := token.Claims.(*models.CustomClaims)
        if !ok {
            utils.HandleError(w, responses.InternalServerError{Msg: "Error processing request."})
            return
        }

        ctx := context.WithValue(r.Context(), common.AuthInfoKey, authInfo)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}
