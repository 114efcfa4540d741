package handlers

import (
    "crypto/rand"
    "database/sql"
    "encoding/base64"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v4"
    "golang.org/x/crypto/bcrypt"

    "github.com/typerush/typerush/typerush-backend/config"
    "github.com/typerush/typerush/typerush-backend/models"
    "github.com/typerush/typerush/typerush-backend/repository"
    "github.com/typerush/typerush/typerush-backend/responses"
    "github.com/typerush/typerush/typerush-backend/utils"
)

const (
    accessTokenTTL  = 72 * time.Hour
    refreshTokenTTL = 180 * 24 * time.Hour
)

func Register(w http.ResponseWriter, r *http.Request) {
    db := repository.PostgreSQLDB

    var user models.User
    if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
        utils.HandleError(w, responses.BadRequestError{Msg: "Invalid request."})
        return
    }

    if len(user.Username) < 3 || len(user.Username) > 50 {
        utils.HandleError(w, responses.BadRequestError{Msg: "Username must be between 3 and 50 characters."})
        return
    }
    if len(user.Password) < 3 || len(user.Password) > 50 {
        utils.HandleError(w, responses.BadRequestError{Msg: "Password must be between 3 and 50 characters."})
        return
    }

    hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
    if err != nil {
        utils.HandleError(w, responses.InternalServerError{Msg: "Failed to hash password."})
        return
    }

    _, err = db.Exec("INSERT INTO users (username, password) VALUES ($1, $2)", user.Username, string(hashedPassword))
    if err != nil {
        log.Println(err)
        utils.HandleError(w, responses.InternalServerError{Msg: "Failed to create user."})
        return
    }

    utils.HandleSuccess(w, models.SuccessResponse(map[string]string{"message": "User created successfully."}))
}

func Login(w http.ResponseWriter, r *http.Request) {
    db := repository.PostgreSQLDB

    var loginInfo models.User
    if err := json.NewDecoder(r.Body).Decode(&loginInfo); err != nil {
        utils.HandleError(w, responses.BadRequestError{Msg: "Invalid request."})
        return
    }

    var user models.User
    err := db.QueryRow("SELECT id, username, password FROM users WHERE username = $1", loginInfo.Username).
        Scan(&user.ID, &user.Username, &user.Password)
    if err != nil {
        if err == sql.ErrNoRows {
            utils.HandleError(w, responses.UnauthorizedError{Msg: "Invalid username or password."})
            return
        }
        log.Println(err)
        utils.HandleError(w, responses.InternalServerError{Msg: "An error occurred while processing your request."})
        return
    }

    if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(loginInfo.Password)); err != nil {
        utils.HandleError(w, responses.UnauthorizedError{Msg: "Invalid username or password."})
        return
    }

    tokenString, err := issueAccessToken(user.ID, user.Username)
    if err != nil {
        utils.HandleError(w, responses.InternalServerError{Msg: "Failed to generate token."})
        return
    }

    refreshToken, err := generateRefreshToken()
    if err != nil {
        utils.HandleError(w, responses.InternalServerError{Msg: "Failed to generate refresh token."})
        return
    }

    expiresAt := time.Now().Add(refreshTokenTTL)
    _, err = db.Exec("INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)",
        user.ID, refreshToken, expiresAt)
    if err != nil {
        log.Println(err)
        utils.HandleError(w, responses.InternalServerError{Msg: "Failed to store refresh token."})
        return
    }

    http.SetCookie(w, &http.Cookie{
        Name:     "refresh_token",
        Value:    refreshToken,
        Path:     "/",
        Expires:  expiresAt,
        HttpOnly: true,
        Secure:   true,
        SameSite: http.SameSiteStrictMode,
    })
    utils.HandleSuccess(w, models.SuccessResponse(map[string]string{"access_token": tokenString}))
}

func Logout(w http.ResponseWriter, r *http.Request) {
    db := repository.PostgreSQLDB

    if refreshTokenCookie, err := r.Cookie("refresh_token"); err == nil {
        if _, dbErr := db.Exec("DELETE FROM refresh_tokens WHERE token = $1", refreshTokenCookie.Value); dbErr != nil {
            log.Println(dbErr)
            utils.HandleError(w, responses.InternalServerError{Msg: "Failed to delete refresh token."})
            return
        }
    }

    // Expire the cookie to force the client to delete it
    http.SetCookie(w, &http.Cookie{
        Name:     "refresh_token",
        Value:    "",
        Path:     "/",
        Expires:  time.Now().AddDate(0, 0, -1),
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   true,
    })

    utils.HandleSuccess(w, models.SuccessResponse(map[string]string{"message": "Logged out successfully."}))
}

func RefreshToken(w http.ResponseWriter, r *http.Request) {
    refreshTokenCookie, err := r.Cookie("refresh_token")
    if err != nil {
        utils.HandleError(w, responses.UnauthorizedError{Msg: "No refresh token found."})
        return
    }
    db := repository.PostgreSQLDB

    var userID uint64
    var expiresAt time.Time
    err = db.QueryRow("SELECT user_id, expires_at FROM refresh_tokens WHERE token = $1", refreshTokenCookie.Value).
        Scan(&userID, &expiresAt)
    if err != nil {
        log.Println(err)
        utils.HandleError(w, responses.UnauthorizedError{Msg: "Invalid refresh token."})
        return
    }

    if time.Now().After(expiresAt) {
        utils.HandleError(w, responses.UnauthorizedError{Msg: "Refresh token has expired."})
        return
    }

    var username string
    err = db.QueryRow("SELECT username FROM users WHERE id = $1", userID).Scan(&username)
    if err != nil {
        log.Println(err)
        utils.HandleError(w, responses.InternalServerError{Msg: "An error occurred while processing your request."})
        return
    }

    tokenString, err := issueAccessToken(userID, username)
    if err != nil {
        utils.HandleError(w, responses.InternalServerError{Msg: "Failed to generate token."})
        return
    }

    utils.HandleSuccess(w, models.SuccessResponse(map[string]string{"access_token": tokenString}))
}

func issueAccessToken(userID uint64, username string) (string, error) {
    claims := models.CustomClaims{
        RegisteredClaims: jwt.RegisteredClaims{
            ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
        },
        ID:       strconv.FormatUint(userID, 10),
        Username: username,
    }

    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return token.SignedString(config.SigningKey())
}

func generateRefreshToken() (string, error) {
    tokenBytes := make([]byte, 64)
    if _, err := rand.Read(tokenBytes); err != nil {
        return "", err
    }
    return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

// ValidateToken parses and verifies an access token, used by the WebSocket
// gateway to tag connections with an identity.
func ValidateToken(tokenStr string) (*models.CustomClaims, error) {
    claims := &models.CustomClaims{}
    token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
        if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
        }
        return config.SigningKey(), nil
    })
    if err != nil {
        return nil, err
    }
    if !token.Valid {
        return nil, fmt.Errorf("invalid token")
    }

    return claims, nil
}
