package handlers

import (
    "context"
    "log"
    "net/http"

    "github.com/gorilla/mux"
    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/bson/primitive"
    "go.mongodb.org/mongo-driver/mongo"

    "github.com/lib/pq"
    "github.com/typerush/typerush/typerush-backend/common"
    "github.com/typerush/typerush/typerush-backend/models"
    "github.com/typerush/typerush/typerush-backend/repository"
    "github.com/typerush/typerush/typerush-backend/responses"
    "github.com/typerush/typerush/typerush-backend/utils"
)

func FetchUserRaces(w http.ResponseWriter, r *http.Request) {
    authInfo, ok := r.Context().Value(common.AuthInfoKey).(*models.CustomClaims)
    if !ok {
        utils.HandleError(w, responses.InternalServerError{Msg: "Error processing request."})
        return
    }

    userID := authInfo.ID
    db := repository.PostgreSQLDB

    var races []models.RaceRecord
    query := "SELECT id, room_id, started_at, finished_at, user_ids FROM races WHERE $1 = ANY(user_ids)"
    rows, err := db.Query(query, userID)
    if err != nil {
        log.Printf("Error fetching races: %v", err)
        utils.HandleError(w, responses.InternalServerError{Msg: "Failed to fetch user races."})
        return
    }
    defer rows.Close()

    for rows.Next() {
        var record models.RaceRecord
        err := rows.Scan(&record.ID, &record.RoomID, &record.StartedAt, &record.FinishedAt, pq.Array(&record.UserIDs))
        if err != nil {
            utils.HandleError(w, responses.InternalServerError{Msg: "Error processing user races."})
            return
        }
        races = append(races, record)
    }

    if err = rows.Err(); err != nil {
        log.Printf("Error iterating race rows: %v", err)
        utils.HandleError(w, responses.InternalServerError{Msg: "Error processing user races."})
        return
    }

    if len(races) == 0 {
        utils.HandleSuccess(w, models.SuccessResponse([]models.RaceRecord{}))
        return
    }

    utils.HandleSuccess(w, models.SuccessResponse(races))
}

func FetchRaceResults(w http.ResponseWriter, r *http.Request) {
    authInfo, ok := r.Context().Value(common.AuthInfoKey).(*models.CustomClaims)
    if !ok {
        utils.HandleError(w, responses.InternalServerError{Msg: "Error processing request."})
        return
    }

    userID := authInfo.ID

    vars := mux.Vars(r)
    raceIDStr := vars["raceID"]
    if raceIDStr == "" {
        utils.HandleError(w, responses.BadRequestError{Msg: "raceID is required."})
        return
    }

    raceID, err := primitive.ObjectIDFromHex(raceIDStr)
    if err != nil {
        log.Printf("Error converting raceID to ObjectID: %v", err)
        utils.HandleError(w, responses.BadRequestError{Msg: "Invalid raceID format."})
        return
    }

    collection := repository.MongoDBClient.Database("typerush").Collection("race_sessions")
    var session models.RaceSession
    err = collection.FindOne(context.Background(), bson.M{"_id": raceID}).Decode(&session)
    if err != nil {
        if err == mongo.ErrNoDocuments {
            utils.HandleError(w, responses.NotFoundError{Msg: "Race not found."})
            return
        }
        log.Printf("Error fetching race session: %v", err)
        utils.HandleError(w, responses.InternalServerError{Msg: "Error fetching race session."})
        return
    }

    // Only participants may read a race's results.
    userInRace := false
    for _, result := range session.Results {
        if result.PlayerID == userID {
            userInRace = true
            break
        }
    }
    if !userInRace {
        utils.HandleError(w, responses.BadRequestError{Msg: "User is not part of the race."})
        return
    }

    utils.HandleSuccess(w, models.SuccessResponse(session))
}
