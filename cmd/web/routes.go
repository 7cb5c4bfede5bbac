package main

import (
	"fmt"
	"net/http"
)

func (app *application) routes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	var (
		shared = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
				commonContext(app.timeout(next)))))
		}
		noAuth = func(next http.Handler) http.Handler {
			return app.recoverPanic(shared(next))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				app.webAuthnHandler.AuthenticateMiddleware(shared(next)))))
		}
		mustSession = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticate(next))
		}
		api = func(next http.Handler) http.Handler {
			return app.cors(session(app.mustAuthenticateAPI(next)))
		}
	)

	mux.Handle("GET /profile", mustSession(http.HandlerFunc(app.profileGET)))
	mux.Handle("POST /profile", mustSession(http.HandlerFunc(app.profilePOST)))
	mux.Handle("GET /profile/export-data", mustSession(http.HandlerFunc(app.exportUserDataGET)))
	mux.Handle("POST /profile/delete-user", mustSession(http.HandlerFunc(app.deleteUserPOST)))

	mux.Handle("POST /workouts", mustSession(http.HandlerFunc(app.workoutsPOST)))
	mux.Handle("POST /diet", mustSession(http.HandlerFunc(app.dietPOST)))
	mux.Handle("POST /wearables", mustSession(http.HandlerFunc(app.wearablesPOST)))

	mux.Handle("GET /schedule", mustSession(http.HandlerFunc(app.scheduleGET)))
	mux.Handle("POST /schedule/generate", mustSession(http.HandlerFunc(app.scheduleGeneratePOST)))
	mux.Handle("POST /schedule/adjust", mustSession(http.HandlerFunc(app.scheduleAdjustPOST)))
	mux.Handle("POST /schedule/{id}/complete", mustSession(http.HandlerFunc(app.scheduleCompletePOST)))

	mux.Handle("GET /recommendations", mustSession(http.HandlerFunc(app.recommendationsGET)))

	mux.Handle("GET /community", mustSession(http.HandlerFunc(app.communityGET)))
	mux.Handle("POST /challenges", mustSession(http.HandlerFunc(app.challengesPOST)))
	mux.Handle("POST /challenges/{id}/join", mustSession(http.HandlerFunc(app.challengeJoinPOST)))

	mux.Handle("GET /api/v1/schedule", api(http.HandlerFunc(app.apiScheduleGET)))
	mux.Handle("GET /api/v1/recommendations", api(http.HandlerFunc(app.apiRecommendationsGET)))
	mux.Handle("OPTIONS /api/v1/", app.cors(http.NotFoundHandler()))

	mux.Handle("POST /api/registration/start", session(http.HandlerFunc(app.beginRegistration)))
	mux.Handle("POST /api/registration/finish", session(http.HandlerFunc(app.finishRegistration)))
	mux.Handle("POST /api/login/start", session(http.HandlerFunc(app.beginLogin)))
	mux.Handle("POST /api/login/finish", session(http.HandlerFunc(app.finishLogin)))
	mux.Handle("POST /api/logout", session(http.HandlerFunc(app.logout)))
	mux.Handle("GET /api/healthy", session(http.HandlerFunc(app.healthy)))
	mux.Handle("POST /api/reports", noAuth(http.HandlerFunc(app.reports)))

	mux.Handle("GET /privacy", session(http.HandlerFunc(app.privacy)))

	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))

	fileServerHandler, err := app.fileServerHandler()
	if err != nil {
		return nil, fmt.Errorf("fileServerHandler: %w", err)
	}
	mux.Handle("/", fileServerHandler)

	return mux, nil
}
