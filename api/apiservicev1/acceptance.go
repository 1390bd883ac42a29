package apiservicev1

import (
	"net/http"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
)

type JSON = map[string]interface{}

// Acceptance runs the api contract against a database hosting an empty,
// paginated (default limit 10) service called "users".
func Acceptance(a *biff.A, apiRequest func(method, path string) *apitest.Request) {

	a.Alternative("List services", func(a *biff.A) {
		resp := apiRequest("GET", "/services").Do()
		Save(resp, "List services", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		biff.AssertEqualJson(resp.BodyJson(), []JSON{
			{"name": "users", "total": 0},
		})
	})

	a.Alternative("Create service", func(a *biff.A) {
		resp := apiRequest("POST", "/services").
			WithBodyJson(JSON{"name": "messages"}).Do()
		Save(resp, "Create service", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusCreated)
		biff.AssertEqualJson(resp.BodyJson(), JSON{"name": "messages", "total": 0})

		a.Alternative("Create it again", func(a *biff.A) {
			resp := apiRequest("POST", "/services").
				WithBodyJson(JSON{"name": "messages"}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusConflict)
		})

		a.Alternative("Drop service", func(a *biff.A) {
			resp := apiRequest("POST", "/services/messages:dropService").Do()
			Save(resp, "Drop service", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)

			resp = apiRequest("GET", "/services/messages").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
		})
	})

	a.Alternative("Get missing service", func(a *biff.A) {
		resp := apiRequest("GET", "/services/nope").Do()
		Save(resp, "Get service - not found", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
	})

	a.Alternative("Create record", func(a *biff.A) {
		fulanez := JSON{"id": "u1", "name": "Fulanez", "age": 30}
		resp := apiRequest("POST", "/services/users:create").
			WithBodyJson(JSON{"data": fulanez}).Do()
		Save(resp, "Create record", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusCreated)
		biff.AssertEqualJson(resp.BodyJson(), fulanez)

		a.Alternative("Get record", func(a *biff.A) {
			resp := apiRequest("POST", "/services/users:get").
				WithBodyJson(JSON{"id": "u1"}).Do()
			Save(resp, "Get record", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), fulanez)
		})

		a.Alternative("Get missing record", func(a *biff.A) {
			resp := apiRequest("POST", "/services/users:get").
				WithBodyJson(JSON{"id": "nope"}).Do()
			Save(resp, "Get record - not found", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
			biff.AssertEqualJson(resp.BodyJson(), JSON{
				"error": JSON{
					"message":     "No record found for id 'nope'",
					"description": "record not found",
				},
			})
		})

		a.Alternative("Find records", func(a *biff.A) {
			resp := apiRequest("POST", "/services/users:find").
				WithBodyJson(JSON{"query": JSON{"age": JSON{"$gte": 18}}}).Do()
			Save(resp, "Find records", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{
				"data":  []JSON{fulanez},
				"total": 1,
				"limit": 10,
				"skip":  0,
			})
		})

		a.Alternative("Find with invalid query", func(a *biff.A) {
			resp := apiRequest("POST", "/services/users:find").
				WithBodyJson(JSON{"query": JSON{"$bogus": 1}}).Do()
			Save(resp, "Find records - invalid query", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})

		a.Alternative("Patch record", func(a *biff.A) {
			resp := apiRequest("POST", "/services/users:patch").
				WithBodyJson(JSON{"id": "u1", "data": JSON{"age": 31}}).Do()
			Save(resp, "Patch record", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"id": "u1", "name": "Fulanez", "age": 31})
		})

		a.Alternative("Update record", func(a *biff.A) {
			resp := apiRequest("POST", "/services/users:update").
				WithBodyJson(JSON{"id": "u1", "data": JSON{"name": "Menganez"}}).Do()
			Save(resp, "Update record", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"id": "u1", "name": "Menganez"})
		})

		a.Alternative("Remove record", func(a *biff.A) {
			resp := apiRequest("POST", "/services/users:remove").
				WithBodyJson(JSON{"id": "u1"}).Do()
			Save(resp, "Remove record", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), fulanez)

			resp = apiRequest("POST", "/services/users:get").
				WithBodyJson(JSON{"id": "u1"}).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
		})

		a.Alternative("Patch without id", func(a *biff.A) {
			resp := apiRequest("POST", "/services/users:patch").
				WithBodyJson(JSON{"data": JSON{"age": 31}}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})
	})
}
