package matching

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(context.WithValue(req.Context(), "userID", "user-1"))
}

func newHandlerFixture() (*Handler, *fakeRepository) {
	repo := &fakeRepository{
		profiles: map[string]*Profile{
			"user-1": {ID: "user-1"},
			"cand-1": {ID: "cand-1", Age: 21},
		},
		candidates: []*Profile{
			{ID: "cand-1", Age: 21},
			{ID: "cand-2", Age: 18},
		},
	}
	svc := newTestService(repo, &fakePreferenceStore{prefs: map[string]*Preferences{}})
	return NewHandler(svc), repo
}

func TestDiscoverHandler(t *testing.T) {
	handler, _ := newHandlerFixture()

	rec := httptest.NewRecorder()
	handler.Discover(rec, authedRequest("GET", "/api/v1/matching/discover?variant=control", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var profiles []*Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &profiles); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 ranked profiles, got %d", len(profiles))
	}
	if profiles[0].ID != "cand-1" {
		t.Fatalf("expected cand-1 first, got %s", profiles[0].ID)
	}
}

func TestDiscoverHandlerUnknownUser(t *testing.T) {
	repo := &fakeRepository{profiles: map[string]*Profile{}}
	svc := newTestService(repo, &fakePreferenceStore{prefs: map[string]*Preferences{}})
	handler := NewHandler(svc)

	rec := httptest.NewRecorder()
	handler.Discover(rec, authedRequest("GET", "/api/v1/matching/discover", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSwipeHandler(t *testing.T) {
	handler, repo := newHandlerFixture()

	rec := httptest.NewRecorder()
	handler.Swipe(rec, authedRequest("POST", "/api/v1/matching/swipe", `{"target_id":"cand-1","action":"like"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.swipes) != 1 || !repo.swipes[0].Liked {
		t.Fatalf("swipe not recorded: %+v", repo.swipes)
	}

	t.Run("unknown action is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Swipe(rec, authedRequest("POST", "/api/v1/matching/swipe", `{"target_id":"cand-1","action":"superlike"}`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing target is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Swipe(rec, authedRequest("POST", "/api/v1/matching/swipe", `{"action":"pass"}`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestUpdatePreferencesHandler(t *testing.T) {
	handler, _ := newHandlerFixture()

	body := `{
		"age_min": 20, "age_max": 28, "max_distance": 25,
		"preferred_genders": ["Female"], "interests": ["music"],
		"activity_weight": 0.4, "diversity_weight": 0.1, "compatibility_weight": 0.5
	}`

	rec := httptest.NewRecorder()
	handler.UpdatePreferences(rec, authedRequest("PUT", "/api/v1/matching/preferences", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var prefs Preferences
	if err := json.Unmarshal(rec.Body.Bytes(), &prefs); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if prefs.AgeRange.Min != 20 || prefs.AgeRange.Max != 28 || prefs.MaxDistance != 25 {
		t.Fatalf("preferences mangled: %+v", prefs)
	}

	t.Run("inverted range is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.UpdatePreferences(rec, authedRequest("PUT", "/api/v1/matching/preferences",
			`{"age_min": 30, "age_max": 20, "activity_weight": 0.4, "diversity_weight": 0.1, "compatibility_weight": 0.5}`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGetVariantHandler(t *testing.T) {
	handler, _ := newHandlerFixture()

	rec := httptest.NewRecorder()
	handler.GetVariant(rec, authedRequest("GET", "/api/v1/matching/variant", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Variant string `json:"variant"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !Variant(body.Variant).Valid() {
		t.Fatalf("unknown variant %q", body.Variant)
	}
}
