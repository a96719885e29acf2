package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/middleware"
	"github.com/nijaru/yt-enrich/models"
)

type fakeVideoRepo struct {
	videos map[string]*models.Video
}

func (f *fakeVideoRepo) Save(ctx context.Context, v *models.Video) error {
	f.videos[v.ID+"/"+v.UserID] = v
	return nil
}

func (f *fakeVideoRepo) FindOwned(ctx context.Context, id, userID string) (*models.Video, error) {
	v, ok := f.videos[id+"/"+userID]
	if !ok {
		return nil, errors.NotFound("fake.FindOwned", nil, "Video not found")
	}
	return v, nil
}

func (f *fakeVideoRepo) UpdateTitle(ctx context.Context, id, userID, title string) error {
	return nil
}

func (f *fakeVideoRepo) UpdateDescription(ctx context.Context, id, userID, description string) error {
	return nil
}

type fakeJobRepo struct {
	jobs map[string]*models.Job
}

func (f *fakeJobRepo) Enqueue(ctx context.Context, job *models.Job) error {
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) Find(ctx context.Context, id string) (*models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, errors.NotFound("fake.Find", nil, "Job not found")
	}
	return job, nil
}

func (f *fakeJobRepo) Lease(ctx context.Context) (*models.Job, error) { return nil, nil }

func (f *fakeJobRepo) Release(ctx context.Context, id string, retryAfter time.Time, lastError string) error {
	return nil
}

func (f *fakeJobRepo) MarkCompleted(ctx context.Context, id string) error { return nil }

func (f *fakeJobRepo) MarkFailed(ctx context.Context, id string, lastError string) error {
	return nil
}

func (f *fakeJobRepo) ReclaimStale(ctx context.Context, leaseTimeout time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeJobRepo) StepOutput(ctx context.Context, jobID, step string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeJobRepo) SaveStepOutput(ctx context.Context, jobID, step, output string) error {
	return nil
}

type fakeTranscriptArchive struct {
	texts map[string]string
}

func (f *fakeTranscriptArchive) GetTranscript(ctx context.Context, videoID string) (string, string, error) {
	text, ok := f.texts[videoID]
	if !ok {
		return "", "", errors.NotFound("fake.GetTranscript", nil, "Transcript not found")
	}
	return "WEBVTT\n\n" + text, text, nil
}

func videoApp(videos *fakeVideoRepo, jobs *fakeJobRepo, transcripts TranscriptReader, user *models.User) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	if user != nil {
		app.Use(func(c *fiber.Ctx) error {
			middleware.SetUser(c, user)
			return c.Next()
		})
	}

	handler := NewVideoHandler(videos, jobs, transcripts)
	app.Post("/api/videos/workflows/title", handler.TriggerTitle)
	app.Post("/api/videos/workflows/description", handler.TriggerDescription)
	app.Get("/api/videos/:id", handler.GetVideo)
	app.Get("/api/videos/:id/transcript", handler.GetTranscript)
	app.Get("/api/jobs/:id", handler.GetJob)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var envelope Response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("decode response %q: %v", raw, err)
	}
	return resp.StatusCode, envelope
}

func testUser() *models.User {
	return &models.User{ID: "u1", ExternalID: "ext-1", Name: "Ada"}
}

func TestTriggerWorkflowEnqueues(t *testing.T) {
	jobs := &fakeJobRepo{jobs: map[string]*models.Job{}}
	app := videoApp(&fakeVideoRepo{videos: map[string]*models.Video{}}, jobs, nil, testUser())

	tests := []struct {
		path string
		kind models.JobKind
	}{
		{"/api/videos/workflows/title", models.JobKindTitle},
		{"/api/videos/workflows/description", models.JobKindDescription},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			status, envelope := doJSON(t, app, "POST", tt.path, `{"video_id":"v1"}`)
			if status != fiber.StatusAccepted {
				t.Fatalf("status = %d", status)
			}
			if !envelope.Success {
				t.Errorf("success = false: %+v", envelope)
			}
		})
	}

	if len(jobs.jobs) != 2 {
		t.Fatalf("enqueued = %d, want 2", len(jobs.jobs))
	}
	for _, job := range jobs.jobs {
		if job.VideoID != "v1" || job.UserID != "u1" {
			t.Errorf("unexpected job: %+v", job)
		}
		if job.Status != models.JobStatusPending {
			t.Errorf("status = %s", job.Status)
		}
	}
}

func TestTriggerWorkflowValidation(t *testing.T) {
	jobs := &fakeJobRepo{jobs: map[string]*models.Job{}}
	app := videoApp(&fakeVideoRepo{videos: map[string]*models.Video{}}, jobs, nil, testUser())

	status, envelope := doJSON(t, app, "POST", "/api/videos/workflows/title", `{}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d", status)
	}
	if envelope.Success {
		t.Error("success should be false")
	}
	if len(jobs.jobs) != 0 {
		t.Error("invalid request must not enqueue")
	}
}

func TestTriggerWorkflowRequiresAuth(t *testing.T) {
	jobs := &fakeJobRepo{jobs: map[string]*models.Job{}}
	app := videoApp(&fakeVideoRepo{videos: map[string]*models.Video{}}, jobs, nil, nil)

	status, _ := doJSON(t, app, "POST", "/api/videos/workflows/title", `{"video_id":"v1"}`)
	if status != fiber.StatusUnauthorized {
		t.Errorf("status = %d", status)
	}
}

func TestGetVideo(t *testing.T) {
	videos := &fakeVideoRepo{videos: map[string]*models.Video{
		"v1/u1": {ID: "v1", UserID: "u1", Title: "First upload", TrackStatus: "ready"},
	}}
	app := videoApp(videos, &fakeJobRepo{jobs: map[string]*models.Job{}}, nil, testUser())

	status, envelope := doJSON(t, app, "GET", "/api/videos/v1", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	data, _ := envelope.Data.(map[string]interface{})
	if data["title"] != "First upload" {
		t.Errorf("unexpected data: %+v", envelope.Data)
	}

	status, _ = doJSON(t, app, "GET", "/api/videos/other", "")
	if status != fiber.StatusNotFound {
		t.Errorf("status = %d", status)
	}
}

func TestGetJobScopedToOwner(t *testing.T) {
	jobs := &fakeJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", Kind: models.JobKindTitle, VideoID: "v1", UserID: "u1", Status: models.JobStatusRunning},
		"j2": {ID: "j2", Kind: models.JobKindTitle, VideoID: "v2", UserID: "other", Status: models.JobStatusRunning},
	}}
	app := videoApp(&fakeVideoRepo{videos: map[string]*models.Video{}}, jobs, nil, testUser())

	status, envelope := doJSON(t, app, "GET", "/api/jobs/j1", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	data, _ := envelope.Data.(map[string]interface{})
	if data["status"] != "running" {
		t.Errorf("unexpected data: %+v", envelope.Data)
	}
	if data["done"] != false {
		t.Errorf("running job must not read as done: %+v", envelope.Data)
	}

	status, _ = doJSON(t, app, "GET", "/api/jobs/j2", "")
	if status != fiber.StatusNotFound {
		t.Errorf("another user's job must read as missing, status = %d", status)
	}
}

func TestGetJobReportsTerminalAsDone(t *testing.T) {
	jobs := &fakeJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", Kind: models.JobKindTitle, VideoID: "v1", UserID: "u1", Status: models.JobStatusCompleted},
		"j2": {ID: "j2", Kind: models.JobKindTitle, VideoID: "v1", UserID: "u1", Status: models.JobStatusFailed, LastError: "boom"},
	}}
	app := videoApp(&fakeVideoRepo{videos: map[string]*models.Video{}}, jobs, nil, testUser())

	for _, id := range []string{"j1", "j2"} {
		status, envelope := doJSON(t, app, "GET", "/api/jobs/"+id, "")
		if status != fiber.StatusOK {
			t.Fatalf("status = %d", status)
		}
		data, _ := envelope.Data.(map[string]interface{})
		if data["done"] != true {
			t.Errorf("job %s: terminal status must read as done: %+v", id, envelope.Data)
		}
	}
}

func TestGetTranscript(t *testing.T) {
	videos := &fakeVideoRepo{videos: map[string]*models.Video{
		"v1/u1": {ID: "v1", UserID: "u1", TrackStatus: "ready"},
	}}
	archive := &fakeTranscriptArchive{texts: map[string]string{"v1": "hello world"}}
	app := videoApp(videos, &fakeJobRepo{jobs: map[string]*models.Job{}}, archive, testUser())

	status, envelope := doJSON(t, app, "GET", "/api/videos/v1/transcript", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	data, _ := envelope.Data.(map[string]interface{})
	if data["text"] != "hello world" {
		t.Errorf("unexpected data: %+v", envelope.Data)
	}

	// Another user's video reads as missing before the archive is consulted.
	status, _ = doJSON(t, app, "GET", "/api/videos/other/transcript", "")
	if status != fiber.StatusNotFound {
		t.Errorf("unowned video status = %d", status)
	}
}

func TestGetTranscriptArchiveDisabled(t *testing.T) {
	videos := &fakeVideoRepo{videos: map[string]*models.Video{
		"v1/u1": {ID: "v1", UserID: "u1", TrackStatus: "ready"},
	}}
	app := videoApp(videos, &fakeJobRepo{jobs: map[string]*models.Job{}}, nil, testUser())

	status, _ := doJSON(t, app, "GET", "/api/videos/v1/transcript", "")
	if status != fiber.StatusNotFound {
		t.Errorf("status = %d", status)
	}
}
