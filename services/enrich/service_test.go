package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/models"
	"github.com/nijaru/yt-enrich/transcript"
)

type fakeVideoRepo struct {
	videos  map[string]*models.Video
	updates []string
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
	v, ok := f.videos[id+"/"+userID]
	if !ok {
		return errors.NotFound("fake.UpdateTitle", nil, "Video not found")
	}
	v.Title = title
	f.updates = append(f.updates, "title="+title)
	return nil
}

func (f *fakeVideoRepo) UpdateDescription(ctx context.Context, id, userID, description string) error {
	v, ok := f.videos[id+"/"+userID]
	if !ok {
		return errors.NotFound("fake.UpdateDescription", nil, "Video not found")
	}
	v.Description = description
	f.updates = append(f.updates, "description="+description)
	return nil
}

type fakeFetcher struct {
	result *transcript.Result
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, playbackID, trackID string) (*transcript.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeGenerator struct {
	content string
	err     error
	gotSys  string
	gotUser string
}

func (f *fakeGenerator) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	f.gotSys = systemPrompt
	f.gotUser = userContent
	return f.content, f.err
}

type fakeArchive struct {
	saved map[string]string
	err   error
}

func (f *fakeArchive) SaveTranscript(ctx context.Context, videoID, raw, text string) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[videoID] = text
	return nil
}

func readyVideo() *models.Video {
	now := time.Now()
	return &models.Video{
		ID:          "v1",
		UserID:      "u1",
		PlaybackID:  "pb-1",
		TrackID:     "tr-1",
		TrackStatus: string(models.TrackStatusReady),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newTestService(repo *fakeVideoRepo, fetcher *fakeFetcher, gen *fakeGenerator, arc *fakeArchive) *Service {
	var archive Archiver
	if arc != nil {
		archive = arc
	}
	return NewService(repo, fetcher, gen, archive)
}

func TestGetVideoGate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.Video)
		wantKind errors.Kind
	}{
		{
			name:   "ready video passes",
			mutate: func(v *models.Video) {},
		},
		{
			name:     "missing playback id",
			mutate:   func(v *models.Video) { v.PlaybackID = "" },
			wantKind: errors.KindNotReady,
		},
		{
			name:     "missing track id",
			mutate:   func(v *models.Video) { v.TrackID = "" },
			wantKind: errors.KindNotReady,
		},
		{
			name:     "track preparing",
			mutate:   func(v *models.Video) { v.TrackStatus = "preparing" },
			wantKind: errors.KindTrackNotReady,
		},
		{
			name:     "track status absent",
			mutate:   func(v *models.Video) { v.TrackStatus = "" },
			wantKind: errors.KindTrackNotReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video := readyVideo()
			tt.mutate(video)
			repo := &fakeVideoRepo{videos: map[string]*models.Video{"v1/u1": video}}
			svc := newTestService(repo, &fakeFetcher{}, &fakeGenerator{}, nil)

			got, err := svc.GetVideo(context.Background(), "v1", "u1")
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("GetVideo: %v", err)
				}
				if got.ID != "v1" || got.PlaybackID != "pb-1" {
					t.Errorf("unexpected record: %+v", got)
				}
				return
			}
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("expected %s, got %v", tt.wantKind, err)
			}
			if !errors.IsTerminal(err) {
				t.Error("gate failures must be terminal")
			}
		})
	}
}

func TestGetVideoOwnership(t *testing.T) {
	repo := &fakeVideoRepo{videos: map[string]*models.Video{"v1/u1": readyVideo()}}
	svc := newTestService(repo, &fakeFetcher{}, &fakeGenerator{}, nil)

	if _, err := svc.GetVideo(context.Background(), "v1", "other-user"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound for non-owner, got %v", err)
	}
}

func TestGetVideoIdempotent(t *testing.T) {
	video := readyVideo()
	video.TrackStatus = "preparing"
	repo := &fakeVideoRepo{videos: map[string]*models.Video{"v1/u1": video}}
	svc := newTestService(repo, &fakeFetcher{}, &fakeGenerator{}, nil)

	_, err1 := svc.GetVideo(context.Background(), "v1", "u1")
	_, err2 := svc.GetVideo(context.Background(), "v1", "u1")
	if errors.KindOf(err1) != errors.KindOf(err2) {
		t.Errorf("gate not idempotent: %v vs %v", err1, err2)
	}
}

func TestGetVideoTrackNotReadyCarriesStatus(t *testing.T) {
	video := readyVideo()
	video.TrackStatus = "preparing"
	repo := &fakeVideoRepo{videos: map[string]*models.Video{"v1/u1": video}}
	svc := newTestService(repo, &fakeFetcher{}, &fakeGenerator{}, nil)

	_, err := svc.GetVideo(context.Background(), "v1", "u1")
	want := "Video track is not ready yet. Current status: preparing"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestGetTranscriptArchives(t *testing.T) {
	fetcher := &fakeFetcher{result: &transcript.Result{Raw: "WEBVTT\n\nHello world\n", Text: "Hello world"}}
	arc := &fakeArchive{}
	svc := newTestService(&fakeVideoRepo{videos: map[string]*models.Video{}}, fetcher, &fakeGenerator{}, arc)

	text, err := svc.GetTranscript(context.Background(), readyVideo())
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if text != "Hello world" {
		t.Errorf("text = %q", text)
	}
	if arc.saved["v1"] != "Hello world" {
		t.Errorf("archive not written: %+v", arc.saved)
	}
}

func TestGetTranscriptArchiveFailureIsNonFatal(t *testing.T) {
	fetcher := &fakeFetcher{result: &transcript.Result{Raw: "raw", Text: "parsed"}}
	arc := &fakeArchive{err: fmt.Errorf("bucket unavailable")}
	svc := newTestService(&fakeVideoRepo{videos: map[string]*models.Video{}}, fetcher, &fakeGenerator{}, arc)

	text, err := svc.GetTranscript(context.Background(), readyVideo())
	if err != nil {
		t.Fatalf("GetTranscript should not fail on archive error: %v", err)
	}
	if text != "parsed" {
		t.Errorf("text = %q", text)
	}
}

func TestGeneratePromptSelection(t *testing.T) {
	gen := &fakeGenerator{content: "A Catchy Title"}
	svc := newTestService(&fakeVideoRepo{videos: map[string]*models.Video{}}, &fakeFetcher{}, gen, nil)

	got, err := svc.Generate(context.Background(), models.JobKindTitle, "Hello world")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "A Catchy Title" {
		t.Errorf("content = %q", got)
	}
	if gen.gotSys != titleSystemPrompt {
		t.Errorf("wrong system prompt for title: %q", gen.gotSys)
	}
	if gen.gotUser != "Hello world" {
		t.Errorf("transcript not passed verbatim: %q", gen.gotUser)
	}

	if _, err := svc.Generate(context.Background(), models.JobKindDescription, "Hello world"); err != nil {
		t.Fatalf("Generate description: %v", err)
	}
	if gen.gotSys != descriptionSystemPrompt {
		t.Errorf("wrong system prompt for description: %q", gen.gotSys)
	}

	if _, err := svc.Generate(context.Background(), models.JobKind("bogus"), "x"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestUpdateVideoTargetsVariantField(t *testing.T) {
	repo := &fakeVideoRepo{videos: map[string]*models.Video{"v1/u1": readyVideo()}}
	svc := newTestService(repo, &fakeFetcher{}, &fakeGenerator{}, nil)
	ctx := context.Background()

	if err := svc.UpdateVideo(ctx, models.JobKindTitle, "v1", "u1", "new title"); err != nil {
		t.Fatalf("UpdateVideo title: %v", err)
	}
	if err := svc.UpdateVideo(ctx, models.JobKindDescription, "v1", "u1", "new description"); err != nil {
		t.Fatalf("UpdateVideo description: %v", err)
	}

	v := repo.videos["v1/u1"]
	if v.Title != "new title" || v.Description != "new description" {
		t.Errorf("unexpected record: %+v", v)
	}

	if err := svc.UpdateVideo(ctx, models.JobKindTitle, "v1", "u2", "stolen"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound for wrong owner, got %v", err)
	}
}
