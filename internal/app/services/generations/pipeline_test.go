package generations

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/domain/selfie"
	"github.com/studioshot/platform/internal/app/domain/team"
	"github.com/studioshot/platform/internal/app/services/credits"
	"github.com/studioshot/platform/internal/app/storage/memory"
	"github.com/studioshot/platform/internal/objectstore"
	"github.com/studioshot/platform/internal/provider"
)

type stubGenerator struct {
	photos    int
	failFirst int
	calls     int
	lastReq   provider.GenerateRequest
	err       error
}

func (g *stubGenerator) RemoveBackground(_ context.Context, img []byte) ([]byte, error) {
	return img, nil
}

func (g *stubGenerator) GenerateHeadshots(_ context.Context, req provider.GenerateRequest) ([][]byte, error) {
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	if g.calls <= g.failFirst {
		return nil, &provider.TransientError{Err: errors.New("model busy")}
	}
	photos := make([][]byte, g.photos)
	for i := range photos {
		photos[i] = testJPEG(640, 640)
	}
	return photos, nil
}

func testJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}

func testPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

type pipelineFixture struct {
	store     *memory.Store
	objects   *objectstore.Memory
	generator *stubGenerator
	svc       *Service
	pipeline  *Pipeline
	person    person.Person
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	store := memory.New()
	objects := objectstore.NewMemory()
	ledger := credits.New(store, store, nil)
	svc := New(store, store, store, store, ledger, 3, nil)
	generator := &stubGenerator{photos: 2}
	pipeline := NewPipeline(svc, store, store, objects, generator, 2, nil)
	ctx := context.Background()

	p, err := store.CreatePerson(ctx, person.Person{Email: "ada@example.com", Name: "Ada", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	for i := 0; i < 2; i++ {
		key := "selfies/" + p.ID + "/" + string(rune('a'+i)) + ".jpg"
		if err := objects.Put(ctx, key, "image/jpeg", testJPEG(300, 400)); err != nil {
			t.Fatalf("store selfie bytes: %v", err)
		}
		if _, err := store.CreateSelfie(ctx, selfie.Selfie{PersonID: p.ID, ObjectKey: key, ContentType: "image/jpeg"}); err != nil {
			t.Fatalf("create selfie: %v", err)
		}
	}
	if _, err := ledger.Grant(ctx, credit.SourcePerson, p.ID, 5, ""); err != nil {
		t.Fatalf("grant: %v", err)
	}
	return &pipelineFixture{store: store, objects: objects, generator: generator, svc: svc, pipeline: pipeline, person: p}
}

func (f *pipelineFixture) queueProcessing(t *testing.T, contextID string) generation.Generation {
	t.Helper()
	ctx := context.Background()
	g, err := f.svc.Create(ctx, f.person.ID, contextID, "studio", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	g, err = f.svc.MarkProcessing(ctx, g.ID)
	if err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	return g
}

func TestPipelineRunCompletesGeneration(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	g := f.queueProcessing(t, "")
	if err := f.pipeline.Run(ctx, g); err != nil {
		t.Fatalf("run: %v", err)
	}

	done, err := f.svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if done.Status != generation.StatusCompleted {
		t.Fatalf("status %q, want completed", done.Status)
	}
	if len(done.ResultKeys) != 2 {
		t.Fatalf("expected 2 result keys, got %v", done.ResultKeys)
	}
	if done.CompositeKey == "" {
		t.Fatal("composite key not recorded")
	}

	if _, err := f.objects.Get(ctx, done.CompositeKey); err != nil {
		t.Fatalf("composite not stored: %v", err)
	}
	for _, key := range done.ResultKeys {
		if _, err := f.objects.Get(ctx, key); err != nil {
			t.Fatalf("result %s not stored: %v", key, err)
		}
	}
	if f.generator.lastReq.Count != 2 {
		t.Fatalf("requested %d photos, want 2", f.generator.lastReq.Count)
	}
}

func TestPipelineAppliesBrandContext(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	tm, err := f.store.CreateTeam(ctx, team.Team{Name: "Acme", AdminID: f.person.ID, Seats: 2})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	f.person.TeamID = tm.ID
	if _, err := f.store.UpdatePerson(ctx, f.person); err != nil {
		t.Fatalf("assign team: %v", err)
	}

	logoKey := "logos/" + tm.ID + ".png"
	if err := f.objects.Put(ctx, logoKey, "image/png", testPNG(100, 50)); err != nil {
		t.Fatalf("store logo: %v", err)
	}
	bc, err := f.store.CreateBrandContext(ctx, team.BrandContext{TeamID: tm.ID, Name: "Studio", LogoKey: logoKey, Background: "navy", Clothing: "business"})
	if err != nil {
		t.Fatalf("create context: %v", err)
	}

	g := f.queueProcessing(t, bc.ID)
	if err := f.pipeline.Run(ctx, g); err != nil {
		t.Fatalf("run: %v", err)
	}

	if f.generator.lastReq.Background != "navy" || f.generator.lastReq.Clothing != "business" {
		t.Fatalf("context not forwarded to provider: %+v", f.generator.lastReq)
	}

	done, err := f.svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if done.Status != generation.StatusCompleted {
		t.Fatalf("status %q, want completed", done.Status)
	}
}

func TestPipelineErrorLeavesProcessing(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.generator.err = errors.New("model rejected the request")

	g := f.queueProcessing(t, "")
	if err := f.pipeline.Run(ctx, g); err == nil {
		t.Fatal("expected pipeline error")
	}

	current, err := f.svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != generation.StatusProcessing {
		t.Fatalf("status %q, want processing for caller to decide", current.Status)
	}
}
