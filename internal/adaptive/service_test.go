package adaptive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"imagesvc/internal/domain"
	"imagesvc/internal/providers/generate"
	"imagesvc/internal/providers/search"
	"imagesvc/internal/storage"
)

type stubClassifier struct {
	decision domain.ClassificationDecision
	calls    int
}

func (s *stubClassifier) Classify(context.Context, string) domain.ClassificationDecision {
	s.calls++
	return s.decision
}

type stubSearcher struct {
	images    []domain.ImageCandidate
	calls     int
	perSource int
}

func (s *stubSearcher) SearchMultipleSources(_ context.Context, _ string, perSource int) []domain.ImageCandidate {
	s.calls++
	s.perSource = perSource
	return s.images
}

type stubGenerator struct {
	name    string
	path    string
	err     error
	write   bool
	calls   int
	prompts []string
}

func (g *stubGenerator) Name() string { return g.name }

func (g *stubGenerator) Generate(_ context.Context, prompt, outputDir string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if g.write {
		path := filepath.Join(outputDir, "gen.png")
		if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
			return "", err
		}
		return path, nil
	}
	return g.path, nil
}

type stubWeb struct {
	result search.Result
	calls  int
	last   search.Query
}

func (w *stubWeb) Name() domain.Source { return domain.SourceBrave }

func (w *stubWeb) Search(_ context.Context, q search.Query) search.Result {
	w.calls++
	w.last = q
	return w.result
}

func newStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), "/static/images")
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSearchDecisionReturnsSearchResults(t *testing.T) {
	images := []domain.ImageCandidate{
		{URL: "https://u/1.jpg", Source: domain.SourceUnsplash},
		{URL: "https://p/1.jpg", Source: domain.SourcePexels},
	}
	searcher := &stubSearcher{images: images}
	gen := &stubGenerator{name: "stub", write: true}
	svc := New(Options{
		Classifier: &stubClassifier{decision: domain.NewDecision(domain.DecisionSearch, "Scientific/educational content detected: cell")},
		Searcher:   searcher,
		Strategy:   generate.Strategy{Kind: generate.KindDallE3, Generator: gen},
		Store:      newStore(t),
	})

	resp := svc.GetAdaptiveImage(context.Background(), "cell division", "English")
	if resp.Decision != domain.DecisionSearch || len(resp.Images) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if searcher.perSource != PerSource {
		t.Fatalf("perSource = %d", searcher.perSource)
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not run when search succeeds")
	}
}

func TestEmptySearchFallsBackToGeneration(t *testing.T) {
	store := newStore(t)
	gen := &stubGenerator{name: "stub", write: true}
	svc := New(Options{
		Classifier: &stubClassifier{decision: domain.NewDecision(domain.DecisionSearch, "real object")},
		Searcher:   &stubSearcher{},
		Strategy:   generate.Strategy{Kind: generate.KindComfyUI, Generator: gen},
		Store:      store,
	})

	resp := svc.GetAdaptiveImage(context.Background(), "a red fox", "")
	if resp.Decision != domain.DecisionGenerate || resp.Reason != SearchEmptyReason {
		t.Fatalf("decision = %s / %q", resp.Decision, resp.Reason)
	}
	if len(resp.Images) != 1 {
		t.Fatalf("images = %+v", resp.Images)
	}
	got := resp.Images[0]
	if got.Source != domain.SourceGenerated || got.Attribution != "AI Generated" || got.Description != "a red fox" {
		t.Fatalf("candidate = %+v", got)
	}
	if got.URL != "/static/images/gen.png" {
		t.Fatalf("url = %q, want the public static path", got.URL)
	}
}

func TestGenerationErrorYieldsPlaceholder(t *testing.T) {
	gen := &stubGenerator{name: "comfyui", err: domain.NewGenerationError("comfyui", domain.ErrTimeout, errors.New("300s"))}
	svc := New(Options{
		Classifier: &stubClassifier{decision: domain.NewDecision(domain.DecisionGenerate, "abstract")},
		Searcher:   &stubSearcher{},
		Strategy:   generate.Strategy{Kind: generate.KindComfyUI, Generator: gen},
		Store:      newStore(t),
	})
	resp := svc.GetAdaptiveImage(context.Background(), "dreams", "English")
	if resp.Decision != domain.DecisionGenerate || resp.Reason != "abstract" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Images) != 1 || resp.Images[0] != domain.PlaceholderCandidate() {
		t.Fatalf("images = %+v, want the placeholder", resp.Images)
	}
}

func TestDisabledGenerationMakesNoCalls(t *testing.T) {
	web := &stubWeb{result: search.Result{Candidates: []domain.ImageCandidate{{URL: "https://x/y.jpg", Source: domain.SourceBrave}}}}
	svc := New(Options{
		Strategy:  generate.Strategy{Kind: generate.KindDisabled},
		WebSearch: web,
		Store:     newStore(t),
	})
	for i := 0; i < 3; i++ {
		out := svc.GenerateImage(context.Background(), domain.NewImagePrompt("anything", "English", "dark"))
		if !out.Placeholder || out.Path != domain.PlaceholderPath || !errors.Is(out.Err, ErrGenerationDisabled) {
			t.Fatalf("outcome = %+v", out)
		}
	}
	if web.calls != 0 {
		t.Fatalf("web search called %d times", web.calls)
	}
}

func TestNoGeneratorYieldsPlaceholder(t *testing.T) {
	svc := New(Options{Strategy: generate.Strategy{Kind: generate.KindNone}})
	out := svc.GenerateImage(context.Background(), domain.NewImagePrompt("x", "", ""))
	if !out.Placeholder || !errors.Is(out.Err, ErrNoGenerator) {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestWebSearchAnswersBeforeGenerator(t *testing.T) {
	web := &stubWeb{result: search.Result{Source: domain.SourceBrave, Candidates: []domain.ImageCandidate{
		{URL: "https://a/1.jpg", Source: domain.SourceBrave},
		{URL: "https://a/2.jpg", Source: domain.SourceBrave},
	}}}
	gen := &stubGenerator{name: "stub", write: true}
	svc := New(Options{
		Strategy:  generate.Strategy{Kind: generate.KindDallE3, Generator: gen},
		WebSearch: web,
		Store:     newStore(t),
	})
	out := svc.GenerateImage(context.Background(), domain.NewImagePrompt("Almaty skyline", "Russian", "minimal"))
	if out.Placeholder || out.Path != "https://a/1.jpg" || out.Asset == nil {
		t.Fatalf("outcome = %+v", out)
	}
	if gen.calls != 0 {
		t.Fatalf("generator should not run")
	}
	if web.last.Text != "Almaty skyline, minimal" || web.last.Language != "Russian" || web.last.Count != 5 {
		t.Fatalf("web query = %+v", web.last)
	}
	cands, _ := out.Asset.Extras["candidates"].([]string)
	if len(cands) != 2 || out.Asset.Extras["source"] != "search" || out.Asset.Extras["prompt"] != "Almaty skyline" {
		t.Fatalf("extras = %#v", out.Asset.Extras)
	}
}

func TestThemeCompositionFollowsStrategy(t *testing.T) {
	prompt := domain.NewImagePrompt("mountain lake", "English", "watercolor")

	stock := &stubGenerator{name: "pexels", path: "https://images.pexels.com/1.jpg"}
	svc := New(Options{Strategy: generate.Strategy{Kind: generate.KindPexels, Generator: stock, Stock: true}})
	out := svc.GenerateImage(context.Background(), prompt)
	if out.Placeholder || out.Path != "https://images.pexels.com/1.jpg" || out.Asset != nil {
		t.Fatalf("stock outcome = %+v", out)
	}
	if stock.prompts[0] != "mountain lake" {
		t.Fatalf("stock prompt = %q, want no theme", stock.prompts[0])
	}

	gen := &stubGenerator{name: "dall-e-3", write: true}
	svc = New(Options{Strategy: generate.Strategy{Kind: generate.KindDallE3, Generator: gen}, Store: newStore(t)})
	out = svc.GenerateImage(context.Background(), prompt)
	if out.Placeholder || out.Asset == nil || out.Asset.Extras["theme_prompt"] != "watercolor" {
		t.Fatalf("generated outcome = %+v", out)
	}
	if gen.prompts[0] != "mountain lake, watercolor" {
		t.Fatalf("generator prompt = %q", gen.prompts[0])
	}
}

func TestMissingLocalArtifactYieldsPlaceholder(t *testing.T) {
	gen := &stubGenerator{name: "stub", path: filepath.Join(t.TempDir(), "nope.png")}
	svc := New(Options{Strategy: generate.Strategy{Kind: generate.KindDallE3, Generator: gen}, Store: newStore(t)})
	out := svc.GenerateImage(context.Background(), domain.NewImagePrompt("x", "", ""))
	if !out.Placeholder || !errors.Is(out.Err, domain.ErrFetch) {
		t.Fatalf("outcome = %+v", out)
	}
}
