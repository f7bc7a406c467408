package rag

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedder returns a fixed vector per input text.
type fakeEmbedder struct {
	// vec is returned for every text.
	vec []float32
	// err is returned instead of embeddings when set.
	err error
	// empty makes Embed return no vectors.
	empty bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

// fakeStore records the search arguments and returns canned documents.
type fakeStore struct {
	docs []Document
	err  error

	gotTopK      int
	gotThreshold float32
}

func (f *fakeStore) Upsert(context.Context, []Document, [][]float32) error { return nil }
func (f *fakeStore) DeleteSource(context.Context, string) error            { return nil }
func (f *fakeStore) Close() error                                          { return nil }

func (f *fakeStore) Search(_ context.Context, _ []float32, topK int, threshold float32) ([]Document, error) {
	f.gotTopK = topK
	f.gotThreshold = threshold
	return f.docs, f.err
}

func TestNewRetriever_NilDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeStore{}, 5); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, 5); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestRetrieve_PassesTopKAndThreshold(t *testing.T) {
	t.Parallel()

	store := &fakeStore{docs: []Document{{ID: "a", Content: "Article 21", Source: "constitution.pdf"}}}
	r, err := NewRetriever(&fakeEmbedder{vec: []float32{0.1, 0.2}}, store, 10)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	docs, err := r.Retrieve(context.Background(), "right to life", 3, 0.3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("want 1 doc, got %d", len(docs))
	}
	if store.gotTopK != 3 {
		t.Errorf("topK: want 3, got %d", store.gotTopK)
	}
	if store.gotThreshold != 0.3 {
		t.Errorf("threshold: want 0.3, got %v", store.gotThreshold)
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r, err := NewRetriever(&fakeEmbedder{vec: []float32{1}}, store, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	if _, err := r.Retrieve(context.Background(), "q", 0, 0); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if store.gotTopK != 10 {
		t.Errorf("want default topK 10, got %d", store.gotTopK)
	}
}

func TestRetrieve_ErrorsPropagate(t *testing.T) {
	t.Parallel()

	embedErr := errors.New("embedding backend down")
	searchErr := errors.New("qdrant unavailable")

	tests := []struct {
		name    string
		emb     *fakeEmbedder
		store   *fakeStore
		wantErr error
	}{
		{"embed failure", &fakeEmbedder{err: embedErr}, &fakeStore{}, embedErr},
		{"search failure", &fakeEmbedder{vec: []float32{1}}, &fakeStore{err: searchErr}, searchErr},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r, err := NewRetriever(tc.emb, tc.store, 5)
			if err != nil {
				t.Fatalf("NewRetriever: %v", err)
			}
			_, err = r.Retrieve(context.Background(), "q", 5, 0.3)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want wrapped %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRetrieve_EmptyEmbedding(t *testing.T) {
	t.Parallel()

	r, err := NewRetriever(&fakeEmbedder{empty: true}, &fakeStore{}, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	if _, err := r.Retrieve(context.Background(), "q", 5, 0); err == nil {
		t.Error("expected error when embedder returns no vectors")
	}
}

func TestRetrieve_BlankQuerySkipsEmbedding(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{err: errors.New("must not be called")}
	r, err := NewRetriever(emb, &fakeStore{}, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := r.Retrieve(context.Background(), q, 5, 0); !errors.Is(err, ErrBlankQuery) {
			t.Errorf("Retrieve(%q): want ErrBlankQuery, got %v", q, err)
		}
	}
}

func TestRetrieve_CapsOversizedResults(t *testing.T) {
	t.Parallel()

	store := &fakeStore{docs: []Document{
		{ID: "a", Score: 0.9}, {ID: "b", Score: 0.8}, {ID: "c", Score: 0.7},
	}}
	r, err := NewRetriever(&fakeEmbedder{vec: []float32{1}}, store, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	docs, err := r.Retrieve(context.Background(), "bail", 2, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Errorf("unexpected docs %+v", docs)
	}
}
