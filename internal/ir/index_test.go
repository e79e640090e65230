package ir

import "testing"

func TestInvertedIndex_AddDocument(t *testing.T) {
	tokenizer := NewTokenizer()
	index := NewInvertedIndex(tokenizer)

	index.AddDocument(1, Document{
		Title: "Squeezed light for gravitational wave detectors",
		Body:  "We inject squeezed light into the interferometer.",
	})

	if index.GetTotalDocs() != 1 {
		t.Fatalf("Expected 1 doc, got %d", index.GetTotalDocs())
	}

	p, ok := index.GetPosting("squeezed", 1)
	if !ok {
		t.Fatal("posting for 'squeezed' missing")
	}
	if p.TitleFreq != 1 || p.BodyFreq != 1 || p.TermFreq != 2 {
		t.Errorf("unexpected posting: %+v", p)
	}
	if index.GetTermFrequency("interferometer", 1) != 1 {
		t.Error("expected body-only term to be indexed")
	}
	if index.GetTitleLength(1) != 5 {
		t.Errorf("Expected title length 5, got %d", index.GetTitleLength(1))
	}
}

func TestInvertedIndex_Statistics(t *testing.T) {
	tokenizer := NewTokenizer()
	index := NewInvertedIndex(tokenizer)
	index.AddDocuments([]Document{
		{Title: "quantum dots", Body: "quantum emitters"},
		{Title: "quantum memory", Body: ""},
	})

	if df := index.GetDocumentFrequency("quantum"); df != 2 {
		t.Errorf("Expected df 2, got %d", df)
	}
	if df := index.GetDocumentFrequency("memory"); df != 1 {
		t.Errorf("Expected df 1, got %d", df)
	}
	if avg := index.GetAverageDocumentLength(); avg != 3 {
		t.Errorf("Expected avg length 3, got %.2f", avg)
	}
	if index.GetVocabularySize() != 4 {
		t.Errorf("Expected vocabulary 4, got %d", index.GetVocabularySize())
	}
}
