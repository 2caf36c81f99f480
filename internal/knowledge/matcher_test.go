package knowledge

import (
	"testing"

	"knowledgescout/internal/domain"
)

func doc(id, filename, content string) domain.Document {
	return domain.Document{ID: id, Filename: filename, Content: content, Pages: domain.SplitPages(content)}
}

func TestTerms(t *testing.T) {
	got := Terms("What are the Programming languages? Languages, go!")
	want := []string{"programming", "languages"}
	if len(got) != len(want) {
		t.Fatalf("Terms = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("term %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTerms_UnicodeLowering(t *testing.T) {
	got := Terms("ÉCOLE Straße")
	if len(got) != 2 || got[0] != "école" || got[1] != "straße" {
		t.Errorf("unexpected terms: %q", got)
	}
}

func TestMatchDocuments_TiesKeepUploadOrder(t *testing.T) {
	docs := []domain.Document{
		doc("1", "terms.txt", "kubernetes and docker everywhere"),
		doc("2", "phrase.txt", "We deploy with Kubernetes and Docker daily"),
	}
	matches := MatchDocuments("kubernetes and docker", docs)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	// both contain the phrase, so both get the phrase weight plus two terms
	if matches[0].Document.ID != "1" || matches[1].Document.ID != "2" {
		t.Errorf("ties should keep upload order, got %s then %s", matches[0].Document.ID, matches[1].Document.ID)
	}
	if !matches[0].Phrase || matches[0].Score != phraseWeight+2 {
		t.Errorf("unexpected top match: %+v", matches[0])
	}
}

func TestMatchDocuments_ScoreOrder(t *testing.T) {
	docs := []domain.Document{
		doc("1", "one.txt", "python only"),
		doc("2", "none.txt", "nothing relevant here"),
		doc("3", "two.txt", "python and rust"),
	}
	matches := MatchDocuments("python rust", docs)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Document.ID != "3" || matches[0].Score != 2 {
		t.Errorf("expected doc 3 with score 2 first, got %+v", matches[0])
	}
	if matches[1].Document.ID != "1" || matches[1].Score != 1 {
		t.Errorf("expected doc 1 with score 1 second, got %+v", matches[1])
	}
}

func TestMatchDocuments_ExactQuestionText(t *testing.T) {
	docs := []domain.Document{
		doc("1", "other.txt", "unrelated"),
		doc("2", "faq.txt", "Q: is it on?\nYes it is."),
	}
	// every word is short or a stop word, only the phrase can match
	matches := MatchDocuments("is it on?", docs)
	if len(matches) != 1 || matches[0].Document.ID != "2" {
		t.Fatalf("expected faq.txt to match, got %+v", matches)
	}
	if !matches[0].Phrase {
		t.Error("expected phrase hit")
	}
}

func TestMatchDocuments_Offset(t *testing.T) {
	docs := []domain.Document{doc("1", "a.txt", "héllo world, rust is here")}
	matches := MatchDocuments("rust", docs)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Offset != 13 {
		t.Errorf("expected rune offset 13, got %d", matches[0].Offset)
	}
}

func TestMatchDocuments_OffsetAfterExpandingLowercase(t *testing.T) {
	// İ lowers to two runes; the offset must still index the original text.
	docs := []domain.Document{doc("1", "a.txt", "İİİİ hello world")}
	matches := MatchDocuments("hello", docs)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Offset != 5 {
		t.Errorf("expected rune offset 5, got %d", matches[0].Offset)
	}
	if got := Snippet(docs[0].Content, matches[0].Offset); got != "İİİİ hello world" {
		t.Errorf("unexpected snippet %q", got)
	}
}

func TestMatchDocuments_WhitespaceInsensitivePhrase(t *testing.T) {
	tests := []struct {
		name     string
		question string
		content  string
		offset   int
	}{
		{"tab in both", "to\tbe", "to\tbe or not", 0},
		{"tab in question", "to\tbe", "x to be or not", 2},
		{"spaces in content", "to be", "ok, to   be\nor not", 4},
		{"newline in question", "to\nbe?", "to be", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := MatchDocuments(tt.question, []domain.Document{doc("1", "a.txt", tt.content)})
			if len(matches) != 1 || !matches[0].Phrase {
				t.Fatalf("expected a phrase match, got %+v", matches)
			}
			if matches[0].Offset != tt.offset {
				t.Errorf("expected offset %d, got %d", tt.offset, matches[0].Offset)
			}
		})
	}
}

func TestMatchDocuments_EmptyQuestion(t *testing.T) {
	docs := []domain.Document{doc("1", "a.txt", "anything")}
	if m := MatchDocuments("   ", docs); len(m) != 0 {
		t.Errorf("expected no matches, got %d", len(m))
	}
}

func TestMatchDocuments_Deterministic(t *testing.T) {
	docs := []domain.Document{
		doc("1", "a.txt", "go python"),
		doc("2", "b.txt", "python go"),
		doc("3", "c.txt", "python"),
	}
	first := MatchDocuments("python golang", docs)
	for i := 0; i < 5; i++ {
		again := MatchDocuments("python golang", docs)
		if len(again) != len(first) {
			t.Fatal("match count changed")
		}
		for j := range first {
			if again[j].Document.ID != first[j].Document.ID || again[j].Score != first[j].Score {
				t.Fatalf("run %d differs at %d", i, j)
			}
		}
	}
}
