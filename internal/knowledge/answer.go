package knowledge

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"knowledgescout/internal/domain"
)

// Family is a class of question recognised by its keywords.
type Family string

const (
	FamilyNone        Family = ""
	FamilyProgramming Family = "programming"
	FamilySkill       Family = "skill"
	FamilyExperience  Family = "experience"
	FamilyEducation   Family = "education"
	FamilyContact     Family = "contact"
)

// familyOrder is the detection order; the first family with a keyword wins.
var familyOrder = []Family{
	FamilyProgramming,
	FamilySkill,
	FamilyExperience,
	FamilyEducation,
	FamilyContact,
}

var familyKeywords = map[Family][]string{
	FamilyProgramming: {"programming", "language", "languages", "code", "coding"},
	FamilySkill:       {"skill", "skills", "technology", "technologies", "tools"},
	FamilyExperience:  {"experience", "work", "worked", "job", "role", "career"},
	FamilyEducation:   {"education", "degree", "university", "college", "study", "studied"},
	FamilyContact:     {"contact", "email", "phone"},
}

var fallbacks = map[Family]string{
	FamilyProgramming: "I couldn't find any programming languages in the uploaded documents. Try uploading a resume or project description that lists them.",
	FamilySkill:       "I couldn't find any skills or technologies in the uploaded documents.",
	FamilyExperience:  "I couldn't find any work experience in the uploaded documents.",
	FamilyEducation:   "I couldn't find any education details in the uploaded documents.",
	FamilyContact:     "I couldn't find any contact information in the uploaded documents.",
	FamilyNone:        "I couldn't find information related to your question in the uploaded documents. Try rephrasing or uploading a relevant document.",
}

// NoDocumentsAnswer is returned when nothing has been uploaded yet.
const NoDocumentsAnswer = "No documents have been uploaded yet. Upload a document first, then ask your question."

// Display names keyed by their lower-case token.
var (
	knownLanguages = []nameToken{
		{"go", "Go"}, {"golang", "Go"}, {"python", "Python"}, {"java", "Java"},
		{"javascript", "JavaScript"}, {"typescript", "TypeScript"}, {"c++", "C++"},
		{"c#", "C#"}, {"rust", "Rust"}, {"ruby", "Ruby"}, {"php", "PHP"},
		{"kotlin", "Kotlin"}, {"swift", "Swift"}, {"scala", "Scala"}, {"sql", "SQL"},
		{"bash", "Bash"}, {"haskell", "Haskell"}, {"elixir", "Elixir"},
	}
	knownSkills = []nameToken{
		{"docker", "Docker"}, {"kubernetes", "Kubernetes"}, {"aws", "AWS"},
		{"gcp", "GCP"}, {"azure", "Azure"}, {"terraform", "Terraform"},
		{"git", "Git"}, {"linux", "Linux"}, {"react", "React"}, {"angular", "Angular"},
		{"vue", "Vue"}, {"django", "Django"}, {"flask", "Flask"}, {"fastapi", "FastAPI"},
		{"spring", "Spring"}, {"postgresql", "PostgreSQL"}, {"mysql", "MySQL"},
		{"mongodb", "MongoDB"}, {"redis", "Redis"}, {"kafka", "Kafka"},
		{"graphql", "GraphQL"}, {"tensorflow", "TensorFlow"}, {"pytorch", "PyTorch"},
		{"grpc", "gRPC"},
	}

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
)

type nameToken struct {
	token string
	name  string
}

const maxEvidenceLines = 3

// DetectFamily returns the first family whose keyword occurs in question.
func DetectFamily(question string) Family {
	present := make(map[string]struct{})
	for _, w := range words(lower(question)) {
		present[w] = struct{}{}
	}
	for _, f := range familyOrder {
		for _, kw := range familyKeywords[f] {
			if _, ok := present[kw]; ok {
				return f
			}
		}
	}
	return FamilyNone
}

// Fallback returns the canned answer used when no document matches.
func Fallback(question string) string {
	return fallbacks[DetectFamily(question)]
}

// Synthesize builds the answer text from the best match.
func Synthesize(question string, top Match) string {
	doc := top.Document
	switch DetectFamily(question) {
	case FamilyProgramming:
		if names := findNames(doc.Content, knownLanguages); len(names) > 0 {
			return fmt.Sprintf("Based on %s, the programming languages mentioned are: %s.", doc.Filename, strings.Join(names, ", "))
		}
	case FamilySkill:
		if names := findNames(doc.Content, knownSkills); len(names) > 0 {
			return fmt.Sprintf("Based on %s, the skills and technologies mentioned are: %s.", doc.Filename, strings.Join(names, ", "))
		}
	case FamilyExperience:
		if lines := linesWith(doc.Pages, familyKeywords[FamilyExperience]); len(lines) > 0 {
			return fmt.Sprintf("Based on %s, the relevant experience is: %s", doc.Filename, strings.Join(lines, " | "))
		}
	case FamilyEducation:
		if lines := linesWith(doc.Pages, familyKeywords[FamilyEducation]); len(lines) > 0 {
			return fmt.Sprintf("Based on %s, the education details are: %s", doc.Filename, strings.Join(lines, " | "))
		}
	case FamilyContact:
		if found := contactDetails(doc.Content); len(found) > 0 {
			return fmt.Sprintf("Based on %s, the contact details are: %s.", doc.Filename, strings.Join(found, ", "))
		}
	}
	return fmt.Sprintf("Based on %s: %s", doc.Filename, Snippet(doc.Content, top.Offset))
}

// findNames returns the display names of known tokens present in content,
// in list order and without duplicates.
func findNames(content string, known []nameToken) []string {
	present := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(lower(content), func(r rune) bool {
		return !isWordRune(r) && r != '+' && r != '#'
	}) {
		present[tok] = struct{}{}
	}

	var names []string
	seen := make(map[string]struct{})
	for _, k := range known {
		if _, ok := present[k.token]; !ok {
			continue
		}
		if _, dup := seen[k.name]; dup {
			continue
		}
		seen[k.name] = struct{}{}
		names = append(names, k.name)
	}
	return names
}

// linesWith returns up to maxEvidenceLines non-empty lines containing one of keywords.
func linesWith(lines []string, keywords []string) []string {
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !containsAnyWord(lower(trimmed), keywords) {
			continue
		}
		out = append(out, trimmed)
		if len(out) == maxEvidenceLines {
			break
		}
	}
	return out
}

func containsAnyWord(text string, keywords []string) bool {
	for _, w := range words(text) {
		for _, kw := range keywords {
			if w == kw {
				return true
			}
		}
	}
	return false
}

func contactDetails(content string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if _, dup := seen[s]; dup || s == "" {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, m := range emailPattern.FindAllString(content, maxEvidenceLines) {
		add(m)
	}
	for _, m := range phonePattern.FindAllString(content, maxEvidenceLines) {
		if digitCount(m) >= 7 {
			add(m)
		}
	}
	return out
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

const (
	snippetRunes  = 200
	snippetLeadIn = 60
)

// Snippet returns at most snippetRunes runes of content around the rune
// index offset, with runs of whitespace collapsed to single spaces.
func Snippet(content string, offset int) string {
	runes := []rune(content)
	if offset < 0 {
		offset = 0
	}
	if offset > len(runes) {
		offset = len(runes)
	}
	start := offset - snippetLeadIn
	if start < 0 {
		start = 0
	}
	end := start + snippetRunes
	if end > len(runes) {
		end = len(runes)
	}
	return strings.Join(strings.Fields(string(runes[start:end])), " ")
}

// Sources converts the first k matches into answer sources.
func Sources(matches []Match, k int) []domain.Source {
	if k < 0 {
		k = 0
	}
	if k > len(matches) {
		k = len(matches)
	}
	out := make([]domain.Source, 0, k)
	for _, m := range matches[:k] {
		out = append(out, domain.Source{
			DocumentID: m.Document.ID,
			Filename:   m.Document.Filename,
			Snippet:    Snippet(m.Document.Content, m.Offset),
			Score:      m.Score,
		})
	}
	return out
}
