package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
)

// MockExtractor fabricates structured draft text so the publish path can
// be exercised end to end without any model calls.
type MockExtractor struct {
	rng *rand.Rand
}

// NewMockExtractor builds the test-mode extractor. A nil source falls
// back to the global generator.
func NewMockExtractor(rng *rand.Rand) *MockExtractor {
	return &MockExtractor{rng: rng}
}

var (
	mockTopics = []string{
		"Intelligence Artificielle", "Machine Learning", "Blockchain",
		"Cybersécurité", "Cloud Computing", "Internet des Objets",
		"Réalité Virtuelle", "Big Data", "DevOps", "Quantum Computing",
	}
	mockSections = []string{
		"Introduction", "Concepts Fondamentaux", "Applications Pratiques",
		"Défis et Perspectives", "Tendances Actuelles", "Technologies Émergentes",
		"Meilleures Pratiques", "Cas d'Usage",
	}
	mockIntros = []string{
		"est un domaine fascinant qui révolutionne notre quotidien.",
		"transforme la façon dont nous travaillons et vivons.",
		"représente une avancée technologique majeure de notre époque.",
		"ouvre de nouvelles possibilités dans de nombreux secteurs.",
		"est au cœur de la transformation numérique actuelle.",
	}
	mockDescriptions = []string{
		"Cette technologie combine innovation et créativité.",
		"Les applications sont vastes et en constante évolution.",
		"L'impact sur l'industrie est considérable.",
		"De nombreuses entreprises investissent massivement dans ce domaine.",
		"Les experts prévoient une croissance exponentielle.",
	}
	mockBullets = [][]string{
		{"Automatisation", "Optimisation", "Scalabilité"},
		{"Sécurité", "Performance", "Fiabilité"},
		{"Innovation", "Collaboration", "Agilité"},
		{"Analyse prédictive", "Traitement en temps réel", "Visualisation"},
		{"Infrastructure", "Architecture", "Intégration"},
	}
	mockChallenges = [][]string{
		{"Complexité technique", "Coûts d'implémentation", "Formation des équipes"},
		{"Sécurité des données", "Conformité réglementaire", "Éthique"},
		{"Scalabilité", "Maintenance", "Migration"},
		{"Adoption utilisateur", "Intégration legacy", "ROI"},
	}
)

// ExtractText counts the images present and generates random structured
// content in their place.
func (e *MockExtractor) ExtractText(ctx context.Context, dir string) (string, error) {
	paths, err := ListImageFiles(dir)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(e.generate(len(paths))), nil
}

func (e *MockExtractor) generate(imageCount int) string {
	pick := func(options []string) string {
		if e.rng != nil {
			return options[e.rng.Intn(len(options))]
		}
		return options[rand.Intn(len(options))]
	}
	pickSet := func(options [][]string) []string {
		if e.rng != nil {
			return options[e.rng.Intn(len(options))]
		}
		return options[rand.Intn(len(options))]
	}

	topic := pick(mockTopics)
	sections := mockSections[:4]

	var parts []string
	for i, section := range sections {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, section))

		switch i {
		case 0:
			parts = append(parts, fmt.Sprintf("%s %s", topic, pick(mockIntros)))
			parts = append(parts, pick(mockDescriptions))
		case 1:
			parts = append(parts, pick(mockDescriptions))
			parts = append(parts, "Les aspects clés incluent :")
			for _, bullet := range pickSet(mockBullets) {
				parts = append(parts, "- "+bullet)
			}
		case 2:
			parts = append(parts, "Les domaines d'application sont nombreux :")
			for _, bullet := range pickSet(mockBullets) {
				parts = append(parts, "- "+bullet)
			}
		default:
			parts = append(parts, "Les principaux défis à relever :")
			for _, bullet := range pickSet(mockChallenges) {
				parts = append(parts, "- "+bullet)
			}
		}

		parts = append(parts, "")
	}

	parts = append(parts, fmt.Sprintf("Note: Contenu de test généré aléatoirement (%d image(s) détectée(s)).", imageCount))
	return strings.Join(parts, "\n")
}

// MockEnhancer passes drafts through untouched and always accepts them.
type MockEnhancer struct{}

// NewMockEnhancer builds the test-mode enhancer.
func NewMockEnhancer() *MockEnhancer {
	return &MockEnhancer{}
}

func (e *MockEnhancer) Structure(ctx context.Context, state State) (State, error) {
	state.Response = state.Input
	return state, nil
}

func (e *MockEnhancer) Enhance(ctx context.Context, state State) (State, error) {
	return state, nil
}

func (e *MockEnhancer) Verify(ctx context.Context, state State) (Verdict, error) {
	return VerdictOK, nil
}
