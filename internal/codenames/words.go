package codenames

import (
	"embed"
	"fmt"
	"math/rand"
	"strings"
)

//go:embed words/*.txt
var wordFiles embed.FS

const defaultBank = "english"

// WordBank returns the word list for a language, falling back to english
// when the requested bank does not exist.
func WordBank(name string) []string {
	if name == "" {
		name = defaultBank
	}
	words, err := loadBank(name)
	if err != nil && name != defaultBank {
		words, err = loadBank(defaultBank)
	}
	if err != nil {
		return nil
	}
	return words
}

func loadBank(name string) ([]string, error) {
	data, err := wordFiles.ReadFile("words/" + name + ".txt")
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")
	words := make([]string, 0, len(lines))
	for _, line := range lines {
		word := strings.TrimSpace(line)
		if word != "" {
			words = append(words, word)
		}
	}
	return words, nil
}

func randomWords(count int, bank string, rng *rand.Rand) ([]string, error) {
	words := WordBank(bank)
	if len(words) < count {
		return nil, fmt.Errorf("%w: word bank %q has %d words, need %d", ErrMissingSetup, bank, len(words), count)
	}
	shuffled := make([]string, len(words))
	copy(shuffled, words)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count], nil
}
