package signaling

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const sessionKeyWords = 4

// newSessionKey creates a random, memorable session key from word
// combinations, e.g. "sleepy-amber-otter-harbor". Each word comes from a
// different list. Keys for which taken reports true are skipped.
func newSessionKey(taken func(string) bool) string {
	for {
		lists := pickLists(sessionKeyWords)

		words := make([]string, len(lists))
		for i, list := range lists {
			words[i] = list[randomIndex(len(list))]
		}

		key := strings.Join(words, "-")
		if taken == nil || !taken(key) {
			return key
		}
	}
}

// pickLists draws n distinct word lists without replacement.
func pickLists(n int) [][]string {
	pool := make([][]string, len(wordLists))
	copy(pool, wordLists)

	picked := make([][]string, 0, n)
	for len(picked) < n && len(pool) > 0 {
		i := randomIndex(len(pool))
		picked = append(picked, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	return picked
}

// randomIndex returns a cryptographically secure random index below max, or 0
// if the system source fails.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}
