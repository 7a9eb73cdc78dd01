// Package assistant answers free-text questions about the service with a keyword-matched
// knowledge base. Counts quoted in answers come from the live dataset and model pool.
package assistant

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/text/cases"
)

// ErrEmptyMessage is returned for blank messages.
var ErrEmptyMessage = errors.New("message is required")

// SessionPrefix starts every session id.
const SessionPrefix = "local_session_"

const (
	maxSessions = 10_000
	sessionTTL  = 24 * time.Hour
)

// Facts are the live numbers quoted in answers.
type Facts struct {
	Samples    int
	Features   int
	Models     int
	Categories []string
}

// FactsFunc is called for every answer, so reloads show up immediately.
type FactsFunc func() Facts

// Session is a chat conversation handle.
type Session struct {
	ID       string    `json:"session_id"`
	Started  time.Time `json:"-"`
	Messages int       `json:"-"`
}

// Assistant is safe for concurrent use.
type Assistant struct {
	facts    FactsFunc
	sessions *expirable.LRU[string, *Session]

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an assistant. facts may be nil.
func New(facts FactsFunc) *Assistant {
	if facts == nil {
		facts = func() Facts { return Facts{} }
	}
	return &Assistant{
		facts:    facts,
		sessions: expirable.NewLRU[string, *Session](maxSessions, nil, sessionTTL),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the source used to pick among equivalent answers.
func (a *Assistant) SetRand(r *rand.Rand) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rng = r
}

// StartSession opens a session.
func (a *Assistant) StartSession() Session {
	s := &Session{ID: SessionPrefix + uuid.NewString(), Started: time.Now()}
	a.sessions.Add(s.ID, s)
	return *s
}

// session returns a live session.
func (a *Assistant) session(id string) (Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions.Get(id)
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Reply answers message. Sessions are optional; an unknown or empty sessionID is accepted.
func (a *Assistant) Reply(sessionID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if sessionID != "" {
		a.mu.Lock()
		if s, ok := a.sessions.Get(sessionID); ok {
			s.Messages++
		}
		a.mu.Unlock()
	}
	return a.answer(message), nil
}

func (a *Assistant) answer(message string) string {
	text := cases.Fold().String(strings.TrimSpace(message))
	tokens := tokenize(text)
	facts := a.facts()

	switch {
	case matchAny(text, tokens, greetingWords):
		return a.pick(greetings, facts)
	case matchAny(text, tokens, capabilityWords):
		return a.pick(capabilities, facts)
	}

	for _, device := range facts.Categories {
		key := cases.Fold().String(device)
		if tokens[key] || containsPhrase(text, strings.ReplaceAll(key, "_", " ")) {
			if info, ok := deviceInfo[key]; ok {
				return info
			}
			return fmt.Sprintf("I can help you identify %s devices based on their network traffic patterns.", device)
		}
	}

	switch {
	case matchAny(text, tokens, featureWords):
		return a.pick(featureAnswers, facts)
	case matchAny(text, tokens, securityWords):
		return a.pick(securityAnswers, facts)
	case matchAny(text, tokens, accuracyWords):
		return render(accuracyAnswer, facts)
	case matchAny(text, tokens, datasetWords):
		return render(datasetAnswer, facts)
	case matchAny(text, tokens, numericalWords):
		return a.pick(numericalAnswers, facts)
	case tokens["dsx"]:
		return a.pick(dsxAnswers, facts)
	}
	return a.pick(defaultAnswers, facts)
}

func (a *Assistant) pick(options []string, facts Facts) string {
	a.mu.Lock()
	choice := options[a.rng.Intn(len(options))]
	a.mu.Unlock()
	return render(choice, facts)
}

func render(answer string, f Facts) string {
	if !strings.Contains(answer, "{") {
		return answer
	}
	return strings.NewReplacer(
		"{features}", strconv.Itoa(f.Features),
		"{models}", strconv.Itoa(f.Models),
		"{samples}", strconv.Itoa(f.Samples),
		"{category_count}", strconv.Itoa(len(f.Categories)),
		"{categories}", joinCategories(f.Categories),
	).Replace(answer)
}

func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}

func matchAny(text string, tokens map[string]bool, words []string) bool {
	for _, w := range words {
		if strings.Contains(w, " ") {
			if containsPhrase(text, w) {
				return true
			}
			continue
		}
		if tokens[w] {
			return true
		}
	}
	return false
}

// containsPhrase matches phrase on word boundaries.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	padded := " " + strings.Join(strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}), " ") + " "
	return strings.Contains(padded, " "+phrase+" ")
}

func joinCategories(c []string) string {
	switch len(c) {
	case 0:
		return "none loaded"
	case 1:
		return c[0]
	}
	return strings.Join(c[:len(c)-1], ", ") + ", and " + c[len(c)-1]
}
