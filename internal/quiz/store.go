// Package quiz holds the saved-quiz catalog: quiz definitions a host can
// store, list, load into a room and delete.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/scythe504/kartquiz-backend/internal"
	"github.com/scythe504/kartquiz-backend/internal/utils"
)

const DefaultTitle = "Untitled quiz"

var (
	ErrQuizNotFound = errors.New("quiz not found")
	ErrInvalidQuiz  = errors.New("invalid quiz")
)

type SavedQuiz struct {
	ID        string              `json:"id" yaml:"id"`
	Title     string              `json:"title" yaml:"title"`
	Questions []internal.Question `json:"questions" yaml:"questions"`
	CreatedAt time.Time           `json:"createdAt" yaml:"-"`
}

// Store is the saved-quiz catalog. Implementations must be safe for
// concurrent use.
type Store interface {
	// List returns every saved quiz, oldest first.
	List(ctx context.Context) ([]SavedQuiz, error)
	// Save inserts or replaces a quiz. An empty ID is assigned a new one.
	// Replacing keeps the original CreatedAt.
	Save(ctx context.Context, q SavedQuiz) (SavedQuiz, error)
	// Get returns ErrQuizNotFound for unknown ids.
	Get(ctx context.Context, id string) (SavedQuiz, error)
	// Delete returns ErrQuizNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
}

// Prepare normalizes q for storage and checks every answer coordinate.
func Prepare(q SavedQuiz) (SavedQuiz, error) {
	q.ID = strings.TrimSpace(q.ID)
	if q.ID == "" {
		q.ID = utils.GenerateID()
	}
	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		q.Title = DefaultTitle
	}
	for i, question := range q.Questions {
		if !question.Answer().Valid() {
			return SavedQuiz{}, fmt.Errorf("question %d answer (%v, %v): %w",
				i+1, question.CorrectLat, question.CorrectLng, ErrInvalidQuiz)
		}
	}
	q.Questions = append([]internal.Question{}, q.Questions...)
	return q, nil
}

// MemoryStore keeps the catalog in process memory. Contents are lost on
// restart.
type MemoryStore struct {
	mu      sync.RWMutex
	quizzes map[string]SavedQuiz
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quizzes: make(map[string]SavedQuiz),
		now:     time.Now,
	}
}

func (s *MemoryStore) List(_ context.Context) ([]SavedQuiz, error) {
	s.mu.RLock()
	out := make([]SavedQuiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	s.mu.RUnlock()

	SortByCreated(out)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, q SavedQuiz) (SavedQuiz, error) {
	q, err := Prepare(q)
	if err != nil {
		return SavedQuiz{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.quizzes[q.ID]; ok {
		q.CreatedAt = existing.CreatedAt
	} else {
		q.CreatedAt = s.now().UTC()
	}
	s.quizzes[q.ID] = q
	return q, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (SavedQuiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return SavedQuiz{}, fmt.Errorf("quiz %s: %w", id, ErrQuizNotFound)
	}
	return q, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[id]; !ok {
		return fmt.Errorf("quiz %s: %w", id, ErrQuizNotFound)
	}
	delete(s.quizzes, id)
	return nil
}

// SortByCreated orders quizzes oldest first, then by id.
func SortByCreated(quizzes []SavedQuiz) {
	sort.SliceStable(quizzes, func(i, j int) bool {
		if !quizzes[i].CreatedAt.Equal(quizzes[j].CreatedAt) {
			return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt)
		}
		return quizzes[i].ID < quizzes[j].ID
	})
}
