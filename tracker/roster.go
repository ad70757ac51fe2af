package tracker

import (
	"sort"
	"sync"

	"tracker-bot/models"
)

// Roster is the in-memory set of tracked authors keyed by lower-cased username.
type Roster struct {
	mu      sync.RWMutex
	authors map[string]models.TrackedAuthor
}

func NewRoster() *Roster {
	return &Roster{authors: make(map[string]models.TrackedAuthor)}
}

// Find looks up an author by username, case-insensitively.
func (r *Roster) Find(username string) (models.TrackedAuthor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.authors[models.Key(username)]
	return a, ok
}

// Put adds or replaces an author.
func (r *Roster) Put(a models.TrackedAuthor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authors[models.Key(a.Username)] = a
}

// Update applies fn to a stored author and reports whether it was present.
func (r *Roster) Update(username string, fn func(a *models.TrackedAuthor)) (models.TrackedAuthor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := models.Key(username)
	a, ok := r.authors[key]
	if !ok {
		return a, false
	}
	fn(&a)
	r.authors[key] = a
	return a, true
}

// Replace swaps the whole roster for authors.
func (r *Roster) Replace(authors []models.TrackedAuthor) {
	m := make(map[string]models.TrackedAuthor, len(authors))
	for _, a := range authors {
		m[models.Key(a.Username)] = a
	}
	r.mu.Lock()
	r.authors = m
	r.mu.Unlock()
}

// Remove drops an author.
func (r *Roster) Remove(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.authors, models.Key(username))
}

// List returns a snapshot of the roster sorted by username.
func (r *Roster) List() []models.TrackedAuthor {
	r.mu.RLock()
	list := make([]models.TrackedAuthor, 0, len(r.authors))
	for _, a := range r.authors {
		list = append(list, a)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return models.Key(list[i].Username) < models.Key(list[j].Username)
	})
	return list
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.authors)
}
