package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/curator/internal/news"
)

const (
	ReviewPrefix    = "review_"
	ReviewGlob      = ReviewPrefix + "*.json"
	reviewDate      = "2006-01-02"
	DefaultCategory = "general"
)

var ErrReviewNotFound = errors.New("review record not found")

// ReviewItem is one candidate as the curator saw it.
type ReviewItem struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Source    string  `json:"source"`
	Category  string  `json:"category"`
	Score     float64 `json:"score"`
	Summary   string  `json:"summary"`
	Published *string `json:"published"`
	Selected  bool    `json:"selected"`
}

// Review is the record of one day's candidates and the curator's picks.
type Review struct {
	Date          string                  `json:"date"`
	TotalArticles int                     `json:"total_articles"`
	Categories    map[string][]ReviewItem `json:"categories"`
	Selected      []ReviewItem            `json:"selected"`
}

// ReviewFileName returns the record name for a day.
func ReviewFileName(day time.Time) string {
	return ReviewPrefix + day.Format(reviewDate) + ".json"
}

// BuildReview groups ranked items by category with per-category ids
// starting at 1. Nothing is selected yet.
func BuildReview(day time.Time, items []news.Item) Review {
	r := Review{
		Date:          day.Format(reviewDate),
		TotalArticles: len(items),
		Categories:    make(map[string][]ReviewItem),
		Selected:      []ReviewItem{},
	}
	for _, it := range items {
		cat := it.Category
		if cat == "" {
			cat = DefaultCategory
		}
		ri := ReviewItem{
			ID:       len(r.Categories[cat]) + 1,
			Title:    it.Title,
			URL:      it.URL,
			Source:   it.Source,
			Category: cat,
			Score:    it.Score,
			Summary:  it.Summary,
		}
		if !it.Published.IsZero() {
			p := it.Published.UTC().Format(time.RFC3339)
			ri.Published = &p
		}
		r.Categories[cat] = append(r.Categories[cat], ri)
	}
	return r
}

// MarkSelected flags the referenced items ("category:id") as picked and
// rebuilds the selected list in category then id order.
func MarkSelected(r *Review, refs []string) (int, error) {
	marked := 0
	for _, ref := range refs {
		cat, idStr, ok := strings.Cut(strings.TrimSpace(ref), ":")
		if !ok {
			return marked, fmt.Errorf("invalid selection %q, want category:id", ref)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return marked, fmt.Errorf("invalid selection id in %q: %w", ref, err)
		}
		items := r.Categories[cat]
		found := false
		for i := range items {
			if items[i].ID == id {
				if !items[i].Selected {
					items[i].Selected = true
					marked++
				}
				found = true
				break
			}
		}
		if !found {
			return marked, fmt.Errorf("no item %d in category %q", id, cat)
		}
	}

	r.rebuildSelected()
	return marked, nil
}

// CarrySelections copies picks from prev into r by URL. A pick whose item
// is no longer among r's candidates is appended to its category so it is
// never lost. It returns how many picks were carried.
func CarrySelections(r *Review, prev Review) int {
	if r.Categories == nil {
		r.Categories = make(map[string][]ReviewItem)
	}
	type position struct {
		cat string
		i   int
	}
	index := make(map[string]position)
	for cat, items := range r.Categories {
		for i, it := range items {
			index[it.URL] = position{cat, i}
		}
	}

	carried := 0
	for _, old := range prev.Selected {
		if pos, ok := index[old.URL]; ok && old.URL != "" {
			if it := &r.Categories[pos.cat][pos.i]; !it.Selected {
				it.Selected = true
				carried++
			}
			continue
		}
		cat := old.Category
		if cat == "" {
			cat = DefaultCategory
		}
		old.Category = cat
		old.ID = len(r.Categories[cat]) + 1
		old.Selected = true
		r.Categories[cat] = append(r.Categories[cat], old)
		index[old.URL] = position{cat, old.ID - 1}
		r.TotalArticles++
		carried++
	}
	r.rebuildSelected()
	return carried
}

// rebuildSelected lists picked items in category then id order.
func (r *Review) rebuildSelected() {
	cats := make([]string, 0, len(r.Categories))
	for cat := range r.Categories {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	r.Selected = []ReviewItem{}
	for _, cat := range cats {
		for _, it := range r.Categories[cat] {
			if it.Selected {
				r.Selected = append(r.Selected, it)
			}
		}
	}
}

// ReviewStore reads and writes review records in one directory.
type ReviewStore struct {
	dir string
}

func NewReviewStore(dir string) *ReviewStore {
	return &ReviewStore{dir: dir}
}

func (s *ReviewStore) Dir() string { return s.dir }

func (s *ReviewStore) Path(day time.Time) string {
	return filepath.Join(s.dir, ReviewFileName(day))
}

// Save writes the record atomically.
func (s *ReviewStore) Save(r Review) error {
	day, err := time.Parse(reviewDate, r.Date)
	if err != nil {
		return fmt.Errorf("invalid review date %q: %w", r.Date, err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal review: %w", err)
	}
	return WriteFileAtomic(s.Path(day), data, 0o644)
}

// Load reads and validates the record for a day.
func (s *ReviewStore) Load(day time.Time) (Review, error) {
	data, err := os.ReadFile(s.Path(day))
	if errors.Is(err, os.ErrNotExist) {
		return Review{}, ErrReviewNotFound
	}
	if err != nil {
		return Review{}, fmt.Errorf("failed to read review: %w", err)
	}
	return DecodeReview(data)
}

// DecodeReview validates raw bytes and decodes them.
func DecodeReview(data []byte) (Review, error) {
	if err := ValidateReview(data); err != nil {
		return Review{}, err
	}
	var r Review
	if err := json.Unmarshal(data, &r); err != nil {
		return Review{}, fmt.Errorf("failed to decode review: %w", err)
	}
	return r, nil
}

// List returns record file names in lexical (and so date) order.
func (s *ReviewStore) List() ([]string, error) {
	return ListReviews(s.dir)
}

// ListReviews returns review file names found in dir, sorted.
func ListReviews(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ReviewGlob))
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}
