package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"moviehub/pkg/models"
)

// Service applies the catalog business rules on top of the Repo:
// input validation, per-user title uniqueness, and the
// custom-vs-upstream ownership branching on writes.
type Service struct {
	Repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{Repo: repo}
}

const (
	minYear = 1888
	maxYear = 2100
)

func (s *Service) CreateCustomMovie(ctx context.Context, userID string, draft models.MovieDraft) (*models.EffectiveMovie, error) {
	title, err := validateTitle(draft.Title)
	if err != nil {
		return nil, err
	}
	if err := validateYear(draft.Year); err != nil {
		return nil, err
	}
	if err := validateRuntime(draft.RuntimeMinutes); err != nil {
		return nil, err
	}
	genres := cleanList(draft.Genres)
	if len(genres) == 0 {
		return nil, invalidf("genres", "at least one genre is required")
	}
	directors := cleanList(draft.Directors)
	if len(directors) == 0 {
		return nil, invalidf("directors", "at least one director is required")
	}

	norm := NormalizeTitle(title)
	existing, err := s.Repo.FindLinkByEffectiveTitle(ctx, userID, norm, "")
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, Wrap(ErrConflict, fmt.Sprintf("title %q collides with an existing entry", title))
	}

	year := draft.Year
	runtime := draft.RuntimeMinutes
	movie := &models.Movie{
		ID:              uuid.NewString(),
		Title:           title,
		NormalizedTitle: norm,
		Year:            &year,
		RuntimeMinutes:  &runtime,
		Genres:          genres,
		Directors:       directors,
		PosterURL:       strings.TrimSpace(draft.PosterURL),
		Source:          models.SourceCustom,
		CreatedBy:       userID,
	}
	link := &models.UserMovieLink{
		UserID:         userID,
		MovieID:        movie.ID,
		EffectiveTitle: norm,
	}

	if err := s.Repo.InsertCustomWithLink(ctx, movie, link); err != nil {
		return nil, err
	}
	return s.effectiveView(ctx, userID, movie.ID)
}

func (s *Service) UpdateMovie(ctx context.Context, userID, movieID string, patch models.MoviePatch) (*models.EffectiveMovie, error) {
	if patch.PosterURL != nil {
		return nil, invalidf("poster_url", "poster is immutable")
	}

	movie, err := s.Repo.GetByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, Wrap(ErrNotFound, "movie "+movieID)
	}

	// validate everything the patch carries before touching state
	var newTitle string
	if patch.Title != nil {
		newTitle, err = validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
	}
	if patch.Year != nil {
		if err := validateYear(*patch.Year); err != nil {
			return nil, err
		}
	}
	if patch.RuntimeMinutes != nil {
		if err := validateRuntime(*patch.RuntimeMinutes); err != nil {
			return nil, err
		}
	}
	var genres, directors []string
	if patch.Genres != nil {
		if genres = cleanList(patch.Genres); len(genres) == 0 {
			return nil, invalidf("genres", "at least one genre is required")
		}
	}
	if patch.Directors != nil {
		if directors = cleanList(patch.Directors); len(directors) == 0 {
			return nil, invalidf("directors", "at least one director is required")
		}
	}

	// single ownership dispatch: the owner edits the canonical record,
	// everyone else gets the same patch applied as link overrides
	if movie.Source == models.SourceCustom && movie.CreatedBy == userID {
		return s.updateOwned(ctx, userID, movie, patch, newTitle, genres, directors)
	}
	return s.updateOverrides(ctx, userID, movie, patch, newTitle, genres, directors)
}

func (s *Service) updateOwned(ctx context.Context, userID string, movie *models.Movie, patch models.MoviePatch, newTitle string, genres, directors []string) (*models.EffectiveMovie, error) {
	renamed := false
	if patch.Title != nil {
		norm := NormalizeTitle(newTitle)
		if norm != movie.NormalizedTitle {
			existing, err := s.Repo.FindLinkByEffectiveTitle(ctx, userID, norm, movie.ID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, Wrap(ErrConflict, fmt.Sprintf("title %q collides with an existing entry", newTitle))
			}
			renamed = true
		}
		movie.Title = newTitle
		movie.NormalizedTitle = norm
	}
	if patch.Year != nil {
		movie.Year = patch.Year
	}
	if patch.RuntimeMinutes != nil {
		movie.RuntimeMinutes = patch.RuntimeMinutes
	}
	if patch.Genres != nil {
		movie.Genres = genres
	}
	if patch.Directors != nil {
		movie.Directors = directors
	}

	if err := s.Repo.UpdateCanonical(ctx, movie, renamed); err != nil {
		return nil, err
	}
	return s.effectiveView(ctx, userID, movie.ID)
}

func (s *Service) updateOverrides(ctx context.Context, userID string, movie *models.Movie, patch models.MoviePatch, newTitle string, genres, directors []string) (*models.EffectiveMovie, error) {
	link, err := s.Repo.GetLink(ctx, userID, movie.ID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		link = &models.UserMovieLink{
			UserID:  userID,
			MovieID: movie.ID,
		}
	}

	if patch.Title != nil {
		link.TitleOverride = &newTitle
	}
	if patch.Year != nil {
		link.YearOverride = patch.Year
	}
	if patch.RuntimeMinutes != nil {
		link.RuntimeOverride = patch.RuntimeMinutes
	}
	if patch.Genres != nil {
		link.GenresOverride = genres
	}
	if patch.Directors != nil {
		link.DirectorsOverride = directors
	}

	effSource := movie.Title
	if link.TitleOverride != nil {
		effSource = *link.TitleOverride
	}
	newEffective := NormalizeTitle(effSource)
	if newEffective != link.EffectiveTitle {
		existing, err := s.Repo.FindLinkByEffectiveTitle(ctx, userID, newEffective, movie.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, Wrap(ErrConflict, fmt.Sprintf("title %q collides with an existing entry", effSource))
		}
	}
	link.EffectiveTitle = newEffective

	if err := s.Repo.SaveLink(ctx, link); err != nil {
		return nil, err
	}
	return s.effectiveView(ctx, userID, movie.ID)
}

func (s *Service) SetFavorite(ctx context.Context, userID, movieID string, favorite bool) error {
	movie, err := s.Repo.GetByID(ctx, movieID)
	if err != nil {
		return err
	}
	if movie == nil {
		return Wrap(ErrNotFound, "movie "+movieID)
	}

	link, err := s.Repo.GetLink(ctx, userID, movieID)
	if err != nil {
		return err
	}
	if link == nil {
		// first touch: creating the link claims the movie's effective
		// title for this user, so the uniqueness rule applies here too
		eff := NormalizeTitle(movie.Title)
		existing, err := s.Repo.FindLinkByEffectiveTitle(ctx, userID, eff, movieID)
		if err != nil {
			return err
		}
		if existing != nil {
			return Wrap(ErrConflict, fmt.Sprintf("title %q collides with an existing entry", movie.Title))
		}
		link = &models.UserMovieLink{
			UserID:         userID,
			MovieID:        movieID,
			EffectiveTitle: eff,
		}
	}

	link.IsFavorite = favorite
	return s.Repo.SaveLink(ctx, link)
}

func (s *Service) DeleteMovie(ctx context.Context, userID, movieID string) error {
	movie, err := s.Repo.GetByID(ctx, movieID)
	if err != nil {
		return err
	}
	if movie == nil {
		return Wrap(ErrNotFound, "movie "+movieID)
	}

	if movie.Source == models.SourceCustom && movie.CreatedBy == userID {
		return s.Repo.SoftDeleteMovie(ctx, movieID)
	}

	// not the owner: detach this user's link, canonical stays for others
	ok, err := s.Repo.DeleteLink(ctx, userID, movieID)
	if err != nil {
		return err
	}
	if !ok {
		return Wrap(ErrNotFound, "no link to detach")
	}
	return nil
}

func (s *Service) ListUserMovies(ctx context.Context, userID string, favoritesOnly bool) ([]models.EffectiveMovie, error) {
	links, err := s.Repo.ListLinks(ctx, userID, favoritesOnly)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []models.EffectiveMovie{}, nil
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.MovieID)
	}
	movies, err := s.Repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Movie, len(movies))
	for _, m := range movies {
		byID[m.ID] = m
	}

	out := make([]models.EffectiveMovie, 0, len(links))
	for i := range links {
		m, ok := byID[links[i].MovieID]
		if !ok {
			continue // movie vanished between queries
		}
		out = append(out, MergeView(&m, &links[i]))
	}
	return out, nil
}

func (s *Service) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, Wrap(ErrNotFound, "movie "+id)
	}
	return m, nil
}

func (s *Service) GetMoviesByIDs(ctx context.Context, ids []string) ([]models.Movie, error) {
	return s.Repo.GetByIDs(ctx, ids)
}

func (s *Service) GetMovieForUser(ctx context.Context, userID, movieID string) (*models.EffectiveMovie, error) {
	return s.effectiveView(ctx, userID, movieID)
}

// SearchCustomMovies is the bounded fuzzy lookup the hybrid search
// prepends: the caller's own custom movies ranked by similarity, then
// recency.
func (s *Service) SearchCustomMovies(ctx context.Context, userID, query string) ([]models.EffectiveMovie, error) {
	candidates, err := s.Repo.ListCustomByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ranked := rankByTitle(query, candidates, maxFuzzyMatches)

	out := make([]models.EffectiveMovie, 0, len(ranked))
	for i := range ranked {
		link, err := s.Repo.GetLink(ctx, userID, ranked[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, MergeView(&ranked[i], link))
	}
	return out, nil
}

// effectiveView re-reads the stored rows so the timestamps returned
// to the caller are the DB's, not ours.
func (s *Service) effectiveView(ctx context.Context, userID, movieID string) (*models.EffectiveMovie, error) {
	m, err := s.Repo.GetByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, Wrap(ErrNotFound, "movie "+movieID)
	}
	l, err := s.Repo.GetLink(ctx, userID, movieID)
	if err != nil {
		return nil, err
	}
	view := MergeView(m, l)
	return &view, nil
}

func validateTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if len(t) < 3 {
		return "", invalidf("title", "must be at least 3 characters")
	}
	return t, nil
}

func validateYear(y int) error {
	if y < minYear || y > maxYear {
		return invalidf("year", "must be between %d and %d", minYear, maxYear)
	}
	return nil
}

func validateRuntime(rt int) error {
	if rt < 1 {
		return invalidf("runtime_minutes", "must be at least 1")
	}
	return nil
}

// cleanList trims entries and drops empties.
func cleanList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
